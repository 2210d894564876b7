package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mental-bridge/bridge/bridge/engine"
	"github.com/mental-bridge/bridge/bridge/position"
)

func TestMemoryRecorderRecordsInOrder(t *testing.T) {
	r := NewMemoryRecorder()
	if err := r.Record(engine.Event{Kind: engine.DealStarted, Opener: position.North}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(engine.Event{Kind: engine.TurnStarted, Position: position.East}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recs, err := r.Recordings()
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].Index != 0 || recs[1].Index != 1 {
		t.Fatalf("expected sequential indices, got %d, %d", recs[0].Index, recs[1].Index)
	}
	if recs[0].Event.Kind != engine.DealStarted {
		t.Fatalf("expected first recording to be DealStarted, got %v", recs[0].Event.Kind)
	}
}

func TestRecorderObserverLogsFailureWithoutPanicking(t *testing.T) {
	var reported error
	obs := RecorderObserver{
		Recorder: failingRecorder{},
		OnError:  func(err error) { reported = err },
	}
	obs.HandleEvent(engine.Event{Kind: engine.DealStarted})
	if reported == nil {
		t.Fatal("expected the recorder's failure to reach OnError")
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(ev engine.Event) error     { return errors.New("game: simulated record failure") }
func (failingRecorder) Recordings() ([]Recording, error) { return nil, nil }

func TestFileRecorderRoundTripsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.jsonl")

	r, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	if err := r.Record(engine.Event{Kind: engine.DealStarted, Opener: position.South}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(engine.Event{Kind: engine.DealEnded}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reopened, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder (reopen): %v", err)
	}
	if err := reopened.Record(engine.Event{Kind: engine.TurnStarted, Position: position.West}); err != nil {
		t.Fatalf("Record after reopen: %v", err)
	}

	recs, err := reopened.Recordings()
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 recordings across the reopen, got %d", len(recs))
	}
	if recs[2].Index != 2 || recs[2].Event.Kind != engine.TurnStarted {
		t.Fatalf("expected the third recording to continue the index sequence, got %+v", recs[2])
	}
}

func TestFileRecorderRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.jsonl")
	raw := []byte(`{"version":99,"index":0,"timestamp":0,"event":{"Kind":0}}` + "\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewFileRecorder(path); err == nil {
		t.Fatal("expected opening a recording file with an unsupported version to error")
	}
}
