package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/engine"
)

// Recording is one persisted deal event, versioned so that future
// schema changes can be detected on replay. Grounded on the teacher's
// ledger.Block, generalized from a hash-chained consensus log to a
// flat append-only event recording (a bridge deal has no competing
// proposers to order, so the chain's hash-linking integrity check does
// not apply here).
type Recording struct {
	Version   int         `json:"version"`
	Index     int         `json:"index"`
	Timestamp int64       `json:"timestamp"`
	Event     engine.Event `json:"event"`
}

// RecordingVersion is bumped whenever the Recording or engine.Event shape
// changes in a way that breaks decoding of previously written records.
const RecordingVersion = 1

// Recorder persists engine events for later recall. RecorderObserver
// adapts a Recorder to engine.Observer so it can subscribe directly.
type Recorder interface {
	Record(ev engine.Event) error
	Recordings() ([]Recording, error)
}

// RecorderObserver adapts a Recorder to engine.Observer, logging (rather
// than surfacing) recording failures since the engine's publish path
// has no way to propagate an observer error.
type RecorderObserver struct {
	Recorder Recorder
	OnError  func(error)
}

func (o RecorderObserver) HandleEvent(e engine.Event) {
	if err := o.Recorder.Record(e); err != nil && o.OnError != nil {
		o.OnError(err)
	}
}

// MemoryRecorder keeps recordings in process memory. Useful for tests and
// for nodes that do not need recall across restarts.
type MemoryRecorder struct {
	mu   sync.Mutex
	recs []Recording
}

// NewMemoryRecorder constructs an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(ev engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, Recording{Version: RecordingVersion, Index: len(r.recs), Timestamp: time.Now().Unix(), Event: ev})
	return nil
}

func (r *MemoryRecorder) Recordings() ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recording, len(r.recs))
	copy(out, r.recs)
	return out, nil
}

// FileRecorder appends each recording as one JSON line to a file,
// flushing synchronously so a crash loses at most the in-flight write.
type FileRecorder struct {
	mu    sync.Mutex
	path  string
	count int
}

// NewFileRecorder reads any records already present at path, so new
// indices continue from there. A missing file is not an error; the file
// is created by the first Record.
func NewFileRecorder(path string) (*FileRecorder, error) {
	existing, err := readRecordings(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("game: opening recording file: %w", err)
	}
	return &FileRecorder{path: path, count: len(existing)}, nil
}

func (r *FileRecorder) Record(ev engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := Recording{Version: RecordingVersion, Index: r.count, Timestamp: time.Now().Unix(), Event: ev}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("game: marshaling recording: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("game: opening recording file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("game: writing recording: %w", err)
	}
	r.count++
	return nil
}

func (r *FileRecorder) Recordings() ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return readRecordings(r.path)
}

func readRecordings(path string) ([]Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Recording
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Recording
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("game: decoding recording: %w", err)
		}
		if rec.Version != RecordingVersion {
			return nil, fmt.Errorf("game: recording %d has unsupported version %d", rec.Index, rec.Version)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DealUUID extracts the deal identity a recording belongs to.
func DealUUID(rec Recording) uuid.UUID {
	return rec.Event.Deal
}
