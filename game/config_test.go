package game

import (
	"testing"

	"github.com/mental-bridge/bridge/bridge/position"
)

func TestParseConfigRequiresIdentity(t *testing.T) {
	if _, err := ParseConfig([]string{"-position", "north"}); err == nil {
		t.Fatal("expected an error when -identity is missing")
	}
}

func TestParseConfigRejectsUnknownPosition(t *testing.T) {
	if _, err := ParseConfig([]string{"-identity", "alice", "-position", "up"}); err == nil {
		t.Fatal("expected an error for an unrecognized position")
	}
}

func TestParseConfigAcceptsAbbreviatedPositions(t *testing.T) {
	cfg, err := ParseConfig([]string{"-identity", "alice", "-position", "W", "-listen", "localhost:9000", "-record", "rec.jsonl"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Identity != "alice" {
		t.Fatalf("expected identity alice, got %q", cfg.Identity)
	}
	if cfg.Position != position.West {
		t.Fatalf("expected west, got %s", cfg.Position)
	}
	if cfg.ListenAddr != "localhost:9000" {
		t.Fatalf("expected the given listen address, got %q", cfg.ListenAddr)
	}
	if cfg.RecordPath != "rec.jsonl" {
		t.Fatalf("expected the given record path, got %q", cfg.RecordPath)
	}
}

func TestParseConfigDefaultsListenAddr(t *testing.T) {
	cfg, err := ParseConfig([]string{"-identity", "bob", "-position", "south"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ListenAddr != "localhost:0" {
		t.Fatalf("expected the default listen address, got %q", cfg.ListenAddr)
	}
}
