package mental

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mental-bridge/bridge/bridge/cardmanager"
)

type recordingBroadcaster struct {
	commands []string
	failWith error
}

func (b *recordingBroadcaster) Broadcast(ctx context.Context, command string, payload any) error {
	b.commands = append(b.commands, command)
	return b.failWith
}

func TestCoordinatorLeaderBroadcastsBeforeRunningLocally(t *testing.T) {
	m := newTestManager(t)
	b := &recordingBroadcaster{}
	c := NewCoordinator(m, b, true)

	if err := c.RequestShuffle(context.Background()); err != nil {
		t.Fatalf("RequestShuffle: %v", err)
	}
	waitForState(t, m, cardmanager.Completed, 5*time.Second)

	if len(b.commands) != 1 || b.commands[0] != "shuffle" {
		t.Fatalf("expected exactly one shuffle broadcast, got %v", b.commands)
	}
}

func TestCoordinatorFollowerDoesNotBroadcast(t *testing.T) {
	m := newTestManager(t)
	b := &recordingBroadcaster{}
	c := NewCoordinator(m, b, false)

	if err := c.RequestShuffle(context.Background()); err != nil {
		t.Fatalf("RequestShuffle: %v", err)
	}
	waitForState(t, m, cardmanager.Completed, 5*time.Second)

	if len(b.commands) != 0 {
		t.Fatalf("expected a follower to never broadcast, got %v", b.commands)
	}
}

func TestCoordinatorLeaderPropagatesBroadcastFailure(t *testing.T) {
	m := newTestManager(t)
	b := &recordingBroadcaster{failWith: errors.New("peer unreachable")}
	c := NewCoordinator(m, b, true)

	if err := c.RequestShuffle(context.Background()); err == nil {
		t.Fatal("expected a broadcast failure to prevent the shuffle from starting")
	}
}

func TestCoordinatorRevealAllBroadcastsOnlyForLeader(t *testing.T) {
	m := newTestManager(t)
	b := &recordingBroadcaster{}
	c := NewCoordinator(m, b, true)

	if err := c.RequestShuffle(context.Background()); err != nil {
		t.Fatalf("RequestShuffle: %v", err)
	}
	waitForState(t, m, cardmanager.Completed, 5*time.Second)

	if _, err := c.RevealAll(context.Background(), []int{0, 1}); err != nil {
		t.Fatalf("RevealAll: %v", err)
	}
	if len(b.commands) != 2 || b.commands[1] != "revealall" {
		t.Fatalf("expected a revealall broadcast after the shuffle, got %v", b.commands)
	}
}
