package mental

import (
	"context"
	"fmt"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/cardserver"
)

// CommandBroadcaster reliably fans a named command out to every other
// card-server node and waits for every peer to acknowledge receipt. It is
// satisfied by game.Sender without this package importing package game,
// keeping the cryptographic card manager independent of game orchestration.
type CommandBroadcaster interface {
	Broadcast(ctx context.Context, command string, payload any) error
}

// Coordinator is the piece of lockstep this package's doc comment defers
// to "the messaging layer's reliable peer sender": it makes sure every
// node's local cardserver.Server receives the same command, in the same
// order, before this node's own Manager calls its local server, closing
// the gap a bare Manager leaves open.
type Coordinator struct {
	manager     *Manager
	broadcaster CommandBroadcaster
	leader      bool
}

// NewCoordinator builds a Coordinator driving manager. Exactly one node
// per deal must be constructed with leader true; it is the one that
// issues the broadcast triggering every node (including itself) to run
// the corresponding local command.
func NewCoordinator(manager *Manager, broadcaster CommandBroadcaster, leader bool) *Coordinator {
	return &Coordinator{manager: manager, broadcaster: broadcaster, leader: leader}
}

// RequestShuffle broadcasts the shuffle command to every peer (if this is
// the leader node) before running it locally, so no peer's Core.Shuffle
// round starts before every other peer has also committed to starting it.
//
// The rest of the deal's card-exchange sequence, the per-peer draw/reveal
// round manager.runShuffle runs after the shuffle completes, needs no
// broadcast of its own: every node derives the identical ordered
// draw/reveal sequence from the deal's shared owners mapping, so once
// every node has committed to the shuffle they stay in lockstep for the
// rest of the sequence without further coordination.
func (c *Coordinator) RequestShuffle(ctx context.Context) error {
	if c.leader {
		if err := c.broadcaster.Broadcast(ctx, cardserver.CmdShuffle, cardserver.ShuffleRequest{}); err != nil {
			return fmt.Errorf("mental: broadcasting shuffle: %w", err)
		}
	}
	return c.manager.RequestShuffle()
}

// RevealAll broadcasts the revealall command for indices to every peer
// (if this is the leader node) before running it locally.
func (c *Coordinator) RevealAll(ctx context.Context, indices []int) (map[int]card.Type, error) {
	if c.leader {
		if err := c.broadcaster.Broadcast(ctx, cardserver.CmdRevealAll, struct {
			Cards []int `json:"cards"`
		}{Cards: indices}); err != nil {
			return nil, fmt.Errorf("mental: broadcasting revealall: %w", err)
		}
	}
	return c.manager.RevealAll(indices)
}
