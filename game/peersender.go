package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/mental-bridge/bridge/messaging"
)

// PeerLink sends one encoded message to one peer and waits for its reply,
// or returns an error (including on timeout). It is satisfied by
// messaging.Link, which dials the peer's messaging.Listener per Send.
type PeerLink interface {
	Send(ctx context.Context, payload []byte) (reply []byte, err error)
}

// Sender reliably fans a command out to every configured peer, tracking
// per-peer acknowledgement and resending to any peer that has not
// acknowledged before giving up, per spec.md's peer command sender.
// Grounded on the teacher's Peer.BroadcastwithTimeout/AllToAllwithTimeout,
// which retry every fixed interval until every peer responds or an
// overall timeout elapses; this generalizes that to arbitrary named
// peers addressed by identity rather than integer rank, and to explicit
// acknowledgement tracking.
type Sender struct {
	mu       sync.Mutex
	links    map[string]PeerLink
	retry    time.Duration
	logger   *slog.Logger
}

// NewSender constructs a peer sender with the given per-peer links and
// retry interval between resend attempts.
func NewSender(links map[string]PeerLink, retry time.Duration, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{links: links, retry: retry, logger: logger}
}

// Broadcast sends command/payload to every peer, retrying unacknowledged
// peers every s.retry until ctx is done. It returns once every peer has
// acknowledged, or ctx's error if it gives up first; already-acknowledged
// peers are not resent to.
func (s *Sender) Broadcast(ctx context.Context, command string, payload any) error {
	data, err := messaging.Encode(command, payload)
	if err != nil {
		return fmt.Errorf("game: encoding %s: %w", command, err)
	}

	s.mu.Lock()
	pending := make(map[string]PeerLink, len(s.links))
	for id, link := range s.links {
		pending[id] = link
	}
	s.mu.Unlock()

	for len(pending) > 0 {
		var wg sync.WaitGroup
		acked := make(chan string, len(pending))
		for id, link := range pending {
			wg.Add(1)
			go func(id string, link PeerLink) {
				defer wg.Done()
				if _, err := link.Send(ctx, data); err != nil {
					s.logger.Warn("peer send failed, will retry", "peer", id, "command", command, "error", err)
					return
				}
				acked <- id
			}(id, link)
		}
		wg.Wait()
		close(acked)
		for id := range acked {
			delete(pending, id)
		}
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("game: broadcasting %s: %d peer(s) never acknowledged: %w", command, len(pending), ctx.Err())
		case <-time.After(s.retry):
		}
	}
	return nil
}
