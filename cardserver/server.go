package cardserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/mental-bridge/bridge/bridge/card"
)

// Server is the command surface of one card-server: it owns the
// cryptographic Core and serializes commands onto it, since the
// underlying shuffle/draw/reveal rounds are not safe to interleave (each
// is a multi-round all-to-all conversation with the same peer set).
// It corresponds to spec.md §4.6's "single outstanding command" rule.
type Server struct {
	mu      sync.Mutex
	order   uint8
	peers   []PeerEntry
	core    *Core
	network NetworkLayer

	initialized bool
	shuffled    bool
}

// NewServer constructs an uninitialized card-server command surface. Init
// must be called before any other command.
func NewServer() *Server {
	return &Server{}
}

// Init assigns this server's peer order and peer set, and constructs the
// cryptographic core over the given network layer (normally an adapter
// over a peerproxy.Proxy already dialed to every peer in req.Peers).
func (s *Server) Init(req InitRequest, network NetworkLayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return fmt.Errorf("cardserver: already initialized")
	}
	s.order = req.Order
	s.peers = req.Peers
	s.network = network
	s.core = NewCore(len(card.Deck()), network)
	s.initialized = true
	return nil
}

// Shuffle runs deck preparation (if this is the first shuffle) and the
// re-encryption shuffle protocol, blocking until ctx is done or every
// peer has completed its round.
func (s *Server) Shuffle(ctx context.Context, _ ShuffleRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("cardserver: shuffle: not initialized")
	}
	if err := s.runWithContext(ctx, func() error {
		if s.core.cardCollection == nil {
			if err := s.core.PrepareDeck(); err != nil {
				return err
			}
		}
		return s.core.Shuffle()
	}); err != nil {
		return fmt.Errorf("cardserver: shuffle: %w", err)
	}
	s.shuffled = true
	return nil
}

// Draw reveals req.Cards to req.Drawer only, returning the revealed
// types if this server is the drawer, or an empty reply otherwise.
func (s *Server) Draw(ctx context.Context, req DrawRequest) (DrawReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shuffled {
		return DrawReply{}, fmt.Errorf("cardserver: draw: shuffle not completed")
	}
	reply := DrawReply{Cards: make(map[int]*card.Type)}
	err := s.runWithContext(ctx, func() error {
		deck := card.Deck()
		for _, idx := range req.Cards {
			cardIdx, err := s.core.Draw(idx, int(req.Drawer))
			if err != nil {
				return fmt.Errorf("index %d: %w", idx, err)
			}
			if s.order == req.Drawer {
				if cardIdx < 0 || cardIdx >= len(deck) {
					return fmt.Errorf("index %d: drawn card index %d out of range", idx, cardIdx)
				}
				typ := deck[cardIdx]
				reply.Cards[idx] = &typ
			}
		}
		return nil
	})
	if err != nil {
		return DrawReply{}, fmt.Errorf("cardserver: draw: %w", err)
	}
	return reply, nil
}

// Reveal participates in req.Holder's own Draw round for req.Cards
// without learning their identity: this is the non-holder side of the
// initial-hand exchange, and must be called by every peer but req.Holder
// in the same relative order as req.Holder's own Draw call for the same
// indices, per spec.md §4.6's Synchronization rule. It carries no
// payload on reply.
func (s *Server) Reveal(ctx context.Context, req RevealRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shuffled {
		return fmt.Errorf("cardserver: reveal: shuffle not completed")
	}
	err := s.runWithContext(ctx, func() error {
		for _, idx := range req.Cards {
			if _, err := s.core.Draw(idx, int(req.Holder)); err != nil {
				return fmt.Errorf("index %d: %w", idx, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cardserver: reveal: %w", err)
	}
	return nil
}

// RevealAll composes Draw (by the position owning each index, i.e. the
// peer order supplied in req.Owner) with Reveal to every peer, completing
// the "revealall" protocol operation in one round trip.
func (s *Server) RevealAll(ctx context.Context, req RevealAllRequest) (RevealAllReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shuffled {
		return RevealAllReply{}, fmt.Errorf("cardserver: revealall: shuffle not completed")
	}
	reply := RevealAllReply{Cards: make(map[int]card.Type)}
	deck := card.Deck()
	err := s.runWithContext(ctx, func() error {
		for _, idx := range req.Cards {
			cardIdx, err := s.core.Draw(idx, int(req.Owner))
			if err != nil {
				return fmt.Errorf("index %d: %w", idx, err)
			}
			typeOrdinal := 0
			if s.order == req.Owner {
				typeOrdinal = cardIdx
			}
			got, err := s.core.Reveal(int(req.Owner), typeOrdinal)
			if err != nil {
				return fmt.Errorf("index %d: %w", idx, err)
			}
			if got < 0 || got >= len(deck) {
				return fmt.Errorf("index %d: revealed type ordinal %d out of range", idx, got)
			}
			reply.Cards[idx] = deck[got]
		}
		return nil
	})
	if err != nil {
		return RevealAllReply{}, fmt.Errorf("cardserver: revealall: %w", err)
	}
	return reply, nil
}

// runWithContext runs fn to completion, or returns ctx.Err() once ctx is
// done. fn keeps running on a background goroutine even past a timeout,
// since the multi-round protocol cannot be safely aborted mid-round; a
// caller that times out must treat this server's shuffle as failed and
// recreate it, per spec.md's note that the engine has no reentrant abort
// path for the card protocol.
func (s *Server) runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
