// Package mental implements bridge/cardmanager.CardManager over the
// peer-coordinated mental-card cryptographic protocol in package
// cardserver, per spec.md §4.6. Every node in a deal runs one
// cardserver.Server; this Manager drives that server's commands and
// caches the results the engine expects from CardManager's interface.
//
// Draw and Reveal are multi-party rounds: every card-server must issue
// the same command, for the same index, in the same order, or the
// all-to-all exchange inside cardserver.Core deadlocks or desyncs.
// Coordinator broadcasts the shuffle and revealall commands through the
// messaging layer's reliable peer sender before the local call; the
// per-peer draw/reveal sequence after a shuffle is not broadcast, since
// every node derives the same sequence from the shared owners mapping.
// This package does not itself reorder or retry commands.
package mental

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/cardmanager"
	"github.com/mental-bridge/bridge/cardserver"
)

// CommandTimeout bounds how long a single Shuffle/Draw/Reveal round is
// allowed to take before the manager gives up and reports an error,
// mirroring the 30-second peer timeout the teacher's network package
// uses for its own round-trip exchanges.
const CommandTimeout = 30 * time.Second

// Manager is a CardManager backed by a local cardserver.Server and its
// connections to the other positions' card-servers.
type Manager struct {
	mu        sync.Mutex
	selfOrder uint8
	owners    [52]uint8 // deck index -> owning peer order
	server    *cardserver.Server

	state     cardmanager.ShuffleState
	known     map[int]card.Type
	observers []cardmanager.Observer
}

// New constructs a mental-card manager. owners maps each of the 52 deck
// indices to the peer order of the position whose hand contains it
// (typically contiguous 13-index blocks per position, as engine.go
// assigns them).
func New(selfOrder uint8, owners [52]uint8, server *cardserver.Server) *Manager {
	return &Manager{
		selfOrder: selfOrder,
		owners:    owners,
		server:    server,
		known:     make(map[int]card.Type),
	}
}

// RequestShuffle runs the deck-preparation and shuffle protocol, then
// draws this node's own cards, asynchronously. Observers are notified as
// the shuffle moves through Requested and Completed.
func (m *Manager) RequestShuffle() error {
	m.mu.Lock()
	m.state = cardmanager.Requested
	m.known = make(map[int]card.Type)
	m.mu.Unlock()
	m.notify(cardmanager.Requested)

	go m.runShuffle()
	return nil
}

// runShuffle drives one deal's card-exchange sequence: shuffle, then for
// each peer A in ascending order, a Draw of A's indices (if A is this
// node) or a Reveal of A's indices (otherwise), per spec.md §4.6's
// "Card-exchange sequence for a deal". Every node computes this same
// sequence independently from the shared owners mapping, so the leader's
// single "shuffle" broadcast is enough to keep every node in lockstep;
// no further broadcast is needed per peer.
func (m *Manager) runShuffle() {
	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()

	if err := m.server.Shuffle(ctx, cardserver.ShuffleRequest{}); err != nil {
		return
	}

	m.mu.Lock()
	selfOrder := m.selfOrder
	byOwner := make(map[uint8][]int)
	orders := make([]uint8, 0, 4)
	seen := make(map[uint8]bool)
	for idx, owner := range m.owners {
		byOwner[owner] = append(byOwner[owner], idx)
		if !seen[owner] {
			seen[owner] = true
			orders = append(orders, owner)
		}
	}
	m.mu.Unlock()
	sort.Slice(orders, func(i, j int) bool { return orders[i] < orders[j] })

	known := make(map[int]card.Type)
	for _, owner := range orders {
		indices := byOwner[owner]
		if owner == selfOrder {
			reply, err := m.server.Draw(ctx, cardserver.DrawRequest{Drawer: owner, Cards: indices})
			if err != nil {
				return
			}
			for idx, typ := range reply.Cards {
				if typ != nil {
					known[idx] = *typ
				}
			}
			continue
		}
		if err := m.server.Reveal(ctx, cardserver.RevealRequest{Holder: owner, Cards: indices}); err != nil {
			return
		}
	}

	m.mu.Lock()
	for idx, typ := range known {
		m.known[idx] = typ
	}
	m.state = cardmanager.Completed
	m.mu.Unlock()
	m.notify(cardmanager.Completed)
}

func (m *Manager) notify(s cardmanager.ShuffleState) {
	m.mu.Lock()
	observers := append([]cardmanager.Observer(nil), m.observers...)
	m.mu.Unlock()
	for _, o := range observers {
		if o != nil {
			o.ShuffleStateChanged(s)
		}
	}
}

// IsShuffleCompleted reports whether this node has finished drawing its
// own hand for the current shuffle.
func (m *Manager) IsShuffleCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == cardmanager.Completed
}

// NumberOfCards always returns 52.
func (m *Manager) NumberOfCards() int { return 52 }

// GetHand returns the cards at indices: known types for this node's own
// hand or for any index revealed so far, and Unknown placeholders for
// cards still held face-down by another position.
func (m *Manager) GetHand(indices [13]int) ([13]card.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != cardmanager.Completed {
		return [13]card.Card{}, fmt.Errorf("mental: shuffle not completed")
	}
	var hand [13]card.Card
	for i, idx := range indices {
		if idx < 0 || idx >= 52 {
			return [13]card.Card{}, fmt.Errorf("mental: index %d out of range", idx)
		}
		if typ, ok := m.known[idx]; ok {
			hand[i] = card.Known(typ)
		} else {
			hand[i] = card.Unknown()
		}
	}
	return hand, nil
}

// RevealAll reveals the cards at indices to every peer, grouping the
// request by owning position since each group is a separate draw-then-
// broadcast round.
func (m *Manager) RevealAll(indices []int) (map[int]card.Type, error) {
	byOwner := make(map[uint8][]int)
	m.mu.Lock()
	for _, idx := range indices {
		if idx < 0 || idx >= 52 {
			m.mu.Unlock()
			return nil, fmt.Errorf("mental: index %d out of range", idx)
		}
		if _, ok := m.known[idx]; ok {
			continue
		}
		owner := m.owners[idx]
		byOwner[owner] = append(byOwner[owner], idx)
	}
	m.mu.Unlock()

	out := make(map[int]card.Type, len(indices))
	for owner, group := range byOwner {
		ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
		reply, err := m.server.RevealAll(ctx, cardserver.RevealAllRequest{Owner: owner, Cards: group})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("mental: revealall: %w", err)
		}
		m.mu.Lock()
		for idx, typ := range reply.Cards {
			m.known[idx] = typ
		}
		m.mu.Unlock()
		for idx, typ := range reply.Cards {
			out[idx] = typ
		}
	}
	m.mu.Lock()
	for _, idx := range indices {
		if typ, ok := m.known[idx]; ok {
			out[idx] = typ
		}
	}
	m.mu.Unlock()
	return out, nil
}

// Subscribe registers an observer for shuffle state changes.
func (m *Manager) Subscribe(o cardmanager.Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
	idx := len(m.observers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}
