// Package simple implements the plaintext card protocol of spec.md §4.5:
// used when all four positions are controlled by one node, or all peers
// are trusted. The leader generates a random permutation and broadcasts it
// as a "deal" command; every node (including the leader) then holds the
// same 52-card shuffle with every card known from the start.
package simple

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/cardmanager"
)

// Broadcaster is the peer fan-out the leader uses to publish its deal, and
// that non-leaders use to receive it. It is satisfied by an adapter over
// game.Sender in production, and by an in-process fake in tests.
type Broadcaster interface {
	// BroadcastDeal sends the given 52-card permutation to every peer. It
	// is only called by the leader.
	BroadcastDeal(perm [52]card.Type) error
}

// Manager is a CardManager backed by the plaintext protocol.
type Manager struct {
	mu          sync.Mutex
	isLeader    bool
	broadcaster Broadcaster
	observers   []cardmanager.Observer
	state       cardmanager.ShuffleState
	deck        [52]card.Card
}

// New constructs a plaintext card manager. isLeader selects whether this
// node generates the shuffle (true for the node controlling the
// lowest-ordered position) or waits to receive one (false).
func New(isLeader bool, broadcaster Broadcaster) *Manager {
	return &Manager{isLeader: isLeader, broadcaster: broadcaster}
}

// RequestShuffle generates and broadcasts a new permutation if this node
// is the leader; non-leaders ignore the call locally and wait for
// ReceiveDeal to be invoked by the peer transport layer.
func (m *Manager) RequestShuffle() error {
	m.mu.Lock()
	m.state = cardmanager.Requested
	m.mu.Unlock()
	m.notify(cardmanager.Requested)

	if !m.isLeader {
		return nil
	}
	perm := shuffledDeck()
	m.ReceiveDeal(perm)
	if m.broadcaster == nil {
		return fmt.Errorf("simple: leader has no broadcaster configured")
	}
	return m.broadcaster.BroadcastDeal(perm)
}

// ReceiveDeal is called (by the leader, for itself, and by the peer
// transport layer for non-leaders) with the broadcast permutation. It
// completes the current shuffle.
func (m *Manager) ReceiveDeal(perm [52]card.Type) {
	m.mu.Lock()
	for i, t := range perm {
		m.deck[i] = card.Known(t)
	}
	m.state = cardmanager.Completed
	m.mu.Unlock()
	m.notify(cardmanager.Completed)
}

func (m *Manager) notify(s cardmanager.ShuffleState) {
	for _, o := range m.observers {
		if o != nil {
			o.ShuffleStateChanged(s)
		}
	}
}

// IsShuffleCompleted reports whether ReceiveDeal has populated the deck
// for the current shuffle.
func (m *Manager) IsShuffleCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == cardmanager.Completed
}

// NumberOfCards always returns 52.
func (m *Manager) NumberOfCards() int { return 52 }

// GetHand returns the cards at the given deck indices.
func (m *Manager) GetHand(indices [13]int) ([13]card.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != cardmanager.Completed {
		return [13]card.Card{}, fmt.Errorf("simple: shuffle not completed")
	}
	var hand [13]card.Card
	for i, idx := range indices {
		if idx < 0 || idx >= 52 {
			return [13]card.Card{}, fmt.Errorf("simple: index %d out of range", idx)
		}
		hand[i] = m.deck[idx]
	}
	return hand, nil
}

// RevealAll is a no-op that returns the already-known types: in the
// plaintext protocol every card is known to every node from the moment of
// ReceiveDeal.
func (m *Manager) RevealAll(indices []int) (map[int]card.Type, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]card.Type, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= 52 {
			return nil, fmt.Errorf("simple: index %d out of range", idx)
		}
		typ, ok := m.deck[idx].Type()
		if !ok {
			return nil, fmt.Errorf("simple: card %d not known", idx)
		}
		out[idx] = typ
	}
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

func shuffledDeck() [52]card.Type {
	deck := card.Deck()
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
