// Package cardmanager defines the abstract interface the bridge engine
// uses to obtain shuffled cards and hands for a deal, without knowing
// whether those cards come from a trusted local shuffle or a peer-run
// cryptographic protocol.
package cardmanager

import (
	"github.com/mental-bridge/bridge/bridge/card"
)

// ShuffleState is the lifecycle state of the card manager's current
// shuffle request.
type ShuffleState int

const (
	// NotRequested is the initial state, before RequestShuffle is called.
	NotRequested ShuffleState = iota
	// Requested means a shuffle has been asked for but is not yet usable.
	Requested
	// Completed means GetHand will return usable hands for this shuffle.
	Completed
)

func (s ShuffleState) String() string {
	switch s {
	case NotRequested:
		return "not-requested"
	case Requested:
		return "requested"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Observer is notified of shuffle state transitions.
type Observer interface {
	ShuffleStateChanged(state ShuffleState)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ShuffleState)

func (f ObserverFunc) ShuffleStateChanged(state ShuffleState) { f(state) }

// CardManager provides shuffled cards and hands to the bridge engine. A
// Completed notification implies GetHand will return a usable hand whose
// cards have stable indices for the duration of the deal. Requesting a new
// shuffle invalidates any hands previously issued.
type CardManager interface {
	// RequestShuffle asks the card manager to produce a new 52-card
	// shuffle. It may complete synchronously or asynchronously; callers
	// must not assume IsShuffleCompleted() is true immediately after this
	// call returns.
	RequestShuffle() error
	// IsShuffleCompleted reports whether the most recently requested
	// shuffle is ready for GetHand.
	IsShuffleCompleted() bool
	// NumberOfCards returns the size of the deck (52 for a standard deal).
	NumberOfCards() int
	// GetHand returns the 13 cards at the given deck indices, in index
	// order, as they currently stand (known or not). It is an error to
	// call this before IsShuffleCompleted() is true.
	GetHand(indices [13]int) ([13]card.Card, error)
	// Subscribe registers an observer for shuffle state changes. The
	// returned unsubscribe function removes it; it is safe to call more
	// than once.
	Subscribe(o Observer) (unsubscribe func())
	// RevealAll requests that the cards at the given deck indices be
	// revealed to every party (the mental-card-protocol "revealall"
	// operation; a simple plaintext manager can satisfy this from its own
	// already-known deck immediately). It blocks until every party has
	// the revealed types, or returns an error.
	RevealAll(indices []int) (map[int]card.Type, error)
}
