package engine

import (
	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/deal"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/scoring"
)

// Kind identifies one of the named events the engine emits.
type Kind int

const (
	DealStarted Kind = iota
	TurnStarted
	CallMade
	BiddingCompleted
	CardPlayed
	TrickStarted
	TrickCompleted
	DummyRevealed
	DealEnded
)

func (k Kind) String() string {
	switch k {
	case DealStarted:
		return "DealStarted"
	case TurnStarted:
		return "TurnStarted"
	case CallMade:
		return "CallMade"
	case BiddingCompleted:
		return "BiddingCompleted"
	case CardPlayed:
		return "CardPlayed"
	case TrickStarted:
		return "TrickStarted"
	case TrickCompleted:
		return "TrickCompleted"
	case DummyRevealed:
		return "DummyRevealed"
	case DealEnded:
		return "DealEnded"
	default:
		return "Unknown"
	}
}

// Event is one notification published by the engine. Every event carries
// the deal UUID and a game-wide monotonic counter; consumers order
// snapshots against events by Counter. Only the fields relevant to Kind
// are populated; the rest are zero values.
type Event struct {
	Kind    Kind
	Deal    uuid.UUID
	Counter uint64

	Opener        position.Position
	Vulnerability deal.Vulnerability

	Position position.Position
	Call     bidding.Call
	CallIdx  int

	Declarer position.Position
	Contract bidding.Contract

	Card       card.Type
	HandIndex  int
	TrickIndex int

	Leader position.Position
	Winner position.Position

	Result scoring.Result
}

// Observer is notified of every engine event in causal order.
type Observer interface {
	HandleEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) HandleEvent(e Event) { f(e) }
