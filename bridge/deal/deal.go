package deal

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/trick"
)

// Phase is the lifecycle stage of a deal.
type Phase int

const (
	PhaseBidding Phase = iota
	PhasePlaying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseBidding:
		return "bidding"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Vulnerability is the pair of vulnerability flags set at deal time.
type Vulnerability struct {
	NorthSouth bool
	EastWest   bool
}

// IsVulnerable reports whether the partnership holding pos is vulnerable.
func (v Vulnerability) IsVulnerable(pos position.Position) bool {
	if position.PartnershipOf(pos) == position.NorthSouth {
		return v.NorthSouth
	}
	return v.EastWest
}

// Deal is the immutable-identity aggregate for one distribution of cards:
// four hands, a bidding auction, and the sequence of tricks played so far.
// Deal itself does not enforce engine-level rules (whose turn it is, which
// hand is dummy); see package engine for that.
type Deal struct {
	id            uuid.UUID
	vulnerability Vulnerability
	hands         map[position.Position]*Hand
	bidding       *bidding.Bidding
	tricks        []*trick.Trick
	phase         Phase
}

// New creates a deal with the given identity, opener, vulnerability and
// hands (exactly one per position).
func New(id uuid.UUID, opener position.Position, vuln Vulnerability, hands map[position.Position]*Hand) (*Deal, error) {
	for _, pos := range position.All {
		if _, ok := hands[pos]; !ok {
			return nil, fmt.Errorf("deal: missing hand for position %s", pos)
		}
	}
	return &Deal{
		id:            id,
		vulnerability: vuln,
		hands:         hands,
		bidding:       bidding.New(opener),
		phase:         PhaseBidding,
	}, nil
}

// UUID returns the deal's identity.
func (d *Deal) UUID() uuid.UUID {
	return d.id
}

// Vulnerability returns the deal's vulnerability pair.
func (d *Deal) Vulnerability() Vulnerability {
	return d.vulnerability
}

// Hand returns the hand at pos.
func (d *Deal) Hand(pos position.Position) *Hand {
	return d.hands[pos]
}

// Hands returns the position -> hand map. Callers must not mutate it.
func (d *Deal) Hands() map[position.Position]*Hand {
	return d.hands
}

// PositionOf returns the position holding hand h, and true, or false if h
// does not belong to this deal.
func (d *Deal) PositionOf(h *Hand) (position.Position, bool) {
	for pos, hand := range d.hands {
		if hand == h {
			return pos, true
		}
	}
	return 0, false
}

// Bidding returns the deal's auction.
func (d *Deal) Bidding() *bidding.Bidding {
	return d.bidding
}

// Phase returns the deal's current lifecycle phase.
func (d *Deal) Phase() Phase {
	return d.phase
}

// SetPhase transitions the deal to a new phase. Package engine is
// responsible for calling this at the right times; Deal itself does not
// validate the transition graph.
func (d *Deal) SetPhase(p Phase) {
	d.phase = p
}

// Tricks returns the tricks played so far, in order.
func (d *Deal) Tricks() []*trick.Trick {
	return d.tricks
}

// CurrentTrick returns the last (possibly incomplete) trick, and true, or
// false if no trick has started yet.
func (d *Deal) CurrentTrick() (*trick.Trick, bool) {
	if len(d.tricks) == 0 {
		return nil, false
	}
	return d.tricks[len(d.tricks)-1], true
}

// StartTrick appends a new trick led by the given hand rotation (leader
// first, as trick.Hand values) under the given trump suit, and returns it.
func (d *Deal) StartTrick(handsInOrder [trick.NCards]trick.Hand, trumpSuit card.Suit, hasTrump bool) *trick.Trick {
	t := trick.New(handsInOrder, trumpSuit, hasTrump)
	d.tricks = append(d.tricks, t)
	return t
}
