// Package bidding implements the contract-bridge auction state machine:
// an ordered sequence of calls starting from the opener's position, cycling
// clockwise, terminating in either a contract or a pass-out.
package bidding

import (
	"fmt"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/position"
)

// Strain is the denomination of a bid: one of the four suits, or no trump.
type Strain int

const (
	StrainClubs Strain = iota
	StrainDiamonds
	StrainHearts
	StrainSpades
	StrainNoTrump
)

func (s Strain) String() string {
	switch s {
	case StrainClubs:
		return "clubs"
	case StrainDiamonds:
		return "diamonds"
	case StrainHearts:
		return "hearts"
	case StrainSpades:
		return "spades"
	case StrainNoTrump:
		return "notrump"
	default:
		return fmt.Sprintf("strain(%d)", int(s))
	}
}

// TrumpSuit returns the suit this strain names, and false for no trump.
func (s Strain) TrumpSuit() (card.Suit, bool) {
	switch s {
	case StrainClubs:
		return card.Clubs, true
	case StrainDiamonds:
		return card.Diamonds, true
	case StrainHearts:
		return card.Hearts, true
	case StrainSpades:
		return card.Spades, true
	default:
		return 0, false
	}
}

// Bid is a level (1-7) and strain pair, ordered by level then strain.
type Bid struct {
	Level  int
	Strain Strain
}

// rank returns a single comparable value for a bid so two bids can be
// ordered with plain integer comparison.
func (b Bid) rank() int {
	return (b.Level-1)*5 + int(b.Strain)
}

// Less reports whether b is strictly lower than other.
func (b Bid) Less(other Bid) bool {
	return b.rank() < other.rank()
}

func (b Bid) String() string {
	return fmt.Sprintf("%d%s", b.Level, b.Strain)
}

// Valid reports whether the bid has a level in 1..7 and a defined strain.
func (b Bid) Valid() bool {
	return b.Level >= 1 && b.Level <= 7 && b.Strain >= StrainClubs && b.Strain <= StrainNoTrump
}

// CallType distinguishes the four kinds of call a player may make.
type CallType int

const (
	CallPass CallType = iota
	CallBid
	CallDouble
	CallRedouble
)

// Call is one call in the auction. For CallBid, Bid holds the bid; for
// the other call types Bid is the zero value and ignored.
type Call struct {
	Type CallType
	Bid  Bid
}

func PassCall() Call            { return Call{Type: CallPass} }
func BidCall(b Bid) Call        { return Call{Type: CallBid, Bid: b} }
func DoubleCall() Call          { return Call{Type: CallDouble} }
func RedoubleCall() Call        { return Call{Type: CallRedouble} }

func (c Call) String() string {
	switch c.Type {
	case CallPass:
		return "pass"
	case CallBid:
		return c.Bid.String()
	case CallDouble:
		return "double"
	case CallRedouble:
		return "redouble"
	default:
		return fmt.Sprintf("call(%d)", int(c.Type))
	}
}

// Doubling is the doubling state of the final contract.
type Doubling int

const (
	Undoubled Doubling = iota
	Doubled
	Redoubled
)

// Contract is the final outcome of a completed auction that did not end
// in a pass-out.
type Contract struct {
	Bid      Bid
	Doubling Doubling
}

// entry pairs a call with the position that made it, for read accessors.
type entry struct {
	position position.Position
	call     Call
}

// Bidding is one deal's auction. The zero value is not usable; construct
// with New.
type Bidding struct {
	opener position.Position
	calls  []entry
}

// New starts an auction with the given opener.
func New(opener position.Position) *Bidding {
	return &Bidding{opener: opener}
}

// Opener returns the position that calls first.
func (b *Bidding) Opener() position.Position {
	return b.opener
}

// NumberOfCalls returns how many calls have been made so far.
func (b *Bidding) NumberOfCalls() int {
	return len(b.calls)
}

// NthCall returns the nth call made (0-indexed) and true, or the zero Call
// and false if n is out of range.
func (b *Bidding) NthCall(n int) (Call, bool) {
	if n < 0 || n >= len(b.calls) {
		return Call{}, false
	}
	return b.calls[n].call, true
}

// PositionInTurn returns the position whose turn it is to call, or false
// if the auction has ended.
func (b *Bidding) PositionInTurn() (position.Position, bool) {
	if b.HasEnded() {
		return 0, false
	}
	return b.opener.Next(len(b.calls)), true
}

// lastBidIndex returns the index of the most recent CallBid entry, or -1.
func (b *Bidding) lastBidIndex() int {
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].call.Type == CallBid {
			return i
		}
	}
	return -1
}

// lastNonPassIndex returns the index of the most recent non-pass entry, or -1.
func (b *Bidding) lastNonPassIndex() int {
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].call.Type != CallPass {
			return i
		}
	}
	return -1
}

// LowestAllowedBid returns the lowest bid that would be legal right now.
// Before any bid has been made this is 1 clubs.
func (b *Bidding) LowestAllowedBid() Bid {
	idx := b.lastBidIndex()
	if idx < 0 {
		return Bid{Level: 1, Strain: StrainClubs}
	}
	last := b.calls[idx].call.Bid
	next := last.rank() + 1
	return Bid{Level: next/5 + 1, Strain: Strain(next % 5)}
}

// IsDoublingAllowed reports whether Double is currently a legal call.
func (b *Bidding) IsDoublingAllowed() bool {
	if b.HasEnded() {
		return false
	}
	idx := b.lastNonPassIndex()
	if idx < 0 || b.calls[idx].call.Type != CallBid {
		return false
	}
	inTurn, _ := b.PositionInTurn()
	return !inTurn.IsPartnership(b.calls[idx].position)
}

// IsRedoublingAllowed reports whether Redouble is currently a legal call.
func (b *Bidding) IsRedoublingAllowed() bool {
	if b.HasEnded() {
		return false
	}
	idx := b.lastNonPassIndex()
	if idx < 0 || b.calls[idx].call.Type != CallDouble {
		return false
	}
	inTurn, _ := b.PositionInTurn()
	return !inTurn.IsPartnership(b.calls[idx].position)
}

// isLegal reports whether call c may be made right now, regardless of whose
// turn it is.
func (b *Bidding) isLegal(c Call) bool {
	switch c.Type {
	case CallPass:
		return true
	case CallBid:
		if !c.Bid.Valid() {
			return false
		}
		return !c.Bid.Less(b.LowestAllowedBid())
	case CallDouble:
		return b.IsDoublingAllowed()
	case CallRedouble:
		return b.IsRedoublingAllowed()
	default:
		return false
	}
}

// Call attempts to register call c from position pos. It returns false
// without any side effect if the auction has ended, pos is not in turn, or
// the call is illegal.
func (b *Bidding) Call(pos position.Position, c Call) bool {
	if b.HasEnded() {
		return false
	}
	inTurn, ok := b.PositionInTurn()
	if !ok || inTurn != pos {
		return false
	}
	if !b.isLegal(c) {
		return false
	}
	b.calls = append(b.calls, entry{position: pos, call: c})
	return true
}

// HasEnded reports whether the auction is over: three passes after a bid,
// or four opening passes.
func (b *Bidding) HasEnded() bool {
	n := len(b.calls)
	if n == 0 {
		return false
	}
	if n >= 4 && b.lastBidIndex() < 0 {
		for i := n - 4; i < n; i++ {
			if b.calls[i].call.Type != CallPass {
				return false
			}
		}
		return true
	}
	if n < 4 {
		return false
	}
	for i := n - 3; i < n; i++ {
		if b.calls[i].call.Type != CallPass {
			return false
		}
	}
	// the three passes must follow a bid (a double/redouble followed by
	// three passes also ends the auction, per "three consecutive passes
	// after at least one bid").
	return b.lastBidIndex() >= 0
}

// HasContract reports whether the (ended) auction produced a contract.
func (b *Bidding) HasContract() bool {
	return b.HasEnded() && b.lastBidIndex() >= 0
}

// Contract returns the final contract and true, or the zero Contract and
// false if the auction has not ended with a contract.
func (b *Bidding) Contract() (Contract, bool) {
	if !b.HasContract() {
		return Contract{}, false
	}
	idx := b.lastBidIndex()
	doubling := Undoubled
	for i := idx + 1; i < len(b.calls); i++ {
		switch b.calls[i].call.Type {
		case CallDouble:
			doubling = Doubled
		case CallRedouble:
			doubling = Redoubled
		}
	}
	return Contract{Bid: b.calls[idx].call.Bid, Doubling: doubling}, true
}

// Declarer returns the declaring position and true, or false if the
// auction has not ended with a contract. The declarer is the first member
// of the winning partnership to have named the final strain.
func (b *Bidding) Declarer() (position.Position, bool) {
	contract, ok := b.Contract()
	if !ok {
		return 0, false
	}
	winningSide := position.PartnershipOf(b.calls[b.lastBidIndex()].position)
	for _, e := range b.calls {
		if e.call.Type != CallBid {
			continue
		}
		if e.call.Bid.Strain != contract.Bid.Strain {
			continue
		}
		if position.PartnershipOf(e.position) != winningSide {
			continue
		}
		return e.position, true
	}
	return 0, false
}
