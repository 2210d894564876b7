// Package trick implements the single-trick state machine: four cards
// played in rotation from a fixed leader, won by the highest trump or else
// the highest card following the lead suit.
package trick

import (
	"github.com/mental-bridge/bridge/bridge/card"
)

// Ternary is a three-valued logic result used for predicates that may be
// indeterminate while a hand still holds unrevealed cards.
type Ternary int

const (
	Unknown Ternary = iota
	Yes
	No
)

// Hand is the subset of deal.Hand's surface the trick state machine needs.
// It is defined here (rather than imported from package deal) so trick has
// no dependency on deal; deal.Hand satisfies this interface.
type Hand interface {
	// CardAt returns the card at index i and true if i is a legal index.
	CardAt(i int) (card.Card, bool)
	// IsOutOfSuit reports, in three-valued logic, whether the hand holds no
	// more cards of suit s among its unplayed cards.
	IsOutOfSuit(s card.Suit) Ternary
}

// play records one (hand, card index) play in lead order.
type play struct {
	hand  Hand
	index int
}

// NCards is the number of plays in a completed trick.
const NCards = 4

// Trick is one trick of a deal: the four hands get turns in the order
// given at construction (leader first), playing at most one card each,
// under a fixed trump suit (or none, for a no-trump contract).
type Trick struct {
	hands    [NCards]Hand
	trump    card.Suit
	hasTrump bool
	plays    []play
}

// New starts a new trick. hands must list the four hands in the order
// they get turns, leader first.
func New(hands [NCards]Hand, trump card.Suit, hasTrump bool) *Trick {
	return &Trick{hands: hands, trump: trump, hasTrump: hasTrump}
}

// Leader returns the hand that leads this trick.
func (t *Trick) Leader() Hand {
	return t.hands[0]
}

// NumberOfCardsPlayed returns how many cards have been played to this trick.
func (t *Trick) NumberOfCardsPlayed() int {
	return len(t.plays)
}

// IsCompleted reports whether four cards have been played.
func (t *Trick) IsCompleted() bool {
	return len(t.plays) == NCards
}

// HandInTurn returns the hand whose turn it is to play, and true, or nil
// and false if the trick is completed.
func (t *Trick) HandInTurn() (Hand, bool) {
	if t.IsCompleted() {
		return nil, false
	}
	return t.hands[len(t.plays)], true
}

// leadSuit returns the suit of the card led, and true, or false if no
// card has been played yet.
func (t *Trick) leadSuit() (card.Suit, bool) {
	if len(t.plays) == 0 {
		return 0, false
	}
	c, ok := t.hands[0].CardAt(t.plays[0].index)
	if !ok {
		return 0, false
	}
	typ, known := c.Type()
	if !known {
		return 0, false
	}
	return typ.Suit, true
}

// CanPlay reports whether hand h may play the card at index idx: h must
// be the hand whose turn it is, the card must have a known type, and
// either the trick has no cards yet, the card follows suit, or the hand
// is not known-not-out of the lead suit (known out, or indeterminate).
func (t *Trick) CanPlay(h Hand, idx int) bool {
	inTurn, ok := t.HandInTurn()
	if !ok || inTurn != h {
		return false
	}
	c, ok := h.CardAt(idx)
	if !ok {
		return false
	}
	typ, known := c.Type()
	if !known {
		return false
	}
	lead, hasLead := t.leadSuit()
	if !hasLead {
		return true
	}
	if typ.Suit == lead {
		return true
	}
	return h.IsOutOfSuit(lead) != No
}

// Play attempts to play the card at idx from h. It returns false without
// any side effect if the trick is already completed or the play is not
// legal per CanPlay.
func (t *Trick) Play(h Hand, idx int) bool {
	if t.IsCompleted() {
		return false
	}
	if !t.CanPlay(h, idx) {
		return false
	}
	t.plays = append(t.plays, play{hand: h, index: idx})
	return true
}

// CardAt returns the card played by hand h, and true, or false if h
// hasn't played to this trick (yet, or at all).
func (t *Trick) CardAt(h Hand) (card.Card, bool) {
	for _, p := range t.plays {
		if p.hand == h {
			return p.hand.CardAt(p.index)
		}
	}
	return card.Card{}, false
}

// NthCard returns the card played at the nth position in lead order
// (0-indexed), the hand that played it, and true; or false if fewer than
// n+1 cards have been played.
func (t *Trick) NthCard(n int) (card.Card, Hand, bool) {
	if n < 0 || n >= len(t.plays) {
		return card.Card{}, nil, false
	}
	c, _ := t.plays[n].hand.CardAt(t.plays[n].index)
	return c, t.plays[n].hand, true
}

// Winner returns the hand that won the trick, and true, once the trick is
// completed: the highest trump if any trump was played, else the highest
// card of the lead suit.
func (t *Trick) Winner() (Hand, bool) {
	if !t.IsCompleted() {
		return nil, false
	}
	lead, _ := t.leadSuit()
	bestIdx := 0
	bestType, _ := t.plays[0].hand.CardAt(t.plays[0].index)
	bestTyp, _ := bestType.Type()
	bestIsTrump := t.hasTrump && bestTyp.Suit == t.trump
	for i := 1; i < len(t.plays); i++ {
		c, _ := t.plays[i].hand.CardAt(t.plays[i].index)
		typ, _ := c.Type()
		isTrump := t.hasTrump && typ.Suit == t.trump
		isLead := typ.Suit == lead
		switch {
		case isTrump && !bestIsTrump:
			bestIdx, bestTyp, bestIsTrump = i, typ, true
		case isTrump == bestIsTrump && isTrump && typ.Rank > bestTyp.Rank:
			bestIdx, bestTyp = i, typ
		case !isTrump && !bestIsTrump && isLead && typ.Rank > bestTyp.Rank:
			bestIdx, bestTyp = i, typ
		}
	}
	return t.plays[bestIdx].hand, true
}
