// Package deal implements the Hand and Deal aggregates: an ordered 13-card
// hand with played/revealed tracking, and the deal that ties four hands to
// a bidding auction and a sequence of tricks.
package deal

import (
	"fmt"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/trick"
)

// NCardsInHand is the number of cards dealt to each position.
const NCardsInHand = 13

// cardSlot is one position's worth of card bookkeeping: the card itself
// (possibly still unknown) and whether it has been played.
type cardSlot struct {
	card   card.Card
	played bool
}

// Hand is an ordered collection of 13 card references into the deal's
// deck. It implements trick.Hand.
type Hand struct {
	cards [NCardsInHand]cardSlot
}

// NewHand creates a hand from the 13 given cards. cards holds the
// initial (possibly unknown) card at each of the 13 positions, in the
// fixed deal order.
func NewHand(cards [NCardsInHand]card.Card) *Hand {
	h := &Hand{}
	for i, c := range cards {
		h.cards[i] = cardSlot{card: c}
	}
	return h
}

// CardAt returns the card at hand-relative index i and true, or the zero
// Card and false if i is out of range.
func (h *Hand) CardAt(i int) (card.Card, bool) {
	if i < 0 || i >= NCardsInHand {
		return card.Card{}, false
	}
	return h.cards[i].card, true
}

// IsPlayed reports whether the card at index i has already been played.
// Out-of-range indices report false.
func (h *Hand) IsPlayed(i int) bool {
	if i < 0 || i >= NCardsInHand {
		return false
	}
	return h.cards[i].played
}

// MarkPlayed marks the card at index i as played. It returns an error if
// the index is out of range or already played.
func (h *Hand) MarkPlayed(i int) error {
	if i < 0 || i >= NCardsInHand {
		return fmt.Errorf("deal: hand index %d out of range", i)
	}
	if h.cards[i].played {
		return fmt.Errorf("deal: card at index %d already played", i)
	}
	h.cards[i].played = true
	return nil
}

// RevealRequested checks that [from, to) is a valid range of hand
// indices and returns an error if it is not. It records no state: a Hand
// does not track which ranges have been requested, so it cannot tell a
// reveal in flight from one never requested.
//
// Completing the reveal is done per card via Reveal, since a mental card
// protocol reveals each card type at its own pace.
func (h *Hand) RevealRequested(from, to int) error {
	if from < 0 || to > NCardsInHand || from > to {
		return fmt.Errorf("deal: invalid reveal range [%d,%d)", from, to)
	}
	return nil
}

// Reveal fixes the type of the card at index i. It is a no-op (succeeds)
// if the card is already known with the same type, and an error if it is
// known with a different type.
func (h *Hand) Reveal(i int, t card.Type) error {
	if i < 0 || i >= NCardsInHand {
		return fmt.Errorf("deal: hand index %d out of range", i)
	}
	revealed, err := h.cards[i].card.Reveal(t)
	if err != nil {
		return err
	}
	h.cards[i].card = revealed
	return nil
}

// IsOutOfSuit reports, in three-valued logic, whether the hand holds no
// more cards of suit s among its unplayed cards: No if an unplayed card is
// known to be of suit s, Yes if every unplayed card is known and none is of
// suit s, Unknown if unplayed cards exist whose suit is not yet revealed
// and none of the known unplayed cards is of suit s.
func (h *Hand) IsOutOfSuit(s card.Suit) trick.Ternary {
	sawUnknown := false
	for _, slot := range h.cards {
		if slot.played {
			continue
		}
		typ, known := slot.card.Type()
		if !known {
			sawUnknown = true
			continue
		}
		if typ.Suit == s {
			return trick.No
		}
	}
	if sawUnknown {
		return trick.Unknown
	}
	return trick.Yes
}

// AllowedCards returns the indices of cards in h that may legally be
// played to trick t, given that it is h's turn. Cards already played are
// excluded. This is the AllowedCards helper referenced by the bridge
// control protocol's "get" snapshot (self.allowedCards).
func AllowedCards(h *Hand, t *trick.Trick) []int {
	var allowed []int
	for i, slot := range h.cards {
		if slot.played {
			continue
		}
		if t.CanPlay(h, i) {
			allowed = append(allowed, i)
		}
	}
	return allowed
}
