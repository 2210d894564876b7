package deal

import (
	"testing"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/trick"
)

func knownHand(types ...card.Type) *Hand {
	var cards [NCardsInHand]card.Card
	for i, t := range types {
		cards[i] = card.Known(t)
	}
	for i := len(types); i < NCardsInHand; i++ {
		cards[i] = card.Unknown()
	}
	return NewHand(cards)
}

func TestIsOutOfSuitKnownNo(t *testing.T) {
	h := knownHand(card.Type{Rank: card.Two, Suit: card.Hearts})
	if h.IsOutOfSuit(card.Hearts) != trick.No {
		t.Fatal("expected No: hand holds an unplayed heart")
	}
}

func TestIsOutOfSuitYesWhenAllKnownAndNoneMatch(t *testing.T) {
	var cards [NCardsInHand]card.Card
	for i := range cards {
		cards[i] = card.Known(card.Type{Rank: card.Two, Suit: card.Clubs})
	}
	h := NewHand(cards)
	if h.IsOutOfSuit(card.Hearts) != trick.Yes {
		t.Fatal("expected Yes: every unplayed card known and none is a heart")
	}
}

func TestIsOutOfSuitUnknownWhenUnrevealedCardsRemain(t *testing.T) {
	h := knownHand() // all 13 unknown
	if h.IsOutOfSuit(card.Hearts) != trick.Unknown {
		t.Fatal("expected Unknown: no cards revealed yet")
	}
}

func TestIsOutOfSuitIgnoresPlayedCards(t *testing.T) {
	h := knownHand(card.Type{Rank: card.Two, Suit: card.Hearts})
	for i := 1; i < NCardsInHand; i++ {
		if err := h.Reveal(i, card.Type{Rank: card.Two, Suit: card.Clubs}); err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
	}
	if err := h.MarkPlayed(0); err != nil {
		t.Fatalf("mark played: %v", err)
	}
	if h.IsOutOfSuit(card.Hearts) != trick.Yes {
		t.Fatal("expected Yes: the only heart has already been played")
	}
}

func TestRevealMismatchRejected(t *testing.T) {
	h := knownHand(card.Type{Rank: card.Two, Suit: card.Hearts})
	if err := h.Reveal(0, card.Type{Rank: card.Three, Suit: card.Hearts}); err == nil {
		t.Fatal("expected reveal to a different type to be rejected")
	}
}

func TestMarkPlayedTwiceRejected(t *testing.T) {
	h := knownHand(card.Type{Rank: card.Two, Suit: card.Hearts})
	if err := h.MarkPlayed(0); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := h.MarkPlayed(0); err == nil {
		t.Fatal("expected second mark-played to be rejected")
	}
}
