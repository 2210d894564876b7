package deal

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/trick"
)

func fullHands(t *testing.T) map[position.Position]*Hand {
	t.Helper()
	deck := card.Deck()
	hands := make(map[position.Position]*Hand)
	for i, pos := range position.All {
		var cards [NCardsInHand]card.Card
		for j := 0; j < NCardsInHand; j++ {
			cards[j] = card.Known(deck[i*NCardsInHand+j])
		}
		hands[pos] = NewHand(cards)
	}
	return hands
}

func TestNewRequiresAllFourHands(t *testing.T) {
	hands := fullHands(t)
	delete(hands, position.West)
	if _, err := New(uuid.New(), position.North, Vulnerability{}, hands); err == nil {
		t.Fatal("expected an error when a position has no hand")
	}
}

func TestNewStartsInBiddingPhase(t *testing.T) {
	d, err := New(uuid.New(), position.North, Vulnerability{}, fullHands(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Phase() != PhaseBidding {
		t.Fatalf("expected bidding phase, got %v", d.Phase())
	}
	if _, ok := d.CurrentTrick(); ok {
		t.Fatal("expected no trick before any has started")
	}
}

func TestAllowedCardsFollowsSuit(t *testing.T) {
	hands := map[position.Position]*Hand{
		position.North: knownHand(card.Type{Rank: card.King, Suit: card.Hearts}, card.Type{Rank: card.Two, Suit: card.Clubs}),
		position.East:  knownHand(card.Type{Rank: card.Ace, Suit: card.Hearts}, card.Type{Rank: card.Three, Suit: card.Clubs}),
		position.South: knownHand(card.Type{Rank: card.Queen, Suit: card.Hearts}, card.Type{Rank: card.Four, Suit: card.Clubs}),
		position.West:  knownHand(card.Type{Rank: card.Jack, Suit: card.Hearts}, card.Type{Rank: card.Five, Suit: card.Clubs}),
	}
	d, err := New(uuid.New(), position.North, Vulnerability{}, hands)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	order := [trick.NCards]trick.Hand{hands[position.North], hands[position.East], hands[position.South], hands[position.West]}
	tr := d.StartTrick(order, card.Spades, true)
	if !tr.Play(hands[position.North], 0) {
		t.Fatal("lead rejected")
	}
	allowed := AllowedCards(hands[position.East], tr)
	if len(allowed) != 1 || allowed[0] != 0 {
		t.Fatalf("expected east to be forced to follow with index 0, got %v", allowed)
	}
}

func TestVulnerabilityByPartnership(t *testing.T) {
	v := Vulnerability{NorthSouth: true}
	if !v.IsVulnerable(position.North) || !v.IsVulnerable(position.South) {
		t.Fatal("expected north-south to be vulnerable")
	}
	if v.IsVulnerable(position.East) || v.IsVulnerable(position.West) {
		t.Fatal("expected east-west to not be vulnerable")
	}
}
