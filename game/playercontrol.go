package game

import (
	"context"

	"github.com/mental-bridge/bridge/bridge/bidding"
)

// PlayerControl decides what a single seat does at its turn. Production
// nodes implement it by relaying to a connected player's messaging
// session; tests and bots implement it directly.
type PlayerControl interface {
	// Call is asked for a bid whenever it is this seat's turn during the
	// auction; ctx is cancelled if the deal ends before a decision
	// arrives.
	Call(ctx context.Context, allowed bidding.Bidding) (bidding.Call, error)
	// Play is asked for the index (into the 13-card hand) of the card to
	// play whenever it is this seat's turn during the play.
	Play(ctx context.Context, allowedIndices []int) (int, error)
}

// ChannelControl relays decisions made elsewhere (typically a messaging
// handler receiving a player's command) onto channels a running deal
// waits on.
type ChannelControl struct {
	Calls chan bidding.Call
	Plays chan int
}

// NewChannelControl creates a control backed by unbuffered channels.
func NewChannelControl() *ChannelControl {
	return &ChannelControl{Calls: make(chan bidding.Call), Plays: make(chan int)}
}

func (c *ChannelControl) Call(ctx context.Context, _ bidding.Bidding) (bidding.Call, error) {
	select {
	case call := <-c.Calls:
		return call, nil
	case <-ctx.Done():
		return bidding.Call{}, ctx.Err()
	}
}

func (c *ChannelControl) Play(ctx context.Context, _ []int) (int, error) {
	select {
	case idx := <-c.Plays:
		return idx, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// PassControl always passes during the auction and plays the first
// allowed card, useful for filling empty seats in tests and for a
// non-competing dummy hand once the declarer is controlling it.
type PassControl struct{}

func (PassControl) Call(ctx context.Context, _ bidding.Bidding) (bidding.Call, error) {
	return bidding.PassCall(), nil
}

func (PassControl) Play(ctx context.Context, allowedIndices []int) (int, error) {
	if len(allowedIndices) == 0 {
		return 0, context.Canceled
	}
	return allowedIndices[0], nil
}
