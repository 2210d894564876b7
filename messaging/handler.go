package messaging

import "context"

// Handler reacts to one command. Implementations that need to block
// (waiting on another peer, or on the bridge engine's reentrancy guard)
// should do so through ctx so the queue can cancel them on shutdown.
type Handler interface {
	HandleMessage(ctx context.Context, env Envelope) (reply any, err error)
}

// FuncHandler adapts a plain function to Handler.
type FuncHandler func(ctx context.Context, env Envelope) (any, error)

func (f FuncHandler) HandleMessage(ctx context.Context, env Envelope) (any, error) {
	return f(ctx, env)
}
