package messaging

import (
	"context"
	"fmt"
	"sync"
)

// Queue dispatches incoming envelopes to the Handler registered for
// their command name, serially, in arrival order. It is the node's
// single point of entry for peer and player messages, so that handlers
// never need their own locking against concurrent delivery.
type Queue struct {
	mu       sync.Mutex
	handlers map[string]Handler
	incoming chan queuedEnvelope
	done     chan struct{}
}

type queuedEnvelope struct {
	env   Envelope
	reply chan queuedReply
}

type queuedReply struct {
	value any
	err   error
}

// NewQueue creates a message queue with the given inbound buffer size.
func NewQueue(buffer int) *Queue {
	q := &Queue{
		handlers: make(map[string]Handler),
		incoming: make(chan queuedEnvelope, buffer),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Register installs the handler for a command name, replacing any
// previous registration.
func (q *Queue) Register(command string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[command] = h
}

// Dispatch enqueues env for handling and blocks until its handler
// returns or ctx is done.
func (q *Queue) Dispatch(ctx context.Context, env Envelope) (any, error) {
	qe := queuedEnvelope{env: env, reply: make(chan queuedReply, 1)}
	select {
	case q.incoming <- qe:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, fmt.Errorf("messaging: queue closed")
	}
	select {
	case r := <-qe.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the dispatch loop. Envelopes already queued are dropped.
func (q *Queue) Close() {
	close(q.done)
}

func (q *Queue) run() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-q.done
		cancel()
	}()
	for {
		select {
		case qe := <-q.incoming:
			q.mu.Lock()
			h, ok := q.handlers[qe.env.Command]
			q.mu.Unlock()
			if !ok {
				qe.reply <- queuedReply{err: fmt.Errorf("messaging: no handler for command %q", qe.env.Command)}
				continue
			}
			value, err := h.HandleMessage(ctx, qe.env)
			qe.reply <- queuedReply{value: value, err: err}
		case <-q.done:
			return
		}
	}
}
