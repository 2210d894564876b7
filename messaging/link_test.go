package messaging

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestLinkListenerRoundTrip(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	q := NewQueue(4)
	q.Register("double", FuncHandler(func(ctx context.Context, env Envelope) (any, error) {
		var p pingPayload
		if err := DecodePayload(env, &p); err != nil {
			return nil, err
		}
		return p.N * 2, nil
	}))
	lst := NewListener(l, q)
	defer lst.Close()
	defer q.Close()

	link := NewLink(l.Addr().String(), time.Second)
	payload, err := Encode("double", pingPayload{N: 21})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := link.Send(ctx, payload)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	env, err := Decode(reply)
	if err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	var n int
	if err := DecodePayload(env, &n); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}

func TestLinkListenerReportsHandlerError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	q := NewQueue(4)
	lst := NewListener(l, q)
	defer lst.Close()
	defer q.Close()

	link := NewLink(l.Addr().String(), time.Second)
	payload, _ := Encode("unregistered", pingPayload{N: 1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := link.Send(ctx, payload)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	env, err := Decode(reply)
	if err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	var r Reply
	if err := DecodePayload(env, &r); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if r.Status != ReplyError {
		t.Fatalf("expected an error reply for an unregistered command, got %q", r.Status)
	}
}

func TestLinkSendToUnreachableAddrErrors(t *testing.T) {
	link := NewLink("127.0.0.1:1", 100*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := link.Send(ctx, []byte("x")); err == nil {
		t.Fatal("expected an error dialing an unreachable address")
	}
}
