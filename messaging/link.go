// link.go adapts Queue to the network: a Listener accepts one connection
// per incoming call and dispatches it, while Link dials out and performs
// one request/reply exchange, giving game.PeerLink and cardserver's
// command surface a concrete transport to run over. Grounded on the same
// length-prefixed framing cardserver/peerproxy uses for the card-protocol
// wire, generalized here to carry the self-describing Envelope instead of
// raw cryptographic payloads.
package messaging

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

func writeFrame(w io.Writer, data []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Listener accepts connections on l, decodes one envelope per connection,
// dispatches it through Queue, and writes back a "reply" envelope: on
// success its payload is the handler's result as returned; on failure it
// is a Reply with status ReplyError and the error text.
type Listener struct {
	queue *Queue
	l     net.Listener
}

// NewListener starts serving l in a background goroutine, dispatching
// every accepted connection's envelope through queue.
func NewListener(l net.Listener, queue *Queue) *Listener {
	lst := &Listener{queue: queue, l: l}
	go lst.serve()
	return lst
}

func (lst *Listener) serve() {
	for {
		conn, err := lst.l.Accept()
		if err != nil {
			return
		}
		go lst.handle(conn)
	}
}

func (lst *Listener) handle(conn net.Conn) {
	defer conn.Close()
	payload, err := readFrame(conn)
	if err != nil {
		return
	}
	env, err := Decode(payload)
	if err != nil {
		writeFrame(conn, mustEncodeReply(Errorf("messaging: decoding envelope: %v", err)))
		return
	}
	value, err := lst.queue.Dispatch(context.Background(), env)
	if err != nil {
		writeFrame(conn, mustEncodeReply(Errorf("%v", err)))
		return
	}
	reply, encErr := Encode("reply", value)
	if encErr != nil {
		writeFrame(conn, mustEncodeReply(Errorf("messaging: encoding reply: %v", encErr)))
		return
	}
	writeFrame(conn, reply)
}

// Close stops accepting new connections.
func (lst *Listener) Close() error {
	return lst.l.Close()
}

// Link dials addr fresh for each Send, writes the given payload as a
// single frame, and returns the peer's single framed reply. It satisfies
// game.PeerLink.
type Link struct {
	Addr    string
	Timeout time.Duration
}

// NewLink constructs a Link to addr with the given dial/round timeout.
func NewLink(addr string, timeout time.Duration) *Link {
	return &Link{Addr: addr, Timeout: timeout}
}

func (lk *Link) Send(ctx context.Context, payload []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", lk.Addr, lk.Timeout)
	if err != nil {
		return nil, fmt.Errorf("messaging: dialing %s: %w", lk.Addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else if lk.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(lk.Timeout))
	}
	if err := writeFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("messaging: sending to %s: %w", lk.Addr, err)
	}
	reply, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("messaging: reading reply from %s: %w", lk.Addr, err)
	}
	return reply, nil
}

func mustEncodeReply(r Reply) []byte {
	data, err := Encode("reply", r)
	if err != nil {
		// Reply marshals trivially; a failure here means json itself is
		// broken, which no caller can recover from.
		panic(err)
	}
	return data
}
