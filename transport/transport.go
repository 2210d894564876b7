// Package transport implements the peer-to-peer communication primitives
// the bridge node's mental-card protocol and peer command sender run
// over: broadcast (one-to-all) and all-to-all, each with an implicit
// barrier, built on plain HTTP rather than the ZeroMQ router/dealer
// sockets spec.md's wire section describes, since nothing in the
// retrieved examples links a ZeroMQ binding. Grounded on the teacher's
// network.Peer, generalized from a fixed consensus rank to the mental-
// card protocol's peer order and carrying a logical clock per round so
// stale retries from a previous round are rejected.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"
)

// Transport is one node's endpoint in the peer set: an HTTP server that
// receives broadcast rounds from other nodes, and a client used to send
// them.
type Transport struct {
	Order     uint8
	Addresses map[uint8]string
	clock     uint64
	server    *http.Server
	handler   *roundHandler
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates and starts a transport endpoint. The HTTP server begins
// serving l in a background goroutine immediately.
func New(order uint8, addresses map[uint8]string, l net.Listener, timeout time.Duration, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	handler := &roundHandler{
		contentChannel: make(chan []byte),
		errChannel:     make(chan error),
	}
	t := &Transport{
		Order:     order,
		Addresses: copyAddresses(addresses),
		server:    &http.Server{Addr: addresses[order], Handler: handler},
		handler:   handler,
		timeout:   timeout,
		logger:    logger,
	}
	go func() {
		if err := t.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("transport server stopped", "error", err)
		}
	}()
	return t
}

// Close shuts down the HTTP server.
func (t *Transport) Close() error {
	return t.server.Shutdown(context.Background())
}

// Rank reports this node's peer order, satisfying cardserver.NetworkLayer
// (whose method is named Rank there for symmetry with the teacher's
// consensus.NetworkLayer).
func (t *Transport) Rank() int { return int(t.Order) }

// PeerCount reports the number of peers in the round, including self.
func (t *Transport) PeerCount() int { return len(t.Addresses) }

// Broadcast sends bufferSend from root to every peer and returns root's
// value to every caller, including root, with an implicit barrier so no
// peer proceeds before all have received the value.
func (t *Transport) Broadcast(bufferSend []byte, root int) ([]byte, error) {
	recv, err := t.broadcastNoBarrier(bufferSend, uint8(root))
	if err != nil {
		return nil, err
	}
	if _, err := t.AllToAll(nil); err != nil {
		return nil, fmt.Errorf("transport: barrier: %w", err)
	}
	return recv, nil
}

// AllToAll exchanges one value per peer; the result is indexed by peer
// order.
func (t *Transport) AllToAll(bufferSend []byte) ([][]byte, error) {
	var orders []uint8
	for o := range t.Addresses {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i] < orders[j] })

	recv := make([][]byte, len(t.Addresses))
	for _, o := range orders {
		r, err := t.broadcastNoBarrier(bufferSend, o)
		if err != nil {
			return nil, err
		}
		recv[o] = r
	}
	return recv, nil
}

func (t *Transport) broadcastNoBarrier(bufferSend []byte, root uint8) ([]byte, error) {
	t.clock++
	if root == t.Order {
		client := http.Client{Timeout: t.timeout}
		for order, addr := range t.Addresses {
			if order == t.Order {
				continue
			}
			if err := t.postOne(&client, addr, order, bufferSend); err != nil {
				return nil, err
			}
		}
		return bufferSend, nil
	}
	return t.receiveOne(root)
}

func (t *Transport) postOne(client *http.Client, addr string, receiver uint8, data []byte) error {
	req, err := http.NewRequest(http.MethodPost, "http://"+addr, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("X-Clock", strconv.FormatUint(t.clock, 10))
	req.Header.Set("X-Sender-Order", strconv.Itoa(int(t.Order)))
	req.Header.Set("X-Receiver-Order", strconv.Itoa(int(receiver)))

	start := time.Now()
	for {
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == http.StatusAccepted {
			return resp.Body.Close()
		}
		if err == nil {
			resp.Body.Close()
		}
		if t.timeout > 0 && time.Since(start) > t.timeout {
			return fmt.Errorf("transport: post to peer %d timed out: %w", receiver, err)
		}
		t.logger.Warn("transport retrying post", "peer", receiver, "error", err)
		time.Sleep(200 * time.Millisecond)
	}
}

func (t *Transport) receiveOne(root uint8) ([]byte, error) {
	t.handler.expectClock.Store(t.clock)
	t.handler.active.Store(true)
	defer t.handler.active.Store(false)

	var timeoutCh <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case recv := <-t.handler.contentChannel:
		return recv, nil
	case err := <-t.handler.errChannel:
		return nil, err
	case <-timeoutCh:
		return nil, fmt.Errorf("transport: waiting for broadcast from peer %d timed out", root)
	}
}

type roundHandler struct {
	active         atomic.Bool
	expectClock    atomic.Uint64
	contentChannel chan []byte
	errChannel     chan error
}

func (h *roundHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if !h.active.Load() {
		rw.WriteHeader(http.StatusNotAcceptable)
		return
	}
	clockHeader := req.Header.Get("X-Clock")
	clock, err := strconv.ParseUint(clockHeader, 10, 64)
	if err != nil || clock != h.expectClock.Load() {
		rw.WriteHeader(http.StatusNotAcceptable)
		return
	}
	content, err := io.ReadAll(req.Body)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		h.errChannel <- fmt.Errorf("transport: reading broadcast body: %w", err)
		return
	}
	h.contentChannel <- content
	rw.WriteHeader(http.StatusAccepted)
}

// CreateListeners opens n localhost listeners on ephemeral ports, useful
// for tests that need a full peer set without fixed addresses.
func CreateListeners(n int) (map[uint8]net.Listener, map[uint8]string) {
	listeners := make(map[uint8]net.Listener, n)
	addresses := make(map[uint8]string, n)
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			panic(err)
		}
		listeners[uint8(i)] = l
		addresses[uint8(i)] = l.Addr().String()
	}
	return listeners, addresses
}

func copyAddresses(m map[uint8]string) map[uint8]string {
	out := make(map[uint8]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
