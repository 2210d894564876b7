package cardserver

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/mental-bridge/bridge/cardserver/peerproxy"
)

// StreamNetwork adapts a peerproxy.Proxy's per-peer byte streams into the
// NetworkLayer the cryptographic Core needs, for nodes that dial each
// other directly over the length-prefixed peer wire instead of routing
// through package transport's HTTP rounds. Each exchange in a round is a
// single message per peer, matching how Proxy delivers one payload per
// Stream.deliver call, so one bounded Read drains exactly one message.
type StreamNetwork struct {
	selfOrder byte
	proxy     *peerproxy.Proxy
	order     []byte // every peer order including self, ascending

	mu  sync.Mutex
	buf []byte
}

// NewStreamNetwork builds a NetworkLayer over proxy for selfOrder among
// the given peer orders (which must include selfOrder).
func NewStreamNetwork(selfOrder byte, peerOrders []byte, proxy *peerproxy.Proxy) *StreamNetwork {
	order := append([]byte(nil), peerOrders...)
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &StreamNetwork{selfOrder: selfOrder, proxy: proxy, order: order, buf: make([]byte, 1<<20)}
}

func (n *StreamNetwork) Rank() int      { return int(n.selfOrder) }
func (n *StreamNetwork) PeerCount() int { return len(n.order) }

// Broadcast sends data from root to every other peer and returns root's
// value, blocking until every peer (including the caller, if not root)
// has exchanged its message for the round.
func (n *StreamNetwork) Broadcast(data []byte, root int) ([]byte, error) {
	if byte(root) == n.selfOrder {
		for _, peer := range n.order {
			if peer == n.selfOrder {
				continue
			}
			if _, err := n.proxy.Stream(peer).Write(data); err != nil {
				return nil, fmt.Errorf("cardserver: streamnetwork: broadcasting to peer %d: %w", peer, err)
			}
		}
		return data, nil
	}
	return n.readFrom(byte(root))
}

// AllToAll exchanges one message per peer, returning the results indexed
// by peer order.
func (n *StreamNetwork) AllToAll(data []byte) ([][]byte, error) {
	recv := make([][]byte, len(n.order))
	for _, root := range n.order {
		r, err := n.Broadcast(data, int(root))
		if err != nil {
			return nil, err
		}
		recv[root] = r
	}
	return recv, nil
}

func (n *StreamNetwork) readFrom(peer byte) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	count, err := n.proxy.Stream(peer).Read(n.buf)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("cardserver: streamnetwork: peer %d closed its stream", peer)
		}
		return nil, fmt.Errorf("cardserver: streamnetwork: reading from peer %d: %w", peer, err)
	}
	out := make([]byte, count)
	copy(out, n.buf[:count])
	return out, nil
}
