package cardserver

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

// Suite is the cyclic group used for the commutative-encryption shuffle.
// Ed25519 is the curve the teacher's deck package uses for the same
// construction.
var Suite = suites.MustFind("Ed25519")

// NetworkLayer is the all-to-all / broadcast primitive the cryptographic
// core needs from the peer transport. It is satisfied by an adapter over
// peerproxy.Proxy plus messaging/transport in production, and by an
// in-process fake in tests.
type NetworkLayer interface {
	// Broadcast sends data from root to every peer and returns root's
	// value to everyone, including root itself.
	Broadcast(data []byte, root int) ([]byte, error)
	// AllToAll exchanges one value per peer; the result is indexed by
	// peer order.
	AllToAll(data []byte) ([][]byte, error)
	// Rank is this node's own peer order.
	Rank() int
	// PeerCount is the total number of card-servers participating,
	// including this one.
	PeerCount() int
}

// Core implements the deck-preparation, group-key-generation, shuffle,
// draw and reveal protocols of spec.md §4.6 over a fixed 52-card deck,
// generalizing the teacher's domain/deck.Deck (there keyed on a
// sequential draw counter for two-card poker hands) to arbitrary card
// indices so that each bridge position's 13-card block can be drawn and
// individual cards revealed out of order.
type Core struct {
	DeckSize int // always 52 in production; configurable for tests
	network  NetworkLayer

	cardCollection []kyber.Point // identity-encoded deck: cardCollection[i] represents card type i
	encryptedDeck  []kyber.Point // the current shuffled, jointly-encrypted deck
	secretKey      kyber.Scalar  // this peer's per-shuffle secret exponent
}

// NewCore constructs a cryptographic core for deckSize cards (52 for a
// standard deal) driven over network.
func NewCore(deckSize int, network NetworkLayer) *Core {
	return &Core{DeckSize: deckSize, network: network}
}

// PrepareDeck runs the deck-preparation protocol: every card index gets a
// group element generated jointly by all peers (spec.md's "group key
// generation"), so that no single peer knows the discrete log relating
// card identities to group elements.
func (c *Core) PrepareDeck() error {
	elems := make([]kyber.Point, c.DeckSize)
	for i := 0; i < c.DeckSize; i++ {
		elem, err := c.generateRandomElement()
		if err != nil {
			return fmt.Errorf("cardserver: prepare deck: card %d: %w", i, err)
		}
		elems[i] = elem
	}
	c.cardCollection = elems
	return nil
}

// generateRandomElement produces one group element that is the sum of a
// contribution from every peer, none of whom individually knows its
// discrete log. Grounded on the teacher's Deck.generateRandomElement:
// each peer raises its (g, h) pair to a private lambda and proves
// discrete-log equality of the result with proveDLRep; every other
// peer's proof is checked with verifyDLRep before the hPrime
// contributions are summed.
func (c *Core) generateRandomElement() (kyber.Point, error) {
	g := Suite.Point().Mul(Suite.Scalar().Pick(Suite.RandomStream()), nil)
	h := Suite.Point().Mul(Suite.Scalar().Pick(Suite.RandomStream()), nil)
	for g.Equal(h) {
		h = Suite.Point().Mul(Suite.Scalar().Pick(Suite.RandomStream()), nil)
	}
	lambda := Suite.Scalar().Pick(Suite.RandomStream())
	gPrime := Suite.Point().Mul(lambda, g)
	hPrime := Suite.Point().Mul(lambda, h)

	gValues, err := c.allToAllPoint(g)
	if err != nil {
		return nil, err
	}
	gPrimeValues, err := c.allToAllPoint(gPrime)
	if err != nil {
		return nil, err
	}
	hValues, err := c.allToAllPoint(h)
	if err != nil {
		return nil, err
	}
	proofData, err := proveDLRep(dlRepWitness{Lambda: lambda}, dlRepStatement{G: g, H: h, GPrime: gPrime, HPrime: hPrime})
	if err != nil {
		return nil, err
	}
	proofValues, err := c.allToAllBytes(proofData)
	if err != nil {
		return nil, err
	}
	hPrimeValues, err := c.allToAllPoint(hPrime)
	if err != nil {
		return nil, err
	}

	for i := range hPrimeValues {
		if i == c.network.Rank() {
			continue
		}
		stmt := dlRepStatement{G: gValues[i], H: hValues[i], GPrime: gPrimeValues[i], HPrime: hPrimeValues[i]}
		if err := verifyDLRep(proofValues[i], stmt); err != nil {
			return nil, fmt.Errorf("cardserver: peer %d: %w", i, err)
		}
	}

	sum := hPrimeValues[0].Clone()
	for i := 1; i < len(hPrimeValues); i++ {
		sum = Suite.Point().Add(sum, hPrimeValues[i])
	}
	return sum, nil
}

func (c *Core) allToAllBytes(data []byte) ([][]byte, error) {
	return c.network.AllToAll(data)
}

// Shuffle runs the re-encryption shuffle protocol: each peer, in turn,
// picks a fresh secret exponent and permutation, multiplies every card by
// its exponent and reorders the deck, then broadcasts the result for the
// next peer to repeat. After all peers have gone once the deck is
// jointly re-encrypted and permuted such that no single peer knows the
// resulting order.
func (c *Core) Shuffle() error {
	deck := make([]kyber.Point, len(c.cardCollection))
	copy(deck, c.cardCollection)

	for peer := 0; peer < c.network.PeerCount(); peer++ {
		if peer == c.network.Rank() {
			x := Suite.Scalar().Pick(Suite.RandomStream())
			c.secretKey = x
			perm := permutation(len(deck))
			reordered := make([]kyber.Point, len(deck))
			for i, src := range perm {
				reordered[i] = Suite.Point().Mul(x, deck[src])
			}
			deck = reordered
		}
		broadcast, err := c.broadcastPoints(deck, peer)
		if err != nil {
			return fmt.Errorf("cardserver: shuffle round %d: %w", peer, err)
		}
		deck = broadcast
	}
	c.encryptedDeck = deck
	return nil
}

// Draw reveals the card at the given deck index to drawer only. Every
// other peer divides their encryption key out of the card's ciphertext in
// turn (round-robin starting from peer 0); the drawer performs the final
// division and matches the result against the known card collection.
func (c *Core) Draw(index int, drawer int) (int, error) {
	if index < 0 || index >= len(c.encryptedDeck) {
		return 0, fmt.Errorf("cardserver: draw: index %d out of range", index)
	}
	cipher := c.encryptedDeck[index].Clone()
	for peer := 0; peer < c.network.PeerCount(); peer++ {
		if peer != drawer {
			inv := Suite.Scalar().Inv(c.secretKey)
			if peer == c.network.Rank() {
				cipher = Suite.Point().Mul(inv, cipher)
			}
		}
		next, err := c.broadcastPoint(cipher, peer)
		if err != nil {
			return 0, fmt.Errorf("cardserver: draw: round %d: %w", peer, err)
		}
		cipher = next
	}
	if c.network.Rank() != drawer {
		return 0, nil
	}
	inv := Suite.Scalar().Inv(c.secretKey)
	cipher = Suite.Point().Mul(inv, cipher)
	for i, elem := range c.cardCollection {
		if elem.Equal(cipher) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("cardserver: draw: card at index %d not found in collection", index)
}

// Reveal broadcasts a card type already known to holder (from a prior
// Draw) to every peer, completing the spec's "reveal" operation.
func (c *Core) Reveal(holder int, cardType int) (int, error) {
	var payload []byte
	if c.network.Rank() == holder {
		payload = []byte(fmt.Sprintf("%d", cardType))
	}
	recv, err := c.network.Broadcast(payload, holder)
	if err != nil {
		return 0, fmt.Errorf("cardserver: reveal: %w", err)
	}
	var out int
	if _, err := fmt.Sscanf(string(recv), "%d", &out); err != nil {
		return 0, fmt.Errorf("cardserver: reveal: malformed broadcast: %w", err)
	}
	return out, nil
}

func (c *Core) allToAllPoint(p kyber.Point) ([]kyber.Point, error) {
	data, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	resp, err := c.network.AllToAll(data)
	if err != nil {
		return nil, err
	}
	out := make([]kyber.Point, len(resp))
	for i, raw := range resp {
		out[i] = Suite.Point()
		if err := out[i].UnmarshalBinary(raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Core) broadcastPoint(p kyber.Point, root int) (kyber.Point, error) {
	pts, err := c.broadcastPoints([]kyber.Point{p}, root)
	if err != nil {
		return nil, err
	}
	return pts[0], nil
}

func (c *Core) broadcastPoints(pts []kyber.Point, root int) ([]kyber.Point, error) {
	var payload []byte
	if c.network.Rank() == root {
		raw := make([][]byte, len(pts))
		for i, p := range pts {
			b, err := p.MarshalBinary()
			if err != nil {
				return nil, err
			}
			raw[i] = b
		}
		var err error
		payload, err = json.Marshal(raw)
		if err != nil {
			return nil, err
		}
	}
	recv, err := c.network.Broadcast(payload, root)
	if err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := json.Unmarshal(recv, &raw); err != nil {
		return nil, err
	}
	out := make([]kyber.Point, len(raw))
	for i, b := range raw {
		out[i] = Suite.Point()
		if err := out[i].UnmarshalBinary(b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func permutation(size int) []int {
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	rand.Shuffle(size, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm
}
