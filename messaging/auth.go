package messaging

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Authenticator implements the challenge/response handshake spec.md
// requires before a peer or player connection is trusted: the challenger
// sends a random nonce, the peer signs it with its long-term key, and
// the challenger verifies the signature against the public key it holds
// on file for that identity. Grounded on the teacher's consensus package,
// which signs and verifies actions and votes the same way with
// crypto/ed25519.
type Authenticator struct {
	identity string
	priv     ed25519.PrivateKey
	trusted  map[string]ed25519.PublicKey
}

// NewAuthenticator constructs an authenticator for identity, signing
// challenges with priv and trusting the given peer public keys.
func NewAuthenticator(identity string, priv ed25519.PrivateKey, trusted map[string]ed25519.PublicKey) *Authenticator {
	return &Authenticator{identity: identity, priv: priv, trusted: trusted}
}

// GenerateKey creates a fresh ed25519 keypair for a node identity.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Challenge is a random nonce sent to a connecting peer.
type Challenge struct {
	Nonce []byte `json:"nonce"`
}

// Response is the peer's signature over a Challenge's nonce, plus the
// identity it claims.
type Response struct {
	Identity  string `json:"identity"`
	Signature []byte `json:"signature"`
}

// NewChallenge generates a fresh random nonce to send to a connecting
// peer.
func NewChallenge() (Challenge, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return Challenge{}, fmt.Errorf("messaging: generating challenge: %w", err)
	}
	return Challenge{Nonce: nonce}, nil
}

// Respond signs a challenge received from a peer, identifying this node.
func (a *Authenticator) Respond(c Challenge) Response {
	return Response{Identity: a.identity, Signature: ed25519.Sign(a.priv, c.Nonce)}
}

// Verify checks a peer's response to a challenge this node issued,
// returning the verified identity.
func (a *Authenticator) Verify(c Challenge, r Response) (string, error) {
	pub, ok := a.trusted[r.Identity]
	if !ok {
		return "", fmt.Errorf("messaging: no trusted key for identity %q", r.Identity)
	}
	if !ed25519.Verify(pub, c.Nonce, r.Signature) {
		return "", fmt.Errorf("messaging: signature verification failed for identity %q", r.Identity)
	}
	return r.Identity, nil
}
