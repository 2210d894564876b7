package cardserver

import "github.com/mental-bridge/bridge/bridge/card"

// Command names exchanged over the card-server's control socket, per
// spec.md §4.6.
const (
	CmdInit      = "init"
	CmdShuffle   = "shuffle"
	CmdDraw      = "draw"
	CmdReveal    = "reveal"
	CmdRevealAll = "revealall"
)

// InitRequest assigns this card-server its order among peers and the
// peers it will exchange protocol messages with. Order determines both
// turn order in the shuffle/draw rounds and the node's position in the
// peer-proxy's routing table.
type InitRequest struct {
	Order uint8       `json:"order"`
	Peers []PeerEntry `json:"peers"`
}

// ShuffleRequest asks the card-server to run (or join, if already
// started by a peer) the deck-preparation and shuffle protocol. It
// carries no fields; the reply reports completion.
type ShuffleRequest struct{}

// DrawRequest asks the card-server to reveal the cards at the given deck
// indices to the peer identified by Drawer only.
type DrawRequest struct {
	Drawer uint8 `json:"drawer"`
	Cards  []int `json:"cards"`
}

// DrawReply reports the drawn card types. An entry is nil for an index
// this node was not the drawer for (every peer still runs the protocol
// round, but only the drawer learns the result).
type DrawReply struct {
	Cards map[int]*card.Type `json:"cards"`
}

// RevealRequest asks every peer but req.Holder to participate in req.
// Holder's own Draw round for the given deck indices, without learning
// their identity: the reveal(order=Holder) side of the initial-hand
// exchange, run in lockstep with Holder's own Draw call for the same
// indices. It carries no payload on reply, per spec.md §4.6.
type RevealRequest struct {
	Holder uint8 `json:"holder"`
	Cards  []int `json:"cards"`
}

// RevealAllRequest composes Draw (by the card's owning position) with
// Reveal (to everyone), the "revealall" operation spec.md describes for
// dummy and claim resolution.
type RevealAllRequest struct {
	Owner uint8 `json:"owner"`
	Cards []int `json:"cards"`
}

// RevealAllReply carries the revealed card types, indexed by deck index.
type RevealAllReply struct {
	Cards map[int]card.Type `json:"cards"`
}
