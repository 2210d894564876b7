package game

import (
	"flag"
	"fmt"

	"github.com/mental-bridge/bridge/bridge/position"
)

// Config is one node's complete startup configuration, parsed from
// command-line flags the way the teacher's cmd package parses its own
// rank/address flags: plain flag.FlagSet, no external CLI framework.
type Config struct {
	Identity    string
	ListenAddr  string
	Position    position.Position
	PeerConfigs []PeerConfig
	RecordPath  string // empty disables persistent recording
}

// PeerConfig names one other node this node exchanges card-server and
// peer-command traffic with.
type PeerConfig struct {
	Identity string
	Position position.Position
	Addr     string
	PubKey   string // hex-encoded ed25519 public key
}

// ParseConfig parses args (normally os.Args[1:]) into a Config.
func ParseConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("bridgenode", flag.ContinueOnError)
	identity := fs.String("identity", "", "this node's player identity")
	listen := fs.String("listen", "localhost:0", "address to listen on for peer and player traffic")
	pos := fs.String("position", "", "seat this node plays: north, east, south or west")
	record := fs.String("record", "", "path to append deal recordings to (optional)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *identity == "" {
		return Config{}, fmt.Errorf("game: -identity is required")
	}
	p, err := parsePosition(*pos)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Identity:   *identity,
		ListenAddr: *listen,
		Position:   p,
		RecordPath: *record,
	}, nil
}

func parsePosition(s string) (position.Position, error) {
	switch s {
	case "north", "N":
		return position.North, nil
	case "east", "E":
		return position.East, nil
	case "south", "S":
		return position.South, nil
	case "west", "W":
		return position.West, nil
	default:
		return 0, fmt.Errorf("game: unknown position %q", s)
	}
}
