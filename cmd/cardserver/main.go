// Command cardserver runs a standalone mental-card protocol peer: it
// reads its peer set from the JSON file named by -peers, listens for the
// other card-servers over transport.Transport, runs Init and one
// Shuffle, and exits. It does not serve draw, reveal or revealall
// commands.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/mental-bridge/bridge/cardserver"
	"github.com/mental-bridge/bridge/transport"
)

func main() {
	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))

	order := flag.Uint("order", 0, "this card-server's peer order")
	peersFile := flag.String("peers", "", "path to a JSON array of cardserver.PeerEntry describing every peer")
	listen := flag.String("listen", "localhost:0", "address to listen on")
	flag.Parse()

	peers, err := loadPeers(*peersFile)
	if err != nil {
		logger.Error("loading peers", "error", err)
		os.Exit(1)
	}

	addresses := make(map[uint8]string, len(peers))
	for i, p := range peers {
		addresses[uint8(i)] = p.Endpoint
	}
	l, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Error("listening", "error", err)
		os.Exit(1)
	}
	pterm.Info.Printfln("card-server %d listening on %s", *order, l.Addr().String())

	tr := transport.New(uint8(*order), addresses, l, 30*time.Second, logger)
	defer tr.Close()

	server := cardserver.NewServer()
	if err := server.Init(cardserver.InitRequest{Order: uint8(*order), Peers: peers}, tr); err != nil {
		logger.Error("initializing server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := server.Shuffle(ctx, cardserver.ShuffleRequest{}); err != nil {
		logger.Error("shuffle failed", "error", err)
		os.Exit(1)
	}
	pterm.Success.Println("shuffle completed")
}

func loadPeers(path string) ([]cardserver.PeerEntry, error) {
	if path == "" {
		return nil, fmt.Errorf("cardserver: -peers is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var peers []cardserver.PeerEntry
	if err := json.Unmarshal(data, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}
