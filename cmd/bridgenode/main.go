// Command bridgenode runs one seat of a bridge deal: it starts the
// engine, wires it to a card manager and a score sheet, and drives deals
// to completion using each seat's configured player control.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/cardmanager/simple"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/game"
)

func main() {
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)

	cfg, err := game.ParseConfig(os.Args[1:])
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}

	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Bridge", pterm.FgLightBlue.ToStyle()),
	).Srender()
	if err == nil {
		pterm.Print(title)
	}
	pterm.Info.Printfln("node %q seated %s, listening on %s", cfg.Identity, cfg.Position, cfg.ListenAddr)

	var recorder game.Recorder
	if cfg.RecordPath != "" {
		fileRecorder, err := game.NewFileRecorder(cfg.RecordPath)
		if err != nil {
			logger.Error("opening recording file", "error", err)
			os.Exit(1)
		}
		recorder = fileRecorder
	} else {
		recorder = game.NewMemoryRecorder()
	}

	// A single-node four-hand demo: every seat is controlled locally and
	// the card manager trusts this process, matching spec.md's "all
	// peers trusted" branch of the protocol. A networked node wires
	// bridge/cardmanager/mental instead, over a dialed transport.Transport
	// per peer and a cardserver.Server driving the cryptographic rounds.
	cm := simple.New(true, localBroadcaster{})

	players := map[position.Position]game.PlayerControl{
		position.North: game.PassControl{},
		position.East:  game.PassControl{},
		position.South: game.PassControl{},
		position.West:  game.PassControl{},
	}
	players[cfg.Position] = game.NewChannelControl()

	g, err := game.New(game.UUIDGenerator{}, cm, players, recorder, logger)
	if err != nil {
		logger.Error("constructing game", "error", err)
		os.Exit(1)
	}
	for _, pos := range position.All {
		g.SetPlayer(pos, uuid.New())
	}

	pterm.Info.Println("starting deals; press Ctrl-C to stop")
	if err := g.Run(context.Background()); err != nil {
		logger.Error("game loop stopped", "error", err)
		os.Exit(1)
	}
}

// localBroadcaster is the degenerate single-process Broadcaster used by
// the demo: every seat lives in this one process, so the leader's local
// ReceiveDeal call already gave every seat its cards and there is no one
// left to broadcast to.
type localBroadcaster struct{}

func (localBroadcaster) BroadcastDeal(perm [52]card.Type) error {
	return nil
}
