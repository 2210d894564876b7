package game

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/deal"
	"github.com/mental-bridge/bridge/bridge/cardmanager"
	"github.com/mental-bridge/bridge/bridge/engine"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/scoring"
)

// Game wires one node's bridge engine to its card manager, score sheet,
// player controls and optional recorder: the single object cmd/bridgenode
// constructs and runs, playing the role the teacher's GameContext and
// GameOrchestrator split between them, unified here since the bridge
// engine already owns the state machine both of those delegate to.
type Game struct {
	Engine  *engine.Engine
	Scores  *scoring.ScoreSheet
	Players map[position.Position]PlayerControl

	logger    *slog.Logger
	counter   atomic.Uint64
	done      chan struct{}
	playersMu sync.Mutex
	playerIDs map[position.Position]uuid.UUID
}

// New constructs a Game for one node. ids generates deal identities;
// cm is this node's card manager (simple or mental); recorder, if
// non-nil, is subscribed to every engine event.
func New(ids IDGenerator, cm cardmanager.CardManager, players map[position.Position]PlayerControl, recorder Recorder, logger *slog.Logger) (*Game, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{
		Scores:    scoring.NewScoreSheet(),
		Players:   players,
		logger:    logger,
		done:      make(chan struct{}),
		playerIDs: make(map[position.Position]uuid.UUID),
	}

	e, err := engine.New(engine.Options{
		CardManager: cm,
		GameManager: g.Scores,
		NewUUID:     ids.NewID,
		Counter:     g.counter.Add,
	})
	if err != nil {
		return nil, fmt.Errorf("game: constructing engine: %w", err)
	}
	g.Engine = e

	if recorder != nil {
		e.Subscribe(RecorderObserver{Recorder: recorder, OnError: func(err error) {
			logger.Error("recording engine event failed", "error", err)
		}})
	}
	e.Subscribe(engine.ObserverFunc(g.onEvent))
	return g, nil
}

// SetPlayer assigns the identity controlling a seat, as the engine
// requires before Call/Play from that identity are accepted.
func (g *Game) SetPlayer(pos position.Position, player uuid.UUID) {
	g.Engine.SetPlayer(pos, &player)
	g.playersMu.Lock()
	g.playerIDs[pos] = player
	g.playersMu.Unlock()
}

// Run starts a fresh deal and drives it to completion by asking each
// seat's PlayerControl for decisions as its turn comes up, repeating for
// new deals until ctx is cancelled.
func (g *Game) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := g.Engine.StartDeal(); err != nil {
			return fmt.Errorf("game: starting deal: %w", err)
		}
		if err := g.playOneDeal(ctx); err != nil {
			return err
		}
	}
}

func (g *Game) playOneDeal(ctx context.Context) error {
	for {
		d, ok := g.Engine.CurrentDeal()
		if !ok {
			return nil // deal finished and reset
		}
		handPos, ok := g.Engine.PositionInTurn()
		if !ok {
			return nil
		}

		// During card play, dummy's turn is decided by declarer.
		actorPos := handPos
		if d.Bidding().HasEnded() && d.Bidding().HasContract() {
			if declarer, ok := d.Bidding().Declarer(); ok && handPos == declarer.Partner() {
				actorPos = declarer
			}
		}
		control, ok := g.Players[actorPos]
		if !ok {
			return fmt.Errorf("game: no control configured for position %s", actorPos)
		}
		id, ok := g.playerIDFor(actorPos)
		if !ok {
			return fmt.Errorf("game: no player assigned to %s", actorPos)
		}

		if !d.Bidding().HasEnded() {
			call, err := control.Call(ctx, *d.Bidding())
			if err != nil {
				return fmt.Errorf("game: getting call for %s: %w", actorPos, err)
			}
			if _, err := g.Engine.Call(id, call); err != nil {
				return fmt.Errorf("game: applying call for %s: %w", actorPos, err)
			}
			continue
		}

		t, ok := d.CurrentTrick()
		if !ok {
			return fmt.Errorf("game: bidding ended but no trick started")
		}
		hand := d.Hand(handPos)
		allowed := deal.AllowedCards(hand, t)
		idx, err := control.Play(ctx, allowed)
		if err != nil {
			return fmt.Errorf("game: getting play for %s: %w", actorPos, err)
		}
		if _, err := g.Engine.Play(id, handPos, idx); err != nil {
			return fmt.Errorf("game: applying play for %s/%s: %w", actorPos, handPos, err)
		}
	}
}

func (g *Game) playerIDFor(pos position.Position) (uuid.UUID, bool) {
	g.playersMu.Lock()
	defer g.playersMu.Unlock()
	id, ok := g.playerIDs[pos]
	return id, ok
}

func (g *Game) onEvent(e engine.Event) {
	g.logger.Debug("engine event", "kind", e.Kind.String(), "counter", e.Counter)
}
