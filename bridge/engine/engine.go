// Package engine implements the bridge engine: the state machine that
// drives one deal from shuffling through bidding and card play to scoring,
// publishing a causally ordered event stream as it goes.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/cardmanager"
	"github.com/mental-bridge/bridge/bridge/deal"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/scoring"
	"github.com/mental-bridge/bridge/bridge/trick"
)

// ErrReentrant is returned when Call or Play is invoked from inside an
// observer callback that is itself running as a result of a Call or Play
// already in progress. The engine is a single-threaded cooperative state
// machine and does not support reentrant mutation.
var ErrReentrant = errors.New("engine: reentrant call into Call/Play")

type state int

const (
	stateIdle state = iota
	stateShufflingRequested
	stateBidding
	statePlaying
)

// GameManager assigns the opener and vulnerability for each new deal and
// accumulates scored results, playing the role spec.md calls the
// (abstract) game manager. scoring.ScoreSheet is the concrete
// implementation used in production.
type GameManager interface {
	NextDeal() (opener position.Position, northSouthVulnerable, eastWestVulnerable bool)
	AddResult(r scoring.Result)
}

// Engine is one bridge node's deal-and-game state machine. The zero value
// is not usable; construct with New.
type Engine struct {
	cardManager cardmanager.CardManager
	gameManager GameManager
	newUUID     func() uuid.UUID
	counter     func() uint64

	state       state
	currentDeal *deal.Deal
	playerAt    map[position.Position]uuid.UUID

	pendingOpener position.Position
	pendingVuln   deal.Vulnerability
	dummyRevealed bool

	observers []Observer

	inCall atomic.Bool
	queue  []func()

	unsubscribeShuffle func()
}

// Options configures a new Engine.
type Options struct {
	CardManager cardmanager.CardManager
	GameManager GameManager
	// NewUUID generates deal identities; defaults to uuid.New.
	NewUUID func() uuid.UUID
	// Counter returns the next monotonically increasing event counter
	// value for this engine's game; required.
	Counter func() uint64
}

// New constructs an idle engine.
func New(opts Options) (*Engine, error) {
	if opts.CardManager == nil {
		return nil, fmt.Errorf("engine: CardManager is required")
	}
	if opts.GameManager == nil {
		return nil, fmt.Errorf("engine: GameManager is required")
	}
	if opts.Counter == nil {
		return nil, fmt.Errorf("engine: Counter is required")
	}
	newUUID := opts.NewUUID
	if newUUID == nil {
		newUUID = uuid.New
	}
	e := &Engine{
		cardManager: opts.CardManager,
		gameManager: opts.GameManager,
		newUUID:     newUUID,
		counter:     opts.Counter,
		playerAt:    make(map[position.Position]uuid.UUID),
	}
	e.unsubscribeShuffle = opts.CardManager.Subscribe(cardmanager.ObserverFunc(e.onShuffleStateChanged))
	return e, nil
}

// Close releases the engine's subscription to its card manager.
func (e *Engine) Close() {
	if e.unsubscribeShuffle != nil {
		e.unsubscribeShuffle()
	}
}

// Subscribe registers an observer for engine events. The returned
// function unsubscribes it.
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	e.observers = append(e.observers, o)
	idx := len(e.observers) - 1
	return func() {
		if idx < len(e.observers) {
			e.observers[idx] = nil
		}
	}
}

func (e *Engine) publish(ev Event) {
	if e.currentDeal != nil {
		ev.Deal = e.currentDeal.UUID()
	}
	ev.Counter = e.counter()
	for _, o := range e.observers {
		if o != nil {
			o.HandleEvent(ev)
		}
	}
}

// scheduleContinuation schedules fn to run after the current top-level call's direct
// work, or immediately if no top-level call is in progress (e.g. a card
// manager notification arriving outside of any engine call). This is the
// function-queue of Design Notes "Function-queue": it lets
// observer-triggered continuations run without recursing into the
// engine's call stack.
func (e *Engine) scheduleContinuation(fn func()) {
	if e.inCall.Load() {
		e.queue = append(e.queue, fn)
		return
	}
	e.runGuarded(func() error {
		fn()
		return nil
	})
}

// runGuarded is the entry point for every top-level mutation (StartDeal,
// Call, Play, and queued continuations run outside of one of those). It
// enforces the reentrancy guard and drains the continuation queue before
// returning.
func (e *Engine) runGuarded(fn func() error) error {
	if !e.inCall.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	defer func() {
		if r := recover(); r != nil {
			e.queue = nil
			e.inCall.Store(false)
			panic(r)
		}
	}()
	err := fn()
	for len(e.queue) > 0 {
		job := e.queue[0]
		e.queue = e.queue[1:]
		job()
	}
	e.inCall.Store(false)
	return err
}

// SetPlayer binds player to pos, or clears the binding if player is nil.
func (e *Engine) SetPlayer(pos position.Position, player *uuid.UUID) {
	if player == nil {
		delete(e.playerAt, pos)
		return
	}
	e.playerAt[pos] = *player
}

func (e *Engine) positionOf(player uuid.UUID) (position.Position, bool) {
	for pos, p := range e.playerAt {
		if p == player {
			return pos, true
		}
	}
	return 0, false
}

// CurrentDeal returns the deal in progress, and true, or false if the
// engine is idle.
func (e *Engine) CurrentDeal() (*deal.Deal, bool) {
	if e.currentDeal == nil {
		return nil, false
	}
	return e.currentDeal, true
}

func handIndices(pos position.Position) [deal.NCardsInHand]int {
	var out [deal.NCardsInHand]int
	base := int(pos) * deal.NCardsInHand
	for i := range out {
		out[i] = base + i
	}
	return out
}

// StartDeal asks the card manager to shuffle and begins a new deal once
// the shuffle completes (which may happen synchronously within this call,
// or later via the card manager's observer notification).
func (e *Engine) StartDeal() (bool, error) {
	var ok bool
	err := e.runGuarded(func() error {
		if e.state != stateIdle {
			return nil
		}
		opener, ns, ew := e.gameManager.NextDeal()
		e.pendingOpener = opener
		e.pendingVuln = deal.Vulnerability{NorthSouth: ns, EastWest: ew}
		e.state = stateShufflingRequested
		if err := e.cardManager.RequestShuffle(); err != nil {
			e.state = stateIdle
			return err
		}
		ok = true
		if e.cardManager.IsShuffleCompleted() {
			e.completeShuffle()
		}
		return nil
	})
	return ok, err
}

func (e *Engine) onShuffleStateChanged(s cardmanager.ShuffleState) {
	if s != cardmanager.Completed || e.state != stateShufflingRequested {
		return
	}
	e.scheduleContinuation(e.completeShuffle)
}

func (e *Engine) completeShuffle() {
	if e.state != stateShufflingRequested {
		return
	}
	hands := make(map[position.Position]*deal.Hand, 4)
	for _, pos := range position.All {
		cards, err := e.cardManager.GetHand(handIndices(pos))
		if err != nil {
			return
		}
		hands[pos] = deal.NewHand(cards)
	}
	d, err := deal.New(e.newUUID(), e.pendingOpener, e.pendingVuln, hands)
	if err != nil {
		return
	}
	e.currentDeal = d
	e.state = stateBidding
	e.publish(Event{Kind: DealStarted, Opener: e.pendingOpener, Vulnerability: e.pendingVuln})
	opener, _ := d.Bidding().PositionInTurn()
	e.publish(Event{Kind: TurnStarted, Position: opener})
}

// Call attempts to register call c on behalf of player. It returns false
// without any side effect if player is not in turn or the call is
// illegal, ErrReentrant if called from inside an observer callback.
func (e *Engine) Call(player uuid.UUID, c bidding.Call) (bool, error) {
	var ok bool
	err := e.runGuarded(func() error {
		if e.state != stateBidding || e.currentDeal == nil {
			return nil
		}
		pos, known := e.positionOf(player)
		if !known {
			return nil
		}
		b := e.currentDeal.Bidding()
		n := b.NumberOfCalls()
		if !b.Call(pos, c) {
			return nil
		}
		ok = true
		e.publish(Event{Kind: CallMade, Position: pos, Call: c, CallIdx: n})
		if b.HasEnded() {
			if !b.HasContract() {
				e.finishDealPassedOut()
				return nil
			}
			contract, _ := b.Contract()
			declarer, _ := b.Declarer()
			e.publish(Event{Kind: BiddingCompleted, Declarer: declarer, Contract: contract})
			e.state = statePlaying
			leader := declarer.Next(1)
			e.startTrick(leader, contract)
			e.publish(Event{Kind: TurnStarted, Position: leader})
			return nil
		}
		next, _ := b.PositionInTurn()
		e.publish(Event{Kind: TurnStarted, Position: next})
		return nil
	})
	return ok, err
}

func (e *Engine) finishDealPassedOut() {
	e.gameManager.AddResult(scoring.PassedOut())
	e.publish(Event{Kind: DealEnded, Result: scoring.PassedOut()})
	e.reset()
}

func (e *Engine) reset() {
	e.currentDeal = nil
	e.state = stateIdle
	e.dummyRevealed = false
}

func trumpOf(strain bidding.Strain) (card.Suit, bool) {
	return strain.TrumpSuit()
}

// startTrick begins a new trick led by leader, rotating through the
// positions clockwise starting there.
func (e *Engine) startTrick(leader position.Position, contract bidding.Contract) {
	var handsInOrder [trick.NCards]trick.Hand
	for i := 0; i < trick.NCards; i++ {
		handsInOrder[i] = e.currentDeal.Hand(leader.Next(i))
	}
	trumpSuit, hasTrump := trumpOf(contract.Bid.Strain)
	e.currentDeal.StartTrick(handsInOrder, trumpSuit, hasTrump)
	e.publish(Event{Kind: TrickStarted, Leader: leader})
}

// dummyPosition returns the dummy's position for the current deal's
// contract (declarer's partner), and true, or false if no contract is in
// effect.
func (e *Engine) dummyPosition() (position.Position, bool) {
	if e.currentDeal == nil {
		return 0, false
	}
	declarer, ok := e.currentDeal.Bidding().Declarer()
	if !ok {
		return 0, false
	}
	return declarer.Partner(), true
}

// IsVisibleToAll reports whether pos's hand is visible to every observer:
// true for the dummy once the opening lead has been played, or once the
// deal has ended.
func (e *Engine) IsVisibleToAll(pos position.Position) bool {
	if e.currentDeal == nil {
		return false
	}
	if e.currentDeal.Phase() == deal.PhaseEnded {
		return true
	}
	dummy, ok := e.dummyPosition()
	if !ok || dummy != pos {
		return false
	}
	t, ok := e.currentDeal.CurrentTrick()
	if !ok {
		return false
	}
	return t.NumberOfCardsPlayed() >= 1 || len(e.currentDeal.Tricks()) > 1
}

// Play attempts to play the card at index idx from the hand at handPos on
// behalf of player. Declarer may play from either their own hand or
// dummy's hand (but not on dummy's turn-taking clock: handPos must match
// whichever hand is actually in turn).
func (e *Engine) Play(player uuid.UUID, handPos position.Position, idx int) (bool, error) {
	var ok bool
	err := e.runGuarded(func() error {
		if e.state != statePlaying || e.currentDeal == nil {
			return nil
		}
		actorPos, known := e.positionOf(player)
		if !known {
			return nil
		}
		t, hasTrick := e.currentDeal.CurrentTrick()
		if !hasTrick {
			return nil
		}
		hand := e.currentDeal.Hand(handPos)
		inTurnHand, hasTurn := t.HandInTurn()
		if !hasTurn || inTurnHand != hand {
			return nil
		}
		declarer, _ := e.currentDeal.Bidding().Declarer()
		dummy, _ := e.dummyPosition()
		permittedActor := handPos
		if handPos == dummy {
			permittedActor = declarer
		}
		if actorPos != permittedActor {
			return nil
		}
		if hand.IsPlayed(idx) {
			return nil
		}
		if !t.CanPlay(hand, idx) {
			return nil
		}
		c, _ := hand.CardAt(idx)
		typ, known := c.Type()
		if !known {
			revealed, err := e.cardManager.RevealAll([]int{deckIndex(handPos, idx)})
			if err != nil {
				return nil
			}
			rt, ok := revealed[deckIndex(handPos, idx)]
			if !ok {
				return nil
			}
			if err := hand.Reveal(idx, rt); err != nil {
				return nil
			}
			typ = rt
		}
		if err := hand.MarkPlayed(idx); err != nil {
			return nil
		}
		t.Play(hand, idx)
		ok = true
		trickIdx := len(e.currentDeal.Tricks()) - 1
		e.publish(Event{Kind: CardPlayed, Position: actorPos, Card: typ, HandIndex: idx, TrickIndex: trickIdx})

		e.maybeRevealDummy(trickIdx, t)

		if t.IsCompleted() {
			e.completeTrick(trickIdx, t)
			return nil
		}
		nextHand, _ := t.HandInTurn()
		nextPos, _ := e.currentDeal.PositionOf(nextHand.(*deal.Hand))
		e.publish(Event{Kind: TurnStarted, Position: nextPos})
		return nil
	})
	return ok, err
}

func deckIndex(pos position.Position, handIdx int) int {
	return int(pos)*deal.NCardsInHand + handIdx
}

func (e *Engine) maybeRevealDummy(trickIdx int, t *trick.Trick) {
	if trickIdx != 0 || e.dummyRevealed {
		return
	}
	if t.NumberOfCardsPlayed() != 1 {
		return
	}
	dummyPos, ok := e.dummyPosition()
	if !ok {
		return
	}
	dummyHand := e.currentDeal.Hand(dummyPos)
	var indices []int
	for i := 0; i < deal.NCardsInHand; i++ {
		if dummyHand.IsPlayed(i) {
			continue
		}
		if _, known := mustCard(dummyHand, i).Type(); !known {
			indices = append(indices, deckIndex(dummyPos, i))
		}
	}
	if len(indices) > 0 {
		revealed, err := e.cardManager.RevealAll(indices)
		if err == nil {
			for deckIdx, typ := range revealed {
				localIdx := deckIdx - int(dummyPos)*deal.NCardsInHand
				_ = dummyHand.Reveal(localIdx, typ)
			}
		}
	}
	e.dummyRevealed = true
	e.publish(Event{Kind: DummyRevealed, Position: dummyPos})
}

func mustCard(h *deal.Hand, i int) card.Card {
	c, _ := h.CardAt(i)
	return c
}

func (e *Engine) completeTrick(trickIdx int, t *trick.Trick) {
	winnerHand, _ := t.Winner()
	winnerPos, _ := e.currentDeal.PositionOf(winnerHand.(*deal.Hand))
	e.publish(Event{Kind: TrickCompleted, Winner: winnerPos, TrickIndex: trickIdx})

	if len(e.currentDeal.Tricks()) == deal.NCardsInHand {
		e.finishDealPlayed()
		return
	}
	contract, _ := e.currentDeal.Bidding().Contract()
	e.startTrick(winnerPos, contract)
	e.publish(Event{Kind: TurnStarted, Position: winnerPos})
}

func (e *Engine) finishDealPlayed() {
	contract, _ := e.currentDeal.Bidding().Contract()
	declarer, _ := e.currentDeal.Bidding().Declarer()
	side := position.PartnershipOf(declarer)
	tricksWon := 0
	for _, t := range e.currentDeal.Tricks() {
		winnerHand, ok := t.Winner()
		if !ok {
			continue
		}
		pos, ok := e.currentDeal.PositionOf(winnerHand.(*deal.Hand))
		if ok && position.PartnershipOf(pos) == side {
			tricksWon++
		}
	}
	vuln := e.currentDeal.Vulnerability().IsVulnerable(declarer)
	result := scoring.Score(contract, side, tricksWon, vuln)
	e.currentDeal.SetPhase(deal.PhaseEnded)
	e.gameManager.AddResult(result)
	e.publish(Event{Kind: DealEnded, Result: result})
	e.reset()
}

// PositionInTurn returns the position whose turn it is to act (call or
// play), and true, or false if the engine is idle or the deal has ended.
func (e *Engine) PositionInTurn() (position.Position, bool) {
	if e.currentDeal == nil {
		return 0, false
	}
	switch e.state {
	case stateBidding:
		return e.currentDeal.Bidding().PositionInTurn()
	case statePlaying:
		t, ok := e.currentDeal.CurrentTrick()
		if !ok {
			return 0, false
		}
		h, ok := t.HandInTurn()
		if !ok {
			return 0, false
		}
		return e.currentDeal.PositionOf(h.(*deal.Hand))
	default:
		return 0, false
	}
}
