package engine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/card"
	"github.com/mental-bridge/bridge/bridge/cardmanager"
	"github.com/mental-bridge/bridge/bridge/position"
	"github.com/mental-bridge/bridge/bridge/scoring"
)

// fakeCardManager is a deterministic CardManager test double: RequestShuffle
// completes synchronously with a fixed, fully known 52-card deck. Each
// position is dealt a full suit (north spades, east hearts, south diamonds,
// west clubs) so follow-suit and dummy-routing scenarios are easy to set up
// without depending on a real shuffle.
type fakeCardManager struct {
	cards     [52]card.Card
	completed bool
	observers []cardmanager.Observer
}

func newFakeCardManager() *fakeCardManager {
	m := &fakeCardManager{}
	suits := []card.Suit{card.Spades, card.Hearts, card.Diamonds, card.Clubs}
	for pos := 0; pos < 4; pos++ {
		rank := card.Two
		for i := 0; i < 13; i++ {
			m.cards[pos*13+i] = card.Known(card.Type{Rank: rank, Suit: suits[pos]})
			rank++
		}
	}
	return m
}

func (m *fakeCardManager) RequestShuffle() error {
	m.completed = true
	for _, o := range m.observers {
		if o != nil {
			o.ShuffleStateChanged(cardmanager.Completed)
		}
	}
	return nil
}

func (m *fakeCardManager) IsShuffleCompleted() bool { return m.completed }
func (m *fakeCardManager) NumberOfCards() int       { return 52 }

func (m *fakeCardManager) GetHand(indices [13]int) ([13]card.Card, error) {
	var out [13]card.Card
	for i, idx := range indices {
		out[i] = m.cards[idx]
	}
	return out, nil
}

func (m *fakeCardManager) Subscribe(o cardmanager.Observer) func() {
	m.observers = append(m.observers, o)
	idx := len(m.observers) - 1
	return func() {
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}

func (m *fakeCardManager) RevealAll(indices []int) (map[int]card.Type, error) {
	out := make(map[int]card.Type, len(indices))
	for _, idx := range indices {
		typ, _ := m.cards[idx].Type()
		out[idx] = typ
	}
	return out, nil
}

// fakeGameManager is a GameManager test double with a fixed opener and
// vulnerability, recording every scored result handed to it.
type fakeGameManager struct {
	opener  position.Position
	ns, ew  bool
	results []scoring.Result
}

func (g *fakeGameManager) NextDeal() (position.Position, bool, bool) {
	return g.opener, g.ns, g.ew
}

func (g *fakeGameManager) AddResult(r scoring.Result) {
	g.results = append(g.results, r)
}

func newTestEngine(t *testing.T, opener position.Position) (*Engine, *fakeCardManager, *fakeGameManager) {
	t.Helper()
	cm := newFakeCardManager()
	gm := &fakeGameManager{opener: opener}
	var counter uint64
	e, err := New(Options{
		CardManager: cm,
		GameManager: gm,
		Counter:     func() uint64 { counter++; return counter },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, cm, gm
}

func bindPlayers(e *Engine) map[position.Position]uuid.UUID {
	players := make(map[position.Position]uuid.UUID)
	for _, pos := range position.All {
		id := uuid.New()
		players[pos] = id
		e.SetPlayer(pos, &id)
	}
	return players
}

// oneNoTrumpByEast plays North pass, East 1NT, South pass, West pass, North
// pass: contract is 1NT by East, dummy is West, opening leader is South.
func oneNoTrumpByEast(t *testing.T, e *Engine, players map[position.Position]uuid.UUID) {
	t.Helper()
	calls := []struct {
		pos  position.Position
		call bidding.Call
	}{
		{position.North, bidding.PassCall()},
		{position.East, bidding.BidCall(bidding.Bid{Level: 1, Strain: bidding.StrainNoTrump})},
		{position.South, bidding.PassCall()},
		{position.West, bidding.PassCall()},
		{position.North, bidding.PassCall()},
	}
	for _, c := range calls {
		if ok, err := e.Call(players[c.pos], c.call); !ok || err != nil {
			t.Fatalf("call %v from %s: ok=%v err=%v", c.call, c.pos, ok, err)
		}
	}
}

func TestStartDealCompletesSynchronously(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	ok, err := e.StartDeal()
	if err != nil || !ok {
		t.Fatalf("StartDeal: ok=%v err=%v", ok, err)
	}
	d, ok := e.CurrentDeal()
	if !ok || d == nil {
		t.Fatal("expected a deal to be in progress")
	}
	pos, ok := e.PositionInTurn()
	if !ok || pos != position.North {
		t.Fatalf("expected north in turn to open, got %s (ok=%v)", pos, ok)
	}
}

func TestReentrantCallRejected(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}

	var reentrantErr error
	e.Subscribe(ObserverFunc(func(ev Event) {
		if ev.Kind == CallMade {
			_, reentrantErr = e.Call(players[position.East], bidding.PassCall())
		}
	}))

	ok, err := e.Call(players[position.North], bidding.PassCall())
	if !ok || err != nil {
		t.Fatalf("north's pass rejected: ok=%v err=%v", ok, err)
	}
	if reentrantErr != ErrReentrant {
		t.Fatalf("expected ErrReentrant from the observer's reentrant call, got %v", reentrantErr)
	}
}

func TestPassedOutDealResets(t *testing.T) {
	e, _, gm := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}
	for _, pos := range position.All {
		if ok, err := e.Call(players[pos], bidding.PassCall()); !ok || err != nil {
			t.Fatalf("pass from %s: ok=%v err=%v", pos, ok, err)
		}
	}
	if _, ok := e.CurrentDeal(); ok {
		t.Fatal("expected no deal in progress after a pass-out")
	}
	if len(gm.results) != 1 || !gm.results[0].PassedOut {
		t.Fatalf("expected one passed-out result, got %v", gm.results)
	}
}

func TestDummyRevealedAfterOpeningLead(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}
	oneNoTrumpByEast(t, e, players)

	if e.IsVisibleToAll(position.West) {
		t.Fatal("expected dummy hidden before the opening lead")
	}
	// South, to declarer's left, leads first; south holds only diamonds.
	ok, err := e.Play(players[position.South], position.South, 0)
	if !ok || err != nil {
		t.Fatalf("opening lead: ok=%v err=%v", ok, err)
	}
	if !e.IsVisibleToAll(position.West) {
		t.Fatal("expected dummy visible after the opening lead")
	}
}

func TestDeclarerPlaysDummysHand(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}
	oneNoTrumpByEast(t, e, players)

	if ok, err := e.Play(players[position.South], position.South, 0); !ok || err != nil {
		t.Fatalf("opening lead: ok=%v err=%v", ok, err)
	}
	// Dummy is west; west itself must not be able to play its own cards.
	if ok, _ := e.Play(players[position.West], position.West, 0); ok {
		t.Fatal("expected dummy itself to be blocked from playing its own hand")
	}
	// Declarer (east) plays from dummy's (west's) hand instead.
	ok, err := e.Play(players[position.East], position.West, 0)
	if !ok || err != nil {
		t.Fatalf("declarer playing dummy's hand: ok=%v err=%v", ok, err)
	}
}

func TestTrickCompletesAndAdvances(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}
	oneNoTrumpByEast(t, e, players)

	var completed *Event
	e.Subscribe(ObserverFunc(func(ev Event) {
		if ev.Kind == TrickCompleted {
			cp := ev
			completed = &cp
		}
	}))

	// South leads a diamond; west (dummy, played by east), north and east
	// are all void in diamonds and must be allowed to discard.
	plays := []struct {
		player position.Position
		hand   position.Position
	}{
		{position.South, position.South},
		{position.East, position.West}, // declarer plays dummy's hand
		{position.North, position.North},
		{position.East, position.East},
	}
	for i, p := range plays {
		if ok, err := e.Play(players[p.player], p.hand, 0); !ok || err != nil {
			t.Fatalf("play %d (%s from %s's hand): ok=%v err=%v", i, p.player, p.hand, ok, err)
		}
	}

	if completed == nil {
		t.Fatal("expected a TrickCompleted event")
	}
	if completed.Winner != position.South {
		t.Fatalf("expected south (only diamond played) to win the trick, got %s", completed.Winner)
	}
	d, _ := e.CurrentDeal()
	if len(d.Tricks()) != 2 {
		t.Fatalf("expected a second trick to have started, got %d tricks", len(d.Tricks()))
	}
	next, ok := e.PositionInTurn()
	if !ok || next != position.South {
		t.Fatalf("expected south (trick winner) to lead next, got %s (ok=%v)", next, ok)
	}
}

func TestObserverPanicResetsGuard(t *testing.T) {
	e, _, _ := newTestEngine(t, position.North)
	players := bindPlayers(e)
	if _, err := e.StartDeal(); err != nil {
		t.Fatalf("StartDeal: %v", err)
	}
	panicked := false
	e.Subscribe(ObserverFunc(func(ev Event) {
		if ev.Kind == CallMade && !panicked {
			panicked = true
			panic("boom")
		}
	}))

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected the observer's panic to propagate out of Call")
			}
		}()
		e.Call(players[position.North], bidding.PassCall())
	}()

	// The reentrancy guard and queued continuations must have been cleared
	// despite the panic, so a fresh top-level call succeeds right after.
	ok, err := e.Call(players[position.East], bidding.PassCall())
	if !ok || err != nil {
		t.Fatalf("expected the guard to be released after the panic: ok=%v err=%v", ok, err)
	}
}
