package scoring

import (
	"testing"

	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/position"
)

func contract(level int, strain bidding.Strain, doubling bidding.Doubling) bidding.Contract {
	return bidding.Contract{Bid: bidding.Bid{Level: level, Strain: strain}, Doubling: doubling}
}

func TestScoreMadeNoTrumpPartScore(t *testing.T) {
	// 1NT made exactly, not vulnerable: 40 (first trick) + 0 = 40, below
	// the 100-point game threshold so only the 50 part-score bonus applies.
	r := Score(contract(1, bidding.StrainNoTrump, bidding.Undoubled), position.EastWest, 7, false)
	if !r.Made {
		t.Fatal("expected the contract to be made")
	}
	if r.Score != 90 {
		t.Fatalf("got score %d, want 90", r.Score)
	}
	if r.Declarer != position.EastWest {
		t.Fatalf("got declarer %s, want EastWest", r.Declarer)
	}
}

func TestScoreMadeGameBonusVulnerableVsNot(t *testing.T) {
	notVuln := Score(contract(3, bidding.StrainNoTrump, bidding.Undoubled), position.NorthSouth, 9, false)
	vuln := Score(contract(3, bidding.StrainNoTrump, bidding.Undoubled), position.NorthSouth, 9, true)
	if notVuln.Score != 40+2*30+300 {
		t.Fatalf("not-vulnerable 3NT made: got %d, want %d", notVuln.Score, 40+2*30+300)
	}
	if vuln.Score != 40+2*30+500 {
		t.Fatalf("vulnerable 3NT made: got %d, want %d", vuln.Score, 40+2*30+500)
	}
}

func TestScoreSlamBonuses(t *testing.T) {
	small := Score(contract(6, bidding.StrainSpades, bidding.Undoubled), position.NorthSouth, 12, false)
	grand := Score(contract(7, bidding.StrainSpades, bidding.Undoubled), position.NorthSouth, 13, true)
	if small.Score != 6*30+300+500 {
		t.Fatalf("small slam: got %d, want %d", small.Score, 6*30+300+500)
	}
	if grand.Score != 7*30+500+1500 {
		t.Fatalf("vulnerable grand slam: got %d, want %d", grand.Score, 7*30+500+1500)
	}
}

func TestScoreUndertrickPenaltyUndoubled(t *testing.T) {
	r := Score(contract(3, bidding.StrainHearts, bidding.Undoubled), position.NorthSouth, 7, false)
	if r.Made {
		t.Fatal("expected the contract to go down")
	}
	if r.Score != -2*50 {
		t.Fatalf("got %d, want %d", r.Score, -2*50)
	}
}

func TestScoreUndertrickPenaltyDoubledVulnerable(t *testing.T) {
	// down 2, doubled, vulnerable: 200 + 300 = 500
	r := Score(contract(4, bidding.StrainSpades, bidding.Doubled), position.NorthSouth, 8, true)
	if r.Score != -500 {
		t.Fatalf("got %d, want -500", r.Score)
	}
}

func TestScoreDoubledMadeOvertrickBonus(t *testing.T) {
	r := Score(contract(1, bidding.StrainClubs, bidding.Doubled), position.EastWest, 8, false)
	if !r.Made {
		t.Fatal("expected the contract to be made")
	}
	// trickScore = 1*20*2 = 40; below 100 so +50; +50 doubled-made bonus;
	// 1 overtrick at 100 (not vulnerable, doubled).
	want := 40 + 50 + 50 + 100
	if r.Score != want {
		t.Fatalf("got %d, want %d", r.Score, want)
	}
}

func TestPassedOutResultHasNoContract(t *testing.T) {
	r := PassedOut()
	if !r.PassedOut {
		t.Fatal("expected PassedOut to be true")
	}
	if r.Score != 0 || r.Made {
		t.Fatalf("expected a zero-value result besides PassedOut, got %+v", r)
	}
}

func TestScoreSheetRotatesOpenerAndVulnerability(t *testing.T) {
	s := NewScoreSheet()
	wantOpeners := []position.Position{position.North, position.East, position.South, position.West, position.North}
	wantNS := []bool{false, true, false, true, false}
	wantEW := []bool{false, false, true, true, false}

	for i := 0; i < 5; i++ {
		opener, ns, ew := s.NextDeal()
		if opener != wantOpeners[i] {
			t.Fatalf("deal %d: opener = %s, want %s", i+1, opener, wantOpeners[i])
		}
		if ns != wantNS[i] || ew != wantEW[i] {
			t.Fatalf("deal %d: vuln = (%v,%v), want (%v,%v)", i+1, ns, ew, wantNS[i], wantEW[i])
		}
		s.AddResult(PassedOut())
	}

	entries := s.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 recorded entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.DealNumber != i+1 {
			t.Fatalf("entry %d: DealNumber = %d, want %d", i, e.DealNumber, i+1)
		}
	}
}
