// Package scoring computes duplicate bridge scores for a completed deal.
// It plays the role of the spec's abstract "game manager": the bridge
// engine hands it a contract, declaring partnership, tricks won and
// vulnerability, and gets back a scoring result to publish in DealEnded.
package scoring

import (
	"github.com/mental-bridge/bridge/bridge/bidding"
	"github.com/mental-bridge/bridge/bridge/position"
)

// Result is the outcome of one scored deal.
type Result struct {
	// PassedOut is true if the auction ended without a contract; all
	// other fields are zero in that case.
	PassedOut bool
	// Declarer is the partnership that declared the contract.
	Declarer position.Partnership
	// Made is true if the contract was fulfilled (tricks won >= tricks
	// needed).
	Made bool
	// Score is the duplicate score for Declarer: positive if Declarer
	// scores points, negative if the defense scores points instead
	// (points awarded to the other side are -Score).
	Score int
}

func trickValue(s bidding.Strain) int {
	switch s {
	case bidding.StrainClubs, bidding.StrainDiamonds:
		return 20
	case bidding.StrainHearts, bidding.StrainSpades:
		return 30
	default: // no trump
		return 30
	}
}

// Score computes the duplicate scoring result for a contract played by
// declaringSide, who won tricksWon of the 13 tricks, vulnerable per vuln.
func Score(contract bidding.Contract, declaringSide position.Partnership, tricksWon int, vuln bool) Result {
	needed := 6 + contract.Bid.Level
	if tricksWon >= needed {
		return Result{Declarer: declaringSide, Made: true, Score: madeScore(contract, tricksWon, needed, vuln)}
	}
	undertricks := needed - tricksWon
	return Result{Declarer: declaringSide, Made: false, Score: -undertrickPenalty(contract.Doubling, undertricks, vuln)}
}

// PassedOut returns the result for an auction that produced no contract.
func PassedOut() Result {
	return Result{PassedOut: true}
}

func madeScore(contract bidding.Contract, tricksWon, needed int, vuln bool) int {
	overtricks := tricksWon - needed
	perTrick := trickValue(contract.Bid.Strain)

	trickScore := 0
	if contract.Bid.Strain == bidding.StrainNoTrump {
		trickScore = 40 + (contract.Bid.Level-1)*30
	} else {
		trickScore = contract.Bid.Level * perTrick
	}
	switch contract.Doubling {
	case bidding.Doubled:
		trickScore *= 2
	case bidding.Redoubled:
		trickScore *= 4
	}

	score := trickScore
	if trickScore >= 100 {
		if vuln {
			score += 500
		} else {
			score += 300
		}
	} else {
		score += 50
	}

	switch contract.Bid.Level {
	case 6:
		if vuln {
			score += 750
		} else {
			score += 500
		}
	case 7:
		if vuln {
			score += 1500
		} else {
			score += 1000
		}
	}

	switch contract.Doubling {
	case bidding.Doubled:
		score += 50
		if vuln {
			score += overtricks * 200
		} else {
			score += overtricks * 100
		}
	case bidding.Redoubled:
		score += 100
		if vuln {
			score += overtricks * 400
		} else {
			score += overtricks * 200
		}
	default:
		score += overtricks * perTrick
	}
	return score
}

// ScoreSheet accumulates scored deal results for a social bridge session,
// following the standard rotation of opener and vulnerability by deal
// number. It implements the engine's GameManager role (spec.md §3 "Game
// manager (abstract)" is shared ownership between engine and card
// protocol; here it is a concrete duplicate-scoring implementation,
// grounded on original_source's DuplicateGameManager).
type ScoreSheet struct {
	dealNumber int
	entries    []Entry
}

// Entry is one scored deal recorded on the sheet.
type Entry struct {
	DealNumber int
	Result     Result
}

// NewScoreSheet creates an empty score sheet, starting at deal 1.
func NewScoreSheet() *ScoreSheet {
	return &ScoreSheet{dealNumber: 1}
}

// dealVulnerability returns the vulnerability for deal number n
// (1-indexed) in a four-deal rotation (none, NS, EW, both) that repeats
// every four deals.
func dealVulnerability(n int) (ns, ew bool) {
	switch (n - 1) % 4 {
	case 0:
		return false, false
	case 1:
		return true, false
	case 2:
		return false, true
	default:
		return true, true
	}
}

// dealOpener returns the standard rotation of opener by deal number.
func dealOpener(n int) position.Position {
	return position.North.Next((n - 1) % 4)
}

// NextDeal returns the opener and vulnerability for the next deal to be
// played, without recording anything.
func (s *ScoreSheet) NextDeal() (position.Position, bool, bool) {
	ns, ew := dealVulnerability(s.dealNumber)
	return dealOpener(s.dealNumber), ns, ew
}

// AddResult records the result of the current deal and advances to the
// next one.
func (s *ScoreSheet) AddResult(r Result) {
	s.entries = append(s.entries, Entry{DealNumber: s.dealNumber, Result: r})
	s.dealNumber++
}

// Entries returns every recorded result, in deal order.
func (s *ScoreSheet) Entries() []Entry {
	return s.entries
}

func undertrickPenalty(doubling bidding.Doubling, undertricks int, vuln bool) int {
	if doubling == bidding.Undoubled {
		if vuln {
			return undertricks * 100
		}
		return undertricks * 50
	}
	multiplier := 1
	if doubling == bidding.Redoubled {
		multiplier = 2
	}
	penalty := 0
	for i := 1; i <= undertricks; i++ {
		var step int
		switch {
		case i == 1 && !vuln:
			step = 100
		case i == 1 && vuln:
			step = 200
		case i <= 3 && !vuln:
			step = 200
		case i <= 3 && vuln:
			step = 300
		case !vuln:
			step = 300
		default:
			step = 300
		}
		penalty += step
	}
	return penalty * multiplier
}
