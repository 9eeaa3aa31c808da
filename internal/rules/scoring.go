package rules

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
)

// TributeType describes the card hand-off owed before the next round.
type TributeType string

const (
	TributeNone   TributeType = "none"
	TributeSingle TributeType = "single"
	TributeDouble TributeType = "double"
	TributeResist TributeType = "resist"
)

// ErrIncompleteRanking is returned when scoring is asked for a round whose
// finishing order does not cover every seat exactly once.
var ErrIncompleteRanking = errors.New("ranking must list all four players once")

// Team indexes.
const (
	TeamA = 0
	TeamB = 1
)

// Teams pairs seats sitting opposite each other in the play order:
// positions 0 and 2 form team A, positions 1 and 3 team B.
func Teams(playOrder []uuid.UUID) [2][]uuid.UUID {
	var t [2][]uuid.UUID
	for i, id := range playOrder {
		t[i%2] = append(t[i%2], id)
	}
	return t
}

// TeamOf returns the team index of id in playOrder, or -1.
func TeamOf(playOrder []uuid.UUID, id uuid.UUID) int {
	for i, p := range playOrder {
		if p == id {
			return i % 2
		}
	}
	return -1
}

// TributeInfo names who owes and who receives tribute.
type TributeInfo struct {
	Type      TributeType `json:"type"`
	Payers    []uuid.UUID `json:"payers,omitempty"`
	Receivers []uuid.UUID `json:"receivers,omitempty"`
}

// RoundResult is the outcome of a finished round.
type RoundResult struct {
	Rankings    []uuid.UUID    `json:"rankings"`
	Teams       [2][]uuid.UUID `json:"teams"`
	WinningTeam int            `json:"winningTeam"`
	LevelDelta  int            `json:"levelChange"`
	Tribute     TributeInfo    `json:"tribute"`
}

// ScoreRound computes the level delta and owed tribute from the finishing
// order. The victor's team climbs 3 levels when the partner finished second,
// 2 when third and 1 when last.
func ScoreRound(playOrder, rankings []uuid.UUID) (RoundResult, error) {
	if len(rankings) != cards.PlayerCount || len(playOrder) != cards.PlayerCount {
		return RoundResult{}, ErrIncompleteRanking
	}
	seen := make(map[uuid.UUID]bool, len(rankings))
	for _, id := range rankings {
		if seen[id] || TeamOf(playOrder, id) < 0 {
			return RoundResult{}, ErrIncompleteRanking
		}
		seen[id] = true
	}

	res := RoundResult{
		Rankings: append([]uuid.UUID(nil), rankings...),
		Teams:    Teams(playOrder),
	}
	res.WinningTeam = TeamOf(playOrder, rankings[0])

	partnerPlace := 0
	for i := 1; i < len(rankings); i++ {
		if TeamOf(playOrder, rankings[i]) == res.WinningTeam {
			partnerPlace = i
			break
		}
	}
	switch partnerPlace {
	case 1:
		res.LevelDelta = 3
		res.Tribute = TributeInfo{
			Type:      TributeDouble,
			Payers:    []uuid.UUID{rankings[2], rankings[3]},
			Receivers: []uuid.UUID{rankings[0], rankings[1]},
		}
	case 2:
		res.LevelDelta = 2
		res.Tribute = singleTribute(rankings)
	default:
		res.LevelDelta = 1
		res.Tribute = singleTribute(rankings)
	}
	return res, nil
}

func singleTribute(rankings []uuid.UUID) TributeInfo {
	return TributeInfo{
		Type:      TributeSingle,
		Payers:    []uuid.UUID{rankings[3]},
		Receivers: []uuid.UUID{rankings[0]},
	}
}

// ResolveTribute re-examines owed tribute against the freshly dealt hands:
// payers who together hold both big jokers resist and pay nothing.
func ResolveTribute(owed TributeInfo, hands map[uuid.UUID][]cards.Card) TributeInfo {
	if owed.Type != TributeSingle && owed.Type != TributeDouble {
		return owed
	}
	bigJokers := 0
	for _, id := range owed.Payers {
		for _, c := range hands[id] {
			if c.Rank == cards.RankBigJoker {
				bigJokers++
			}
		}
	}
	if bigJokers >= 2 {
		return TributeInfo{Type: TributeResist, Payers: owed.Payers, Receivers: owed.Receivers}
	}
	return owed
}

// AdvanceLevel raises level by delta, clamped at Ace. The boolean reports
// that the team reached Ace and therefore won the match.
func AdvanceLevel(level, delta int) (int, bool) {
	next := level + delta
	if next >= cards.LevelAce {
		return cards.LevelAce, true
	}
	return next, false
}
