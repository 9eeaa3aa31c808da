// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/rules"
)

// SeatView is the public state of one seat. Other players' cards are never
// exposed, only their count.
type SeatView struct {
	PlayerID      uuid.UUID `json:"playerId"`
	Username      string    `json:"username"`
	HandSize      int       `json:"handSize"`
	Connected     bool      `json:"connected"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
	Finished      bool      `json:"finished"`
	Passed        bool      `json:"passed"`
	Team          int       `json:"team"`
}

// GameView is the snapshot sent on reconnect.
type GameView struct {
	GameID          uuid.UUID         `json:"gameId"`
	RoomID          uuid.UUID         `json:"roomId"`
	GamePhase       Phase             `json:"gamePhase"`
	PlayOrder       []uuid.UUID       `json:"playOrder"`
	CurrentPlayerID uuid.UUID         `json:"currentPlayerId"`
	CurrentLevel    int               `json:"currentLevel"`
	TeamLevels      [2]int            `json:"teamLevels"`
	Round           int               `json:"round"`
	LastPlay        *LastPlay         `json:"lastPlay,omitempty"`
	FinishedPlayers []uuid.UUID       `json:"finishedPlayers"`
	IsFirstPlay     bool              `json:"isFirstPlay"`
	Timer           *TimerState       `json:"timer,omitempty"`
	Tribute         rules.TributeInfo `json:"tribute"`
	Seats           []SeatView        `json:"seats"`
	YourCards       []cards.Card      `json:"yourCards,omitempty"`
}

// Snapshot builds the view of the game for forUser. Assumes lock is held.
func (g *GuandanGame) Snapshot(forUser uuid.UUID) GameView {
	v := GameView{
		GameID:          g.ID,
		RoomID:          g.RoomID,
		GamePhase:       g.Phase,
		PlayOrder:       append([]uuid.UUID{}, g.PlayOrder...),
		CurrentPlayerID: g.CurrentPlayerID(),
		CurrentLevel:    g.CurrentLevel,
		TeamLevels:      g.TeamLevels,
		Round:           g.Round,
		FinishedPlayers: append([]uuid.UUID{}, g.FinishedPlayers...),
		IsFirstPlay:     g.IsFirstPlay,
		Tribute:         g.Tribute,
	}
	if g.LastPlay != nil {
		lp := *g.LastPlay
		v.LastPlay = &lp
	}
	if g.Timer != nil {
		ts := *g.Timer
		v.Timer = &ts
	}
	for _, s := range g.Seats {
		v.Seats = append(v.Seats, SeatView{
			PlayerID:      s.UserID,
			Username:      s.Username,
			HandSize:      len(g.Hands[s.UserID]),
			Connected:     s.Connected,
			IsCurrentTurn: s.UserID == v.CurrentPlayerID,
			Finished:      g.isFinished(s.UserID),
			Passed:        g.PassedPlayers[s.UserID],
			Team:          rules.TeamOf(g.PlayOrder, s.UserID),
		})
	}
	if g.seat(forUser) != nil {
		v.YourCards = g.Hand(forUser)
	}
	return v
}
