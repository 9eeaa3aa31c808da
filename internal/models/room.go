package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomRecord is a row in the rooms table.
type RoomRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	HostUserID uuid.UUID `json:"host_user_id"`
	MaxPlayers int       `json:"max_players"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomPlayerRecord is a row in the room_players table.
type RoomPlayerRecord struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}

// LogType classifies rolling log entries.
type LogType string

const (
	LogSystem LogType = "system"
	LogGame   LogType = "game"
	LogPlayer LogType = "player"
)

// GameLogEntry is one line of a room's bounded rolling log.
type GameLogEntry struct {
	ID         uuid.UUID  `json:"id"`
	Timestamp  int64      `json:"timestamp"`
	Message    string     `json:"message"`
	Type       LogType    `json:"type"`
	PlayerID   *uuid.UUID `json:"playerId,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
}

// RoundRecord is a row in the round_results table. Rankings holds user ids in
// finishing order.
type RoundRecord struct {
	ID          uuid.UUID   `json:"id"`
	RoomID      uuid.UUID   `json:"room_id"`
	GameID      uuid.UUID   `json:"game_id"`
	Round       int         `json:"round"`
	Level       int         `json:"level"`
	WinningTeam int         `json:"winning_team"`
	LevelDelta  int         `json:"level_delta"`
	Tribute     string      `json:"tribute"`
	Rankings    []uuid.UUID `json:"rankings"`
	MatchOver   bool        `json:"match_over"`
	FinishedAt  time.Time   `json:"finished_at"`
}
