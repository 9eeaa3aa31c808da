// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/rules"
)

// GameEventType names an event pushed to clients.
type GameEventType string

// Events emitted by the game itself. Room-level events live in the room package
// but share the same envelope.
const (
	EventGameStarted  GameEventType = "game_started"
	EventYourHand     GameEventType = "your_hand"
	EventTurnUpdate   GameEventType = "turn_update"
	EventCardsPlayed  GameEventType = "cards_played"
	EventTurnPassed   GameEventType = "turn_passed"
	EventTrickReset   GameEventType = "trick_reset"
	EventTimerUpdate  GameEventType = "timer_update"
	EventGameFinished GameEventType = "game_finished"
)

// GameEvent is the envelope every server-to-client message uses.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// LastPlay is the play currently on the table.
type LastPlay struct {
	Cards       []cards.Card  `json:"cards"`
	PlayType    rules.Kind    `json:"playType"`
	PlayerID    uuid.UUID     `json:"playerId"`
	CanBeBeaten bool          `json:"canBeBeaten"`
	Priority    int           `json:"priority"`
	Pattern     rules.Pattern `json:"-"`
}

func (g *GuandanGame) broadcast(t GameEventType, payload map[string]interface{}) {
	if g.BroadcastFn == nil {
		return
	}
	g.BroadcastFn(GameEvent{Type: t, Payload: payload})
}

func (g *GuandanGame) sendTo(playerID uuid.UUID, t GameEventType, payload map[string]interface{}) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	g.BroadcastToPlayerFn(playerID, GameEvent{Type: t, Payload: payload})
}

// sendHand privately pushes a player's current hand.
func (g *GuandanGame) sendHand(playerID uuid.UUID) {
	hand := append([]cards.Card{}, g.Hands[playerID]...)
	g.sendTo(playerID, EventYourHand, map[string]interface{}{
		"cards":        hand,
		"currentLevel": g.CurrentLevel,
	})
}

func (g *GuandanGame) broadcastTurn() {
	g.broadcast(EventTurnUpdate, map[string]interface{}{
		"currentPlayerId": g.CurrentPlayerID(),
		"gamePhase":       g.Phase,
		"isFirstPlay":     g.IsFirstPlay,
	})
}
