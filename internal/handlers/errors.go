package handlers

import (
	"errors"

	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/database"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/jason-s-yu/guandan/internal/room"
	"github.com/jason-s-yu/guandan/internal/rules"
)

var (
	errBadRequest    = errors.New("malformed message")
	errUnknownAction = errors.New("unknown action")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{errBadRequest, "BAD_REQUEST"},
	{errUnknownAction, "UNKNOWN_ACTION"},
	{rules.ErrCardsNotInHand, "CARDS_NOT_IN_HAND"},
	{rules.ErrInvalidPattern, "INVALID_PATTERN"},
	{rules.ErrCannotBeat, "CANNOT_BEAT"},
	{game.ErrNotYourTurn, "NOT_YOUR_TURN"},
	{game.ErrGameNotActive, "GAME_NOT_ACTIVE"},
	{game.ErrPlayerNotInGame, "PLAYER_NOT_IN_GAME"},
	{game.ErrIllegalTransition, "ILLEGAL_TRANSITION"},
	{cards.ErrInvalidPlayerCount, "INVALID_PLAYER_COUNT"},
	{room.ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{room.ErrRoomFull, "ROOM_FULL"},
	{room.ErrRoomNotWaiting, "ROOM_NOT_WAITING"},
	{room.ErrAlreadyInRoom, "ALREADY_IN_ROOM"},
	{room.ErrAlreadyHosting, "ALREADY_HOSTING"},
	{room.ErrNotHost, "NOT_HOST"},
	{room.ErrSelfKickForbidden, "SELF_KICK_FORBIDDEN"},
	{room.ErrNotInRoom, "NOT_IN_ROOM"},
	{room.ErrNotEnoughPlayers, "NOT_ENOUGH_PLAYERS"},
	{auth.ErrAuthenticationFailed, "AUTHENTICATION_FAILED"},
	{database.ErrUserNotFound, "USER_NOT_FOUND"},
	{database.ErrUsernameTaken, "USERNAME_TAKEN"},
}

// errorCode maps err onto its stable wire code.
func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL_ERROR"
}

func errorEvent(action string, err error) game.GameEvent {
	return game.GameEvent{
		Type: room.EventError,
		Payload: map[string]interface{}{
			"code":    errorCode(err),
			"message": err.Error(),
			"action":  action,
		},
	}
}
