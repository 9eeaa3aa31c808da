package room

import "github.com/jason-s-yu/guandan/internal/game"

// Room-level events. They share the game event envelope.
const (
	EventRoomCreated        game.GameEventType = "room_created"
	EventRoomJoined         game.GameEventType = "room_joined"
	EventRoomLeft           game.GameEventType = "room_left"
	EventRoomUpdate         game.GameEventType = "room_update"
	EventKickedFromRoom     game.GameEventType = "kicked_from_room"
	EventKickResult         game.GameEventType = "kick_result"
	EventPlayerDisconnected game.GameEventType = "player_disconnected"
	EventPlayerReconnected  game.GameEventType = "player_reconnected"
	EventReconnectSuccess   game.GameEventType = "reconnect_success"
	EventGameLogsSync       game.GameEventType = "game_logs_sync"
	EventRoomsList          game.GameEventType = "rooms_list"
	EventError              game.GameEventType = "error"
)
