// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/jason-s-yu/guandan/internal/middleware"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/jason-s-yu/guandan/internal/room"
)

// inboundMessage is the client envelope: {"type": ..., "payload": {...}}.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createRoomPayload struct {
	Name string `json:"name"`
}

type roomIDPayload struct {
	RoomID string `json:"roomId"`
}

type playCardsPayload struct {
	Cards []cards.Card `json:"cards"`
}

type kickPayload struct {
	TargetUserID string `json:"targetUserId"`
}

// WSHandler upgrades the request, authenticates the session token and runs
// the read loop. A user who already holds a seat is rebound to it at once.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if r.Header.Get("Sec-WebSocket-Protocol") != "" && c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the guandan subprotocol")
		return
	}

	userID, err := auth.AuthenticateJWT(auth.TokenFromRequest(r))
	if err != nil {
		s.Logger.Infof("websocket auth failed from %s: %v", r.RemoteAddr, err)
		c.Close(InvalidAuthTokenError, "authentication failed")
		return
	}
	user, err := s.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		s.Logger.Infof("websocket user %s not found: %v", userID, err)
		c.Close(InvalidUserIDError, "unknown user")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := newWSConn(user.ID, s.Logger)
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)
	go conn.writePump(ctx, c)

	if rm, ok := s.Rooms.Reconnect(conn, user.ID); ok {
		s.Logger.Infof("user %s resumed seat in room %s", user.ID, rm.ID)
	}

	readErr := s.readPump(ctx, c, conn, *user)
	s.Rooms.HandleDisconnect(conn.ID())
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
}

// readPump dispatches client messages until the socket closes. A normal
// closure returns nil.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *wsConn, user models.User) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway, SessionReplacedError:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var in inboundMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			conn.Write(errorEvent("", errBadRequest))
			continue
		}
		if err := s.dispatch(ctx, conn, user, in); err != nil {
			s.Logger.Debugf("user %s %s: %v", user.ID, in.Type, err)
			conn.Write(errorEvent(in.Type, err))
		}
	}
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadRequest
	}
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errBadRequest
	}
	return id, nil
}

// dispatch routes one client message to the room manager.
func (s *Server) dispatch(ctx context.Context, conn *wsConn, user models.User, in inboundMessage) error {
	switch in.Type {
	case "create_room":
		var p createRoomPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := s.Rooms.CreateRoom(conn, user, p.Name)
		return err

	case "join_room":
		var p roomIDPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		id, err := parseID(p.RoomID)
		if err != nil {
			return err
		}
		_, err = s.Rooms.JoinRoom(id, conn, user)
		return err

	case "leave_room":
		return s.Rooms.LeaveRoom(conn.ID())

	case "temporary_leave_room":
		return s.Rooms.TemporaryLeave(conn.ID())

	case "start_game":
		return s.Rooms.StartGame(conn.ID())

	case "play_cards":
		var p playCardsPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		if len(p.Cards) == 0 {
			return errBadRequest
		}
		return s.Rooms.PlayCards(conn.ID(), p.Cards)

	case "pass_turn":
		return s.Rooms.PassTurn(conn.ID())

	case "kick_player":
		var p kickPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		target, err := parseID(p.TargetUserID)
		if err != nil {
			return err
		}
		return s.Rooms.KickPlayer(conn.ID(), target)

	case "request_game_logs":
		var p roomIDPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		var roomID uuid.UUID
		if p.RoomID == "" {
			id, ok := s.Rooms.RoomIDForConn(conn.ID())
			if !ok {
				return room.ErrNotInRoom
			}
			roomID = id
		} else {
			id, err := parseID(p.RoomID)
			if err != nil {
				return err
			}
			roomID = id
		}
		logs, err := s.Rooms.GameLogs(ctx, roomID)
		if err != nil {
			return err
		}
		conn.Write(game.GameEvent{Type: room.EventGameLogsSync, Payload: map[string]interface{}{
			"roomId": roomID,
			"logs":   logs,
		}})
		return nil

	case "get_rooms":
		conn.Write(game.GameEvent{Type: room.EventRoomsList, Payload: map[string]interface{}{
			"rooms": s.Rooms.ListRooms(),
		}})
		return nil

	case "cleanup_duplicates":
		removed, err := s.Rooms.CleanupDuplicatesAsHost(conn.ID())
		if err != nil {
			return err
		}
		if removed > 0 {
			s.Logger.Warnf("user %s cleaned %d duplicate seats", user.ID, removed)
		}
		return nil

	default:
		return errUnknownAction
	}
}
