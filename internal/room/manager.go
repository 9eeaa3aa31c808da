// internal/room/manager.go
package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/jason-s-yu/guandan/internal/rules"
	log "github.com/sirupsen/logrus"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomNotWaiting    = errors.New("room is not accepting changes while a game is in progress")
	ErrAlreadyInRoom     = errors.New("already in a room")
	ErrAlreadyHosting    = errors.New("user already hosts a room")
	ErrNotHost           = errors.New("only the host can do that")
	ErrSelfKickForbidden = errors.New("host cannot kick themselves")
	ErrNotInRoom         = errors.New("player is not in this room")
	ErrNotEnoughPlayers  = errors.New("four players are required to start")
)

const (
	storeTimeout     = 5 * time.Second
	storeQueueLength = 1024
)

// Config tunes a Manager.
type Config struct {
	Timing           game.TimingRules
	LogCapacity      int
	PracticeHandSize int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timing:           game.DefaultTimingRules(),
		LogCapacity:      100,
		PracticeHandSize: 13,
	}
}

// Manager owns every room and the indexes used to route connections to them.
//
// Lock order: Manager.mu before Room.Mu. Timer goroutines only take Room.Mu.
type Manager struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]*Room
	connRooms map[uuid.UUID]uuid.UUID // connection id -> room id
	userRooms map[uuid.UUID]uuid.UUID // user id -> room id
	hostRooms map[uuid.UUID]uuid.UUID // host user id -> room id

	cfg     Config
	persist *persister
	store   Store
	mirror  LogMirror
	mirrorQ *persister // ordered mirror pushes; nil without a mirror
}

// NewManager builds a Manager. mirror may be nil.
func NewManager(cfg Config, store Store, mirror LogMirror) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = 100
	}
	m := &Manager{
		rooms:     make(map[uuid.UUID]*Room),
		connRooms: make(map[uuid.UUID]uuid.UUID),
		userRooms: make(map[uuid.UUID]uuid.UUID),
		hostRooms: make(map[uuid.UUID]uuid.UUID),
		cfg:       cfg,
		persist:   newPersister("room store", storeQueueLength),
		store:     store,
		mirror:    mirror,
	}
	if mirror != nil {
		m.mirrorQ = newPersister("room log mirror", storeQueueLength)
	}
	return m
}

// Close stops every game and flushes pending store writes.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, r := range m.rooms {
		r.Mu.Lock()
		if r.Game != nil {
			r.Game.Stop()
		}
		r.Mu.Unlock()
	}
	m.mu.Unlock()
	m.persist.close()
	if m.mirrorQ != nil {
		m.mirrorQ.close()
	}
}

func (m *Manager) attachRoom(r *Room) {
	r.onLog = func(roomID uuid.UUID, entry models.GameLogEntry) {
		if m.mirrorQ == nil {
			return
		}
		capacity := r.logCap
		m.mirrorQ.enqueue("mirror room log", func(ctx context.Context) error {
			return m.mirror.PushRoomLog(ctx, roomID, entry, capacity)
		})
	}
}

func newPlayer(conn Connection, user models.User, isHost bool) *ConnectedPlayer {
	return &ConnectedPlayer{
		UserID:    user.ID,
		Username:  user.DisplayName(),
		IsHost:    isHost,
		Connected: true,
		JoinedAt:  time.Now(),
		ConnID:    conn.ID(),
		Conn:      conn,
	}
}

// CreateRoom opens a new room hosted by user. An empty name becomes
// "<username>'s room".
func (m *Manager) CreateRoom(conn Connection, user models.User, name string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hostRooms[user.ID]; ok {
		return nil, ErrAlreadyHosting
	}
	if _, ok := m.userRooms[user.ID]; ok {
		return nil, ErrAlreadyInRoom
	}
	if name == "" {
		name = fmt.Sprintf("%s's room", user.DisplayName())
	}

	r := newRoom(name, user.ID, m.cfg.LogCapacity)
	m.attachRoom(r)
	host := newPlayer(conn, user, true)

	r.Mu.Lock()
	defer r.Mu.Unlock()

	r.Players = append(r.Players, host)
	m.rooms[r.ID] = r
	m.connRooms[conn.ID()] = r.ID
	m.userRooms[user.ID] = r.ID
	m.hostRooms[user.ID] = r.ID

	rec := models.RoomRecord{ID: r.ID, Name: r.Name, HostUserID: user.ID, MaxPlayers: r.MaxPlayers, Status: string(r.Status), CreatedAt: r.CreatedAt}
	m.persist.enqueue("insert room", func(ctx context.Context) error { return m.store.InsertRoom(ctx, rec) })
	m.enqueueMember(r.ID, host)

	log.Infof("room %s created by %s", r.ID, user.ID)
	r.addLogUnsafe(fmt.Sprintf("%s created the room", host.Username), models.LogSystem, host)

	conn.Write(game.GameEvent{Type: EventRoomCreated, Payload: map[string]interface{}{"room": r.stateUnsafe()}})
	m.sendPracticeHandUnsafe(r, host)
	return r, nil
}

// JoinRoom seats user in roomID. The fourth seat starts the game.
func (m *Manager) JoinRoom(roomID uuid.UUID, conn Connection, user models.User) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if len(r.Players) >= r.MaxPlayers {
		return nil, ErrRoomFull
	}
	if r.Status != StatusWaiting {
		return nil, ErrRoomNotWaiting
	}
	if _, ok := m.userRooms[user.ID]; ok {
		return nil, ErrAlreadyInRoom
	}

	p := newPlayer(conn, user, false)
	r.Players = append(r.Players, p)
	m.connRooms[conn.ID()] = r.ID
	m.userRooms[user.ID] = r.ID
	m.enqueueMember(r.ID, p)

	log.Infof("room %s: %s joined (%d/%d)", r.ID, user.ID, len(r.Players), r.MaxPlayers)
	r.addLogUnsafe(fmt.Sprintf("%s joined the room", p.Username), models.LogPlayer, p)

	conn.Write(game.GameEvent{Type: EventRoomJoined, Payload: map[string]interface{}{
		"room":          r.stateUnsafe(),
		"currentUserId": user.ID,
	}})
	r.broadcastRoomUpdateUnsafe("player_joined")

	if len(r.Players) < r.MaxPlayers {
		m.sendPracticeHandUnsafe(r, p)
	}
	m.maybeStartGameUnsafe(r)
	return r, nil
}

func (m *Manager) enqueueMember(roomID uuid.UUID, p *ConnectedPlayer) {
	rec := models.RoomPlayerRecord{RoomID: roomID, UserID: p.UserID, IsHost: p.IsHost, JoinedAt: p.JoinedAt}
	m.persist.enqueue("insert room player", func(ctx context.Context) error { return m.store.InsertRoomPlayer(ctx, rec) })
}

func (m *Manager) enqueueStatus(r *Room) {
	id, status := r.ID, string(r.Status)
	m.persist.enqueue("update room status", func(ctx context.Context) error { return m.store.UpdateRoomStatus(ctx, id, status) })
}

// sendPracticeHandUnsafe deals a throwaway hand so a seated player has
// something to look at while the table fills.
func (m *Manager) sendPracticeHandUnsafe(r *Room, p *ConnectedPlayer) {
	if p.Conn == nil || m.cfg.PracticeHandSize <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	hand := cards.DealPractice(cards.MinLevel, m.cfg.PracticeHandSize, rng)
	p.Conn.Write(game.GameEvent{Type: game.EventYourHand, Payload: map[string]interface{}{
		"cards":        hand,
		"currentLevel": cards.MinLevel,
		"practice":     true,
	}})
}

// maybeStartGameUnsafe starts the game once a waiting room has four connected seats.
func (m *Manager) maybeStartGameUnsafe(r *Room) {
	if r.Status != StatusWaiting || len(r.Players) != r.MaxPlayers || r.connectedCountUnsafe() != r.MaxPlayers {
		return
	}
	if err := m.startGameUnsafe(r); err != nil {
		log.Errorf("room %s: auto-start failed: %v", r.ID, err)
	}
}

func (m *Manager) startGameUnsafe(r *Room) error {
	seats := make([]*game.Seat, 0, len(r.Players))
	for _, p := range r.Players {
		seats = append(seats, &game.Seat{UserID: p.UserID, Username: p.Username, Connected: p.Connected})
	}
	if r.Game != nil {
		r.Game.Stop()
	}
	g := game.NewGuandanGame(r.ID, seats, &r.Mu, m.cfg.Timing)
	g.BroadcastFn = r.broadcastUnsafe
	g.BroadcastToPlayerFn = r.sendToUnsafe
	g.OnAction = func(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
		m.logGameActionUnsafe(r, actorID, actionType, payload)
	}
	g.OnRoundEnd = func(roomID uuid.UUID, res rules.RoundResult, matchOver bool) {
		r.Status = StatusFinished
		m.enqueueStatus(r)
		rec := models.RoundRecord{
			ID:          uuid.New(),
			RoomID:      roomID,
			GameID:      g.ID,
			Round:       g.Round,
			Level:       g.CurrentLevel,
			WinningTeam: res.WinningTeam,
			LevelDelta:  res.LevelDelta,
			Tribute:     string(res.Tribute.Type),
			Rankings:    res.Rankings,
			MatchOver:   matchOver,
			FinishedAt:  time.Now(),
		}
		m.persist.enqueue("insert round result", func(ctx context.Context) error { return m.store.InsertRoundResult(ctx, rec) })
		r.broadcastRoomUpdateUnsafe("round_finished")
	}

	r.Game = g
	r.Status = StatusPlaying
	if err := g.StartRound(); err != nil {
		r.Game = nil
		r.Status = StatusWaiting
		return err
	}
	m.enqueueStatus(r)
	r.broadcastRoomUpdateUnsafe("game_started")
	return nil
}

func (m *Manager) logGameActionUnsafe(r *Room, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	actor := r.findPlayerUnsafe(actorID)
	name := ""
	if actor != nil {
		name = actor.Username
	}
	var msg string
	logType := models.LogGame
	switch actionType {
	case "round_start":
		msg = fmt.Sprintf("Round %v started at level %v", payload["round"], payload["level"])
	case "play_phase_start":
		msg = "Thinking time is over, play begins"
	case "play_cards":
		msg = fmt.Sprintf("%s played %v", name, payload["playType"])
		if bomb, _ := payload["isBomb"].(bool); bomb {
			msg = fmt.Sprintf("%s dropped a bomb: %v", name, payload["playType"])
		}
		logType = models.LogPlayer
	case "pass_turn":
		msg = fmt.Sprintf("%s passed", name)
		if auto, _ := payload["auto"].(bool); auto {
			msg = fmt.Sprintf("%s ran out of time and passed", name)
		}
		logType = models.LogPlayer
	case "player_finished":
		msg = fmt.Sprintf("%s finished in place %v", name, payload["place"])
	case "round_finished":
		msg = fmt.Sprintf("Round finished, level change %v", payload["levelDelta"])
	default:
		msg = actionType
	}
	r.addLogUnsafe(msg, logType, actor)
}

// roomForConn resolves the room a connection is bound to.
func (m *Manager) roomForConn(connID uuid.UUID) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.connRooms[connID]
	if !ok {
		return nil, ErrNotInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// StartGame lets the host start a full waiting room, or deal the next round
// of a finished one.
func (m *Manager) StartGame(connID uuid.UUID) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findByConnUnsafe(connID)
	if p == nil {
		return ErrNotInRoom
	}
	if !p.IsHost {
		return ErrNotHost
	}
	switch r.Status {
	case StatusWaiting:
		if len(r.Players) != r.MaxPlayers {
			return ErrNotEnoughPlayers
		}
		return m.startGameUnsafe(r)
	case StatusFinished:
		if r.Game == nil {
			return m.startGameUnsafe(r)
		}
		if err := r.Game.NextRound(); err != nil {
			return err
		}
		r.Status = StatusPlaying
		m.enqueueStatus(r)
		r.broadcastRoomUpdateUnsafe("game_started")
		return nil
	default:
		return ErrRoomNotWaiting
	}
}

// PlayCards forwards a play to the room's game.
func (m *Manager) PlayCards(connID uuid.UUID, played []cards.Card) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.findByConnUnsafe(connID)
	if p == nil {
		return ErrNotInRoom
	}
	if r.Game == nil {
		return game.ErrGameNotActive
	}
	return r.Game.HandlePlay(p.UserID, played)
}

// PassTurn forwards an explicit pass to the room's game.
func (m *Manager) PassTurn(connID uuid.UUID) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.findByConnUnsafe(connID)
	if p == nil {
		return ErrNotInRoom
	}
	if r.Game == nil {
		return game.ErrGameNotActive
	}
	return r.Game.HandlePass(p.UserID, false)
}

// LeaveRoom permanently frees the caller's seat. Leaving during an active
// round abandons it and the room returns to waiting.
func (m *Manager) LeaveRoom(connID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.connRooms[connID]
	if !ok {
		return ErrNotInRoom
	}
	r := m.rooms[roomID]
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findByConnUnsafe(connID)
	if p == nil {
		delete(m.connRooms, connID)
		return ErrNotInRoom
	}
	conn := p.Conn
	m.removeSeatUnsafe(r, p, "left the room")
	if conn != nil {
		conn.Write(game.GameEvent{Type: EventRoomLeft, Payload: map[string]interface{}{"roomId": r.ID}})
	}
	return nil
}

// removeSeatUnsafe drops p from r and every index, reassigning the host or
// deleting the room as needed. Assumes both locks are held.
func (m *Manager) removeSeatUnsafe(r *Room, p *ConnectedPlayer, reason string) {
	r.removePlayerUnsafe(p.UserID)
	if p.Conn != nil {
		delete(m.connRooms, p.ConnID)
	}
	delete(m.userRooms, p.UserID)
	roomID, userID := r.ID, p.UserID
	m.persist.enqueue("delete room player", func(ctx context.Context) error { return m.store.DeleteRoomPlayer(ctx, roomID, userID) })

	log.Infof("room %s: %s %s", r.ID, p.UserID, reason)
	r.addLogUnsafe(fmt.Sprintf("%s %s", p.Username, reason), models.LogPlayer, p)

	// A table that lost a seat cannot continue; it reopens for new players.
	if r.Status == StatusPlaying || r.Status == StatusFinished {
		if r.Status == StatusPlaying {
			r.addLogUnsafe("Round abandoned, waiting for players", models.LogSystem, nil)
		}
		if r.Game != nil {
			r.Game.Stop()
			r.Game = nil
		}
		r.Status = StatusWaiting
		m.enqueueStatus(r)
	}

	if len(r.Players) == 0 {
		if p.IsHost {
			delete(m.hostRooms, p.UserID)
		}
		if r.Game != nil {
			r.Game.Stop()
		}
		delete(m.rooms, r.ID)
		m.persist.enqueue("delete room", func(ctx context.Context) error { return m.store.DeleteRoom(ctx, roomID) })
		log.Infof("room %s is empty, deleted", r.ID)
		return
	}

	if p.IsHost {
		delete(m.hostRooms, p.UserID)
		next := r.Players[0]
		next.IsHost = true
		r.HostID = next.UserID
		m.hostRooms[next.UserID] = r.ID
		newHost := next.UserID
		m.persist.enqueue("update room host", func(ctx context.Context) error { return m.store.UpdateRoomHost(ctx, roomID, newHost) })
		m.persist.enqueue("set room player host", func(ctx context.Context) error {
			return m.store.SetRoomPlayerHost(ctx, roomID, newHost, true)
		})
		r.addLogUnsafe(fmt.Sprintf("%s is now the host", next.Username), models.LogSystem, next)
		r.broadcastRoomUpdateUnsafe("host_changed")
	}
	r.broadcastRoomUpdateUnsafe("player_left")
}

// TemporaryLeave detaches the caller's connection but keeps the seat.
func (m *Manager) TemporaryLeave(connID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.connRooms[connID]
	if !ok {
		return ErrNotInRoom
	}
	r := m.rooms[roomID]
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findByConnUnsafe(connID)
	if p == nil {
		delete(m.connRooms, connID)
		return ErrNotInRoom
	}
	m.temporaryLeaveUnsafe(r, p, true)
	return nil
}

// HandleDisconnect marks the seat bound to connID as disconnected. Unknown or
// superseded connections are ignored.
func (m *Manager) HandleDisconnect(connID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.connRooms[connID]
	if !ok {
		return
	}
	r, ok := m.rooms[roomID]
	if !ok {
		delete(m.connRooms, connID)
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findByConnUnsafe(connID)
	if p == nil {
		delete(m.connRooms, connID)
		return
	}
	m.temporaryLeaveUnsafe(r, p, false)
}

func (m *Manager) temporaryLeaveUnsafe(r *Room, p *ConnectedPlayer, notify bool) {
	conn := p.Conn
	delete(m.connRooms, p.ConnID)
	p.Conn = nil
	p.ConnID = uuid.Nil
	p.Connected = false
	if r.Game != nil {
		r.Game.SetConnected(p.UserID, false)
	}

	log.Infof("room %s: %s disconnected (seat kept)", r.ID, p.UserID)
	r.addLogUnsafe(fmt.Sprintf("%s disconnected", p.Username), models.LogSystem, p)
	r.broadcastUnsafe(game.GameEvent{Type: EventPlayerDisconnected, Payload: map[string]interface{}{
		"playerId": p.UserID,
		"username": p.Username,
	}})
	if notify && conn != nil {
		conn.Write(game.GameEvent{Type: EventRoomLeft, Payload: map[string]interface{}{"roomId": r.ID, "temporary": true}})
	}
}

// KickPlayer removes target from the caller's room. Host only, before the game.
func (m *Manager) KickPlayer(connID, target uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.connRooms[connID]
	if !ok {
		return ErrNotInRoom
	}
	r := m.rooms[roomID]
	r.Mu.Lock()
	defer r.Mu.Unlock()

	host := r.findByConnUnsafe(connID)
	if host == nil {
		return ErrNotInRoom
	}
	if !host.IsHost {
		return ErrNotHost
	}
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if target == host.UserID {
		return ErrSelfKickForbidden
	}
	victim := r.findPlayerUnsafe(target)
	if victim == nil {
		return ErrNotInRoom
	}

	conn := victim.Conn
	m.removeSeatUnsafe(r, victim, "was kicked")
	if conn != nil {
		conn.Write(game.GameEvent{Type: EventKickedFromRoom, Payload: map[string]interface{}{
			"roomId":  r.ID,
			"by":      host.Username,
			"message": fmt.Sprintf("you were removed from %s by the host", r.Name),
		}})
	}
	host.Conn.Write(game.GameEvent{Type: EventKickResult, Payload: map[string]interface{}{
		"success":      true,
		"targetUserId": target,
	}})
	return nil
}

// Reconnect binds conn to the seat user holds in any room. It returns false
// when the user has no seat. Calling it again with the same connection is
// harmless; a different live connection for the same seat is closed.
func (m *Manager) Reconnect(conn Connection, userID uuid.UUID) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.userRooms[userID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[roomID]
	if !ok {
		delete(m.userRooms, userID)
		return nil, false
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	m.cleanupDuplicatesUnsafe(r)
	p := r.findPlayerUnsafe(userID)
	if p == nil {
		delete(m.userRooms, userID)
		return nil, false
	}

	if p.Conn != nil && p.ConnID != conn.ID() {
		delete(m.connRooms, p.ConnID)
		old := p.Conn
		old.Write(game.GameEvent{Type: EventError, Payload: map[string]interface{}{
			"code":    "SESSION_REPLACED",
			"message": "connected from another session",
		}})
		old.Close()
	}
	p.Conn = conn
	p.ConnID = conn.ID()
	p.Connected = true
	m.connRooms[conn.ID()] = r.ID
	if r.Game != nil {
		r.Game.SetConnected(userID, true)
	}

	log.Infof("room %s: %s reconnected", r.ID, userID)
	r.addLogUnsafe(fmt.Sprintf("%s reconnected", p.Username), models.LogSystem, p)

	payload := map[string]interface{}{"room": r.stateUnsafe()}
	if r.Game != nil {
		payload["gameState"] = r.Game.Snapshot(userID)
		payload["yourCards"] = r.Game.Hand(userID)
	}
	conn.Write(game.GameEvent{Type: EventReconnectSuccess, Payload: payload})
	conn.Write(game.GameEvent{Type: EventGameLogsSync, Payload: map[string]interface{}{
		"roomId": r.ID,
		"logs":   r.logsUnsafe(),
	}})
	r.broadcastUnsafe(game.GameEvent{Type: EventPlayerReconnected, Payload: map[string]interface{}{
		"playerId": userID,
		"username": p.Username,
	}})

	m.maybeStartGameUnsafe(r)
	return r, true
}

// CleanupDuplicatePlayers keeps only the most recently joined seat per user in
// roomID and returns how many entries were removed.
func (m *Manager) CleanupDuplicatePlayers(roomID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return m.cleanupDuplicatesUnsafe(r), nil
}

// CleanupDuplicatesAsHost runs duplicate cleanup on the caller's room. Host only.
func (m *Manager) CleanupDuplicatesAsHost(connID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.connRooms[connID]
	if !ok {
		return 0, ErrNotInRoom
	}
	r := m.rooms[roomID]
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findByConnUnsafe(connID)
	if p == nil {
		return 0, ErrNotInRoom
	}
	if !p.IsHost {
		return 0, ErrNotHost
	}
	return m.cleanupDuplicatesUnsafe(r), nil
}

func (m *Manager) cleanupDuplicatesUnsafe(r *Room) int {
	latest := make(map[uuid.UUID]*ConnectedPlayer, len(r.Players))
	for _, p := range r.Players {
		if cur, ok := latest[p.UserID]; !ok || p.JoinedAt.After(cur.JoinedAt) {
			latest[p.UserID] = p
		}
	}
	if len(latest) == len(r.Players) {
		return 0
	}

	kept := make([]*ConnectedPlayer, 0, len(latest))
	removed := 0
	for _, p := range r.Players {
		if latest[p.UserID] == p {
			kept = append(kept, p)
			continue
		}
		removed++
		if p.Conn != nil {
			if keep := latest[p.UserID]; keep.ConnID != p.ConnID {
				delete(m.connRooms, p.ConnID)
			}
		}
		if p.IsHost && !latest[p.UserID].IsHost {
			latest[p.UserID].IsHost = true
		}
	}
	r.Players = kept
	log.Warnf("room %s: removed %d duplicate player entries", r.ID, removed)
	r.broadcastRoomUpdateUnsafe("duplicates_cleaned")
	return removed
}

// RoomIDForConn returns the room a connection is seated in.
func (m *Manager) RoomIDForConn(connID uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.connRooms[connID]
	return id, ok
}

// ListRooms returns a snapshot of every room, oldest first.
func (m *Manager) ListRooms() []Summary {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.Mu.Lock()
		out = append(out, r.summaryUnsafe())
		r.Mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GameLogs returns the rolling log of a room. Rooms no longer in memory are
// served from the log mirror when one is configured.
func (m *Manager) GameLogs(ctx context.Context, roomID uuid.UUID) ([]models.GameLogEntry, error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	m.mu.Unlock()
	if ok {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		return r.logsUnsafe(), nil
	}
	if m.mirror == nil {
		return nil, ErrRoomNotFound
	}
	logs, err := m.mirror.FetchRoomLogs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("fetch mirrored logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, ErrRoomNotFound
	}
	return logs, nil
}
