// internal/room/room.go
package room

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/jason-s-yu/guandan/internal/models"
	log "github.com/sirupsen/logrus"
)

// Status of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Connection is a live client session a room can push events to.
type Connection interface {
	ID() uuid.UUID
	// Write must not block.
	Write(ev game.GameEvent)
	Close()
}

// ConnectedPlayer is a seat in a room. Conn is nil while the player is away.
type ConnectedPlayer struct {
	UserID    uuid.UUID  `json:"userId"`
	Username  string     `json:"username"`
	IsHost    bool       `json:"isHost"`
	Connected bool       `json:"connected"`
	JoinedAt  time.Time  `json:"joinedAt"`
	ConnID    uuid.UUID  `json:"-"`
	Conn      Connection `json:"-"`
}

// Room is a four-seat table with its game and rolling log.
type Room struct {
	ID         uuid.UUID
	Name       string
	HostID     uuid.UUID
	MaxPlayers int
	Status     Status
	CreatedAt  time.Time

	// Players is kept in join order.
	Players []*ConnectedPlayer
	Game    *game.GuandanGame

	logs   *circularbuffer.Queue
	onLog  func(roomID uuid.UUID, entry models.GameLogEntry)
	logCap int

	// Mu serializes every mutation of the room and its game, timer ticks included.
	Mu sync.Mutex
}

func newRoom(name string, hostID uuid.UUID, logCapacity int) *Room {
	if logCapacity <= 0 {
		logCapacity = 100
	}
	return &Room{
		ID:         uuid.New(),
		Name:       name,
		HostID:     hostID,
		MaxPlayers: cards.PlayerCount,
		Status:     StatusWaiting,
		CreatedAt:  time.Now(),
		logs:       circularbuffer.New(logCapacity),
		logCap:     logCapacity,
	}
}

// PlayerState is the public view of a seat.
type PlayerState struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	IsHost    bool      `json:"isHost"`
	Connected bool      `json:"connected"`
}

// State is the room payload carried by room_* events.
type State struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	HostID     uuid.UUID     `json:"hostId"`
	Status     Status        `json:"status"`
	MaxPlayers int           `json:"maxPlayers"`
	Players    []PlayerState `json:"players"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Summary is a room listing entry.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	Status      Status    `json:"status"`
	Host        string    `json:"host"`
	PlayerNames []string  `json:"playerNames"`
	CreatedAt   time.Time `json:"createdAt"`
}

// stateUnsafe assumes lock is held.
func (r *Room) stateUnsafe() State {
	st := State{
		ID:         r.ID,
		Name:       r.Name,
		HostID:     r.HostID,
		Status:     r.Status,
		MaxPlayers: r.MaxPlayers,
		CreatedAt:  r.CreatedAt,
		Players:    make([]PlayerState, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		st.Players = append(st.Players, PlayerState{
			UserID:    p.UserID,
			Username:  p.Username,
			IsHost:    p.IsHost,
			Connected: p.Connected,
		})
	}
	return st
}

func (r *Room) summaryUnsafe() Summary {
	s := Summary{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		PlayerNames: make([]string, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		s.PlayerNames = append(s.PlayerNames, p.Username)
		if p.UserID == r.HostID {
			s.Host = p.Username
		}
	}
	return s
}

func (r *Room) findPlayerUnsafe(userID uuid.UUID) *ConnectedPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) findByConnUnsafe(connID uuid.UUID) *ConnectedPlayer {
	for _, p := range r.Players {
		if p.Conn != nil && p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayerUnsafe(userID uuid.UUID) *ConnectedPlayer {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

func (r *Room) connectedCountUnsafe() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// broadcastUnsafe writes ev to every connected seat. Assumes lock is held.
func (r *Room) broadcastUnsafe(ev game.GameEvent) {
	for _, p := range r.Players {
		if p.Conn != nil {
			p.Conn.Write(ev)
		}
	}
}

func (r *Room) sendToUnsafe(userID uuid.UUID, ev game.GameEvent) {
	if p := r.findPlayerUnsafe(userID); p != nil && p.Conn != nil {
		p.Conn.Write(ev)
	}
}

func (r *Room) broadcastRoomUpdateUnsafe(updateType string) {
	st := r.stateUnsafe()
	r.broadcastUnsafe(game.GameEvent{
		Type: EventRoomUpdate,
		Payload: map[string]interface{}{
			"type":    updateType,
			"room":    st,
			"players": st.Players,
			"status":  st.Status,
		},
	})
}

// addLogUnsafe appends to the rolling log, evicting the oldest entry when full.
func (r *Room) addLogUnsafe(message string, logType models.LogType, player *ConnectedPlayer) models.GameLogEntry {
	entry := models.GameLogEntry{
		ID:        uuid.New(),
		Timestamp: time.Now().UnixMilli(),
		Message:   message,
		Type:      logType,
	}
	if player != nil {
		id := player.UserID
		entry.PlayerID = &id
		entry.PlayerName = player.Username
	}
	if r.logs.Full() {
		r.logs.Dequeue()
	}
	r.logs.Enqueue(entry)
	log.Debugf("room %s log: %s", r.ID, message)
	if r.onLog != nil {
		r.onLog(r.ID, entry)
	}
	return entry
}

// logsUnsafe returns the rolling log, oldest first.
func (r *Room) logsUnsafe() []models.GameLogEntry {
	vals := r.logs.Values()
	out := make([]models.GameLogEntry, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.(models.GameLogEntry))
	}
	return out
}
