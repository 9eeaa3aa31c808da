// internal/room/store.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/models"
	log "github.com/sirupsen/logrus"
)

// Store persists room and membership rows. Calls are issued in order from a
// single background writer, so implementations need not coordinate writes.
type Store interface {
	InsertRoom(ctx context.Context, rec models.RoomRecord) error
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status string) error
	UpdateRoomHost(ctx context.Context, roomID, hostID uuid.UUID) error
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
	InsertRoomPlayer(ctx context.Context, rec models.RoomPlayerRecord) error
	DeleteRoomPlayer(ctx context.Context, roomID, userID uuid.UUID) error
	SetRoomPlayerHost(ctx context.Context, roomID, userID uuid.UUID, isHost bool) error
	InsertRoundResult(ctx context.Context, rec models.RoundRecord) error
}

// LogMirror copies rolling log entries to an external cache so they outlive
// the in-memory room.
type LogMirror interface {
	PushRoomLog(ctx context.Context, roomID uuid.UUID, entry models.GameLogEntry, capacity int) error
	FetchRoomLogs(ctx context.Context, roomID uuid.UUID) ([]models.GameLogEntry, error)
}

// MemoryStore keeps rows in process. Used when running without a database
// and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	Rooms   map[uuid.UUID]models.RoomRecord
	Members map[uuid.UUID]map[uuid.UUID]models.RoomPlayerRecord
	Results []models.RoundRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Rooms:   make(map[uuid.UUID]models.RoomRecord),
		Members: make(map[uuid.UUID]map[uuid.UUID]models.RoomPlayerRecord),
	}
}

func (s *MemoryStore) InsertRoom(_ context.Context, rec models.RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rooms[rec.ID] = rec
	s.Members[rec.ID] = make(map[uuid.UUID]models.RoomPlayerRecord)
	return nil
}

func (s *MemoryStore) UpdateRoomStatus(_ context.Context, roomID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.Rooms[roomID]; ok {
		rec.Status = status
		s.Rooms[roomID] = rec
	}
	return nil
}

func (s *MemoryStore) UpdateRoomHost(_ context.Context, roomID, hostID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.Rooms[roomID]; ok {
		rec.HostUserID = hostID
		s.Rooms[roomID] = rec
	}
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, roomID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Rooms, roomID)
	delete(s.Members, roomID)
	return nil
}

func (s *MemoryStore) InsertRoomPlayer(_ context.Context, rec models.RoomPlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Members[rec.RoomID] == nil {
		s.Members[rec.RoomID] = make(map[uuid.UUID]models.RoomPlayerRecord)
	}
	s.Members[rec.RoomID][rec.UserID] = rec
	return nil
}

func (s *MemoryStore) DeleteRoomPlayer(_ context.Context, roomID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Members[roomID], userID)
	return nil
}

func (s *MemoryStore) SetRoomPlayerHost(_ context.Context, roomID, userID uuid.UUID, isHost bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.Members[roomID][userID]; ok {
		rec.IsHost = isHost
		s.Members[roomID][userID] = rec
	}
	return nil
}

func (s *MemoryStore) InsertRoundResult(_ context.Context, rec models.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, rec)
	return nil
}

// RoundResults returns the stored round results of a room in insertion order.
func (s *MemoryStore) RoundResults(roomID uuid.UUID) []models.RoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RoundRecord
	for _, rec := range s.Results {
		if rec.RoomID == roomID {
			out = append(out, rec)
		}
	}
	return out
}

// Room returns a copy of a stored room row.
func (s *MemoryStore) Room(roomID uuid.UUID) (models.RoomRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Rooms[roomID]
	return rec, ok
}

// MemberCount returns the number of stored members of a room.
func (s *MemoryStore) MemberCount(roomID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Members[roomID])
}

// enqueueTimeout bounds how long a caller waits on a full queue.
const enqueueTimeout = 2 * time.Second

type storeOp struct {
	desc string
	fn   func(ctx context.Context) error
}

// persister applies store operations one at a time in submission order.
type persister struct {
	name   string
	mu     sync.Mutex
	ops    chan storeOp
	done   chan struct{}
	closed bool
}

func newPersister(name string, buffer int) *persister {
	p := &persister{
		name: name,
		ops:  make(chan storeOp, buffer),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for op := range p.ops {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := op.fn(ctx); err != nil {
			log.Errorf("%s: %s failed: %v", p.name, op.desc, err)
		}
		cancel()
	}
}

func (p *persister) enqueue(desc string, fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	op := storeOp{desc: desc, fn: fn}
	select {
	case p.ops <- op:
		return
	default:
	}
	log.Warnf("%s: queue full, waiting to submit %s", p.name, desc)
	t := time.NewTimer(enqueueTimeout)
	defer t.Stop()
	select {
	case p.ops <- op:
	case <-t.C:
		log.Errorf("%s: queue still full after %s, dropped %s", p.name, enqueueTimeout, desc)
	}
}

// close drains pending operations and stops the writer.
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ops)
	p.mu.Unlock()
	<-p.done
}
