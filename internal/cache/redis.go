// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultLogTTL bounds how long a room log outlives its last write.
const DefaultLogTTL = 24 * time.Hour

// Connect creates a client and verifies it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// LogMirror keeps a copy of each room's bounded rolling log in a redis list.
type LogMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLogMirror(rdb *redis.Client, ttl time.Duration) *LogMirror {
	if ttl <= 0 {
		ttl = DefaultLogTTL
	}
	return &LogMirror{rdb: rdb, ttl: ttl}
}

func roomLogKey(roomID uuid.UUID) string {
	return "guandan:room:" + roomID.String() + ":logs"
}

// PushRoomLog appends entry and trims the list to the newest capacity entries.
func (m *LogMirror) PushRoomLog(ctx context.Context, roomID uuid.UUID, entry models.GameLogEntry, capacity int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	key := roomLogKey(roomID)
	pipe := m.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	if capacity > 0 {
		pipe.LTrim(ctx, key, int64(-capacity), -1)
	}
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push to Redis list '%s': %w", key, err)
	}
	return nil
}

// FetchRoomLogs returns the mirrored log, oldest first. Undecodable entries
// are skipped.
func (m *LogMirror) FetchRoomLogs(ctx context.Context, roomID uuid.UUID) ([]models.GameLogEntry, error) {
	raw, err := m.rdb.LRange(ctx, roomLogKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room log: %w", err)
	}
	return decodeEntries(raw), nil
}

func decodeEntries(raw []string) []models.GameLogEntry {
	out := make([]models.GameLogEntry, 0, len(raw))
	for _, s := range raw {
		var e models.GameLogEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
