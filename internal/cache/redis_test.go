package cache

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomLogKey(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.Equal(t, "guandan:room:00000000-0000-0000-0000-000000000001:logs", roomLogKey(id))
}

func TestDecodeEntriesSkipsGarbage(t *testing.T) {
	pid := uuid.New()
	good := models.GameLogEntry{ID: uuid.New(), Timestamp: 42, Message: "hi", Type: models.LogPlayer, PlayerID: &pid, PlayerName: "a"}
	data, err := json.Marshal(good)
	require.NoError(t, err)

	got := decodeEntries([]string{"{not json", string(data)})
	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)
	assert.Equal(t, pid, *got[0].PlayerID)
}

func TestNewLogMirrorDefaultsTTL(t *testing.T) {
	m := NewLogMirror(nil, 0)
	assert.Equal(t, DefaultLogTTL, m.ttl)
}
