package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/jason-s-yu/guandan/internal/room"
)

var _ room.Store = (*RoomStore)(nil)

// RoomStore persists rooms, memberships and round results in postgres.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) InsertRoom(ctx context.Context, rec models.RoomRecord) error {
	q := `INSERT INTO rooms (id, name, host_user_id, max_players, status, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q, rec.ID, rec.Name, rec.HostUserID, rec.MaxPlayers, rec.Status, rec.CreatedAt)
	return err
}

func (s *RoomStore) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE rooms SET status=$1 WHERE id=$2`, status, roomID)
	return err
}

func (s *RoomStore) UpdateRoomHost(ctx context.Context, roomID, hostID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE rooms SET host_user_id=$1 WHERE id=$2`, hostID, roomID)
	return err
}

// DeleteRoom removes the room; memberships go with it via ON DELETE CASCADE.
func (s *RoomStore) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	return err
}

func (s *RoomStore) InsertRoomPlayer(ctx context.Context, rec models.RoomPlayerRecord) error {
	q := `INSERT INTO room_players (room_id, user_id, is_host, joined_at)
	      VALUES ($1, $2, $3, $4)
	      ON CONFLICT (room_id, user_id) DO UPDATE SET is_host=$3`
	_, err := s.pool.Exec(ctx, q, rec.RoomID, rec.UserID, rec.IsHost, rec.JoinedAt)
	return err
}

func (s *RoomStore) DeleteRoomPlayer(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM room_players WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}

func (s *RoomStore) SetRoomPlayerHost(ctx context.Context, roomID, userID uuid.UUID, isHost bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE room_players SET is_host=$1 WHERE room_id=$2 AND user_id=$3`, isHost, roomID, userID)
	return err
}

// InsertRoundResult records a scored round and touches the room row in the
// same transaction.
func (s *RoomStore) InsertRoundResult(ctx context.Context, rec models.RoundRecord) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `INSERT INTO round_results
		        (id, room_id, game_id, round, level, winning_team, level_delta, tribute, rankings, match_over, finished_at)
		      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if _, err := tx.Exec(ctx, q,
			rec.ID, rec.RoomID, rec.GameID, rec.Round, rec.Level,
			rec.WinningTeam, rec.LevelDelta, rec.Tribute, rec.Rankings,
			rec.MatchOver, rec.FinishedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE rooms SET status='finished' WHERE id=$1`, rec.RoomID)
		return err
	})
}
