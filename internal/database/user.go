package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const uniqueViolation = "23505"

// UserStore is the user account contract used by the HTTP handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// prepareUser assigns an id and replaces the plaintext password with its hash.
func prepareUser(user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	hash, err := auth.HashPassword(user.Password, auth.DefaultHashParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	return nil
}

// PGUsers stores accounts in postgres.
type PGUsers struct {
	pool *pgxpool.Pool
}

func NewPGUsers(pool *pgxpool.Pool) *PGUsers {
	return &PGUsers{pool: pool}
}

func (s *PGUsers) CreateUser(ctx context.Context, user *models.User) error {
	if err := prepareUser(user); err != nil {
		return err
	}

	q := `INSERT INTO users (id, username, nickname, password, created_at)
	      VALUES ($1, $2, $3, $4, $5)`

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, user.Username, user.Nickname, user.Password, user.CreatedAt)
		return execErr
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PGUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, nickname, password, created_at FROM users WHERE username=$1`, username)
}

func (s *PGUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, nickname, password, created_at FROM users WHERE id=$1`, id)
}

func (s *PGUsers) getUser(ctx context.Context, q string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Nickname, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MemoryUsers keeps accounts in process for --no-db runs and tests.
type MemoryUsers struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]models.User
	byUsername map[string]uuid.UUID
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:       make(map[uuid.UUID]models.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (s *MemoryUsers) CreateUser(_ context.Context, user *models.User) error {
	key := strings.ToLower(user.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[key]; taken {
		return ErrUsernameTaken
	}
	if err := prepareUser(user); err != nil {
		return err
	}
	s.byID[user.ID] = *user
	s.byUsername[key] = user.ID
	return nil
}

func (s *MemoryUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *MemoryUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Authenticate checks credentials against store and issues a session token.
func Authenticate(ctx context.Context, store UserStore, username, password string) (*models.User, string, error) {
	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", auth.ErrAuthenticationFailed, err)
	}

	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return nil, "", fmt.Errorf("%w: invalid credentials", auth.ErrAuthenticationFailed)
	}

	token, err := auth.CreateJWT(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return user, token, nil
}
