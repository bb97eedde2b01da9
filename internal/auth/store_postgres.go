package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
)

// PostgresUserStore persists users in PostgreSQL. The users table
// carries a unique index on lower(username).
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID.String(), user.Username, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id domain.UserID) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id.String()))
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, name, password_hash, created_at, updated_at
		FROM users
		WHERE lower(username) = lower($1)
	`, username))
}

func (s *PostgresUserStore) scanUser(row pgx.Row) (*User, error) {
	var (
		user  User
		rawID string
	)
	err := row.Scan(&rawID, &user.Username, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse stored user id: %w", err)
	}
	user.ID = id
	return &user, nil
}

// PostgresSessionStore persists login sessions in PostgreSQL.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, device, fingerprint, token_id, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID.String(), session.UserID.String(), session.Device, session.Fingerprint,
		session.TokenID, session.CreatedAt, session.ExpiresAt, session.RevokedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) FindByID(ctx context.Context, id domain.SessionID) (*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, device, fingerprint, token_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	defer rows.Close()
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return sessions[0], nil
}

func (s *PostgresSessionStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, device, fingerprint, token_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *PostgresSessionStore) Update(ctx context.Context, session *Session) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET device = $2, fingerprint = $3, token_id = $4, expires_at = $5, revoked_at = $6
		WHERE id = $1
	`, session.ID.String(), session.Device, session.Fingerprint, session.TokenID, session.ExpiresAt, session.RevokedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanSessions(rows pgx.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		var (
			session   Session
			rawID     string
			rawUserID string
		)
		if err := rows.Scan(&rawID, &rawUserID, &session.Device, &session.Fingerprint,
			&session.TokenID, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		id, err := domain.ParseSessionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse stored session id: %w", err)
		}
		userID, err := domain.ParseUserID(rawUserID)
		if err != nil {
			return nil, fmt.Errorf("parse stored session user id: %w", err)
		}
		session.ID = id
		session.UserID = userID
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
