package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores sessions in the social_sessions table created by
// db.MigrateSchema.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (p *Postgres) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("session: encode values: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO social_sessions (id, token, user_id, data, ip, user_agent, created_at, last_active_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Token, nullString(s.UserID), data, s.IP, s.UserAgent, s.CreatedAt, s.LastActiveAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, token string) (*Session, error) {
	var (
		s      Session
		userID *string
		data   []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, token, user_id, data, ip, user_agent, created_at, last_active_at, expires_at
		FROM social_sessions WHERE token = $1`, token,
	).Scan(&s.ID, &s.Token, &userID, &data, &s.IP, &s.UserAgent, &s.CreatedAt, &s.LastActiveAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	if userID != nil {
		s.UserID = *userID
	}
	s.Values = make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.Values); err != nil {
			return nil, fmt.Errorf("session: decode values: %w", err)
		}
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return &s, nil
}

func (p *Postgres) Update(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("session: encode values: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE social_sessions
		SET token = $2, user_id = $3, data = $4, ip = $5, user_agent = $6, last_active_at = $7, expires_at = $8
		WHERE id = $1`,
		s.ID, s.Token, nullString(s.UserID), data, s.IP, s.UserAgent, s.LastActiveAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM social_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM social_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("session: delete user sessions: %w", err)
	}
	return nil
}

func (p *Postgres) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE social_sessions SET last_active_at = $2 WHERE id = $1`, id, lastActiveAt)
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes expired sessions. Schedule it with job.NewSessionCleanupTask.
func (p *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM social_sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("session: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
