package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const pgColumns = `id, user_id, provider_id, provider_user_id, access_token, secret,
	refresh_token, expires_at, display_name, full_name, profile_url, image_url,
	email, rank, created_at, updated_at`

const pgOrder = ` ORDER BY rank, created_at, id`

// Postgres stores connections in the social_connections table.
// The schema ships with pkg/db migrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgresDatastore creates a datastore over an existing pool.
// The pool should be obtained from pkg/db.Connect.
func NewPostgresDatastore(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Begin starts a unit of work. The underlying transaction is opened on first use.
func (p *Postgres) Begin(context.Context) (Store, error) {
	return &postgresUnit{pool: p.pool}, nil
}

// Healthcheck pings the database.
func (p *Postgres) Healthcheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// postgresUnit runs every operation inside a single transaction.
type postgresUnit struct {
	pool   *pgxpool.Pool
	tx     pgx.Tx
	closed bool
}

func (u *postgresUnit) txn(ctx context.Context) (pgx.Tx, error) {
	if u.closed {
		return nil, ErrUnitClosed
	}
	if u.tx == nil {
		tx, err := u.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("connection: begin transaction: %w", err)
		}
		u.tx = tx
	}
	return u.tx, nil
}

func (u *postgresUnit) FindConnection(ctx context.Context, f Filter) (*Connection, error) {
	tx, err := u.txn(ctx)
	if err != nil {
		return nil, err
	}

	where, args := pgWhere(f)
	row := tx.QueryRow(ctx, "SELECT "+pgColumns+" FROM social_connections"+where+pgOrder+" LIMIT 1", args...)
	c, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("connection: find: %w", err)
	}
	return c, nil
}

func (u *postgresUnit) FindConnections(ctx context.Context, f Filter) ([]*Connection, error) {
	tx, err := u.txn(ctx)
	if err != nil {
		return nil, err
	}

	where, args := pgWhere(f)
	rows, err := tx.Query(ctx, "SELECT "+pgColumns+" FROM social_connections"+where+pgOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("connection: find all: %w", err)
	}
	defer rows.Close()

	conns := make([]*Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("connection: scan: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("connection: find all: %w", err)
	}
	return conns, nil
}

func (u *postgresUnit) CreateConnection(ctx context.Context, c *Connection) (*Connection, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	tx, err := u.txn(ctx)
	if err != nil {
		return nil, err
	}

	stored := *c
	stored.prepareCreate()

	// Savepoint keeps the outer transaction usable after a unique violation.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection: savepoint: %w", err)
	}

	_, err = sp.Exec(ctx, `INSERT INTO social_connections (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		stored.ID, stored.UserID, stored.ProviderID, stored.ProviderUserID,
		stored.AccessToken, stored.Secret, stored.RefreshToken, nullTime(stored.ExpiresAt),
		stored.DisplayName, stored.FullName, stored.ProfileURL, stored.ImageURL,
		stored.Email, stored.Rank, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("connection: create: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("connection: release savepoint: %w", err)
	}

	return &stored, nil
}

func (u *postgresUnit) UpdateConnection(ctx context.Context, c *Connection) error {
	tx, err := u.txn(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE social_connections SET
		access_token = $2, secret = $3, refresh_token = $4, expires_at = $5,
		display_name = $6, full_name = $7, profile_url = $8, image_url = $9,
		email = $10, rank = $11, updated_at = $12
		WHERE id = $1`,
		c.ID, c.AccessToken, c.Secret, c.RefreshToken, nullTime(c.ExpiresAt),
		c.DisplayName, c.FullName, c.ProfileURL, c.ImageURL,
		c.Email, c.Rank, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("connection: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (u *postgresUnit) DeleteConnection(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}
	tx, err := u.txn(ctx)
	if err != nil {
		return false, err
	}

	where, args := pgWhere(f)
	tag, err := tx.Exec(ctx, `DELETE FROM social_connections WHERE id = (
		SELECT id FROM social_connections`+where+pgOrder+` LIMIT 1)`, args...)
	if err != nil {
		return false, fmt.Errorf("connection: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (u *postgresUnit) DeleteConnections(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}
	tx, err := u.txn(ctx)
	if err != nil {
		return false, err
	}

	where, args := pgWhere(f)
	tag, err := tx.Exec(ctx, "DELETE FROM social_connections"+where, args...)
	if err != nil {
		return false, fmt.Errorf("connection: delete all: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (u *postgresUnit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("connection: commit: %w", err)
	}
	return nil
}

func (u *postgresUnit) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("connection: rollback: %w", err)
	}
	return nil
}

// pgWhere builds a WHERE clause with positional arguments for the set filter fields.
func pgWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("user_id", f.UserID)
	add("provider_id", f.ProviderID)
	add("provider_user_id", f.ProviderUserID)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanConnection(row pgx.Row) (*Connection, error) {
	var (
		c       Connection
		expires *time.Time
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.ProviderID, &c.ProviderUserID, &c.AccessToken, &c.Secret,
		&c.RefreshToken, &expires, &c.DisplayName, &c.FullName, &c.ProfileURL, &c.ImageURL,
		&c.Email, &c.Rank, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expires != nil {
		c.ExpiresAt = *expires
	}
	return &c, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
