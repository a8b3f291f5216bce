// Package pg implements core.ConnectionRepository on PostgreSQL.
// Provider credentials are encrypted with the master key before they
// touch the database and decrypted on the way out.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/charo360/nevis-connect/internal/security/secretbox"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// Repo implements core.ConnectionRepository on a pgx pool.
type Repo struct {
	pool *pgxpool.Pool
}

// New opens a pool against dsn and returns the repository.
func New(ctx context.Context, dsn string) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Pool exposes the underlying pool for migrations.
func (r *Repo) Pool() *pgxpool.Pool { return r.pool }

func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ensureID mints the primary key for a first-time link. On relink the
// ON CONFLICT branch keeps the stored id, which RETURNING writes back.
func ensureID(c *core.Connection) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
}

func (r *Repo) Upsert(ctx context.Context, c *core.Connection) error {
	if c.UserID == "" || c.Platform == "" || c.AccountID == "" {
		return core.ErrInvalid
	}
	ensureID(c)
	accessEnc, err := sealField(c.AccessToken)
	if err != nil {
		return err
	}
	secretEnc, err := sealField(c.AccessSecret)
	if err != nil {
		return err
	}
	refreshEnc, err := sealField(c.RefreshToken)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO social_connection (
			id, user_id, platform, account_id, handle, display_name,
			picture_url, email, account_type,
			access_token_enc, access_secret_enc, refresh_token_enc,
			token_expiry, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, NOW(), NOW()
		)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			handle = EXCLUDED.handle,
			display_name = EXCLUDED.display_name,
			picture_url = EXCLUDED.picture_url,
			email = EXCLUDED.email,
			account_type = EXCLUDED.account_type,
			access_token_enc = EXCLUDED.access_token_enc,
			access_secret_enc = EXCLUDED.access_secret_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Platform, c.AccountID, c.Handle, c.DisplayName,
		c.PictureURL, c.Email, c.AccountType,
		accessEnc, secretEnc, refreshEnc,
		c.TokenExpiry,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *Repo) Get(ctx context.Context, userID, platform string) (*core.Connection, error) {
	const query = selectConnection + ` WHERE user_id = $1 AND platform = $2`
	c, err := scanConnection(r.pool.QueryRow(ctx, query, userID, platform))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return c, err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*core.Connection, error) {
	const query = selectConnection + ` WHERE user_id = $1 ORDER BY platform`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, userID, platform string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM social_connection WHERE user_id = $1 AND platform = $2`, userID, platform)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

const selectConnection = `
	SELECT id, user_id, platform, account_id, handle, display_name,
	       picture_url, email, account_type,
	       access_token_enc, access_secret_enc, refresh_token_enc,
	       token_expiry, created_at, updated_at
	FROM social_connection`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*core.Connection, error) {
	var c core.Connection
	var accessEnc, secretEnc, refreshEnc string
	err := row.Scan(
		&c.ID, &c.UserID, &c.Platform, &c.AccountID, &c.Handle, &c.DisplayName,
		&c.PictureURL, &c.Email, &c.AccountType,
		&accessEnc, &secretEnc, &refreshEnc,
		&c.TokenExpiry, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.AccessToken, err = openField(accessEnc); err != nil {
		return nil, err
	}
	if c.AccessSecret, err = openField(secretEnc); err != nil {
		return nil, err
	}
	if c.RefreshToken, err = openField(refreshEnc); err != nil {
		return nil, err
	}
	return &c, nil
}

func sealField(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	return secretbox.Encrypt(plain)
}

func openField(enc string) (string, error) {
	if enc == "" {
		return "", nil
	}
	return secretbox.Decrypt(enc)
}
