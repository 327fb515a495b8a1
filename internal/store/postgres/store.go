// Package postgres implements auth.UserStore on a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrEmailTaken is returned by CreateUser for a duplicate address.
var ErrEmailTaken = errors.New("postgres: email already registered")

const userColumns = `id, email, name, password_hash, email_verified,
	verification_token, verification_token_expires,
	mfa_secret, is_mfa_enabled, is_email_2fa_enabled, updated_at`

// Store is a user store backed by the users table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New wraps pool. The schema must already be migrated; see Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

// CreateUser inserts u. An empty ID gets a random UUID.
func (s *Store) CreateUser(ctx context.Context, u auth.User) (*auth.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = auth.NormalizeEmail(u.Email)
	secret, enabled := u.TOTP.Columns()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, email_verified,
			verification_token, verification_token_expires,
			mfa_secret, is_mfa_enabled, is_email_2fa_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.EmailVerified,
		u.VerificationToken, u.VerificationTokenExpires,
		secret, enabled, u.EmailTwoFactor, s.now().UTC(),
	)
	created, err := scanUser(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, auth.NormalizeEmail(email))
}

func (s *Store) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return s.exec(ctx, `
		UPDATE users SET verification_token = $2, verification_token_expires = $3, updated_at = $4
		WHERE id = $1`, id, token, expiresAt.UTC(), s.now().UTC())
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) error {
	return s.exec(ctx, `
		UPDATE users SET email_verified = TRUE, verification_token = NULL,
			verification_token_expires = NULL, updated_at = $2
		WHERE id = $1`, id, s.now().UTC())
}

func (s *Store) EnableTOTP(ctx context.Context, id, encryptedSecret string) error {
	secret, enabled := auth.PersistedTOTP(encryptedSecret).Columns()
	return s.exec(ctx, `
		UPDATE users SET mfa_secret = $2, is_mfa_enabled = $3, updated_at = $4
		WHERE id = $1`, id, secret, enabled, s.now().UTC())
}

func (s *Store) DisableTOTP(ctx context.Context, id string) error {
	return s.exec(ctx, `
		UPDATE users SET mfa_secret = NULL, is_mfa_enabled = FALSE, updated_at = $2
		WHERE id = $1`, id, s.now().UTC())
}

func (s *Store) SetEmailTwoFactor(ctx context.Context, id string, enabled bool) error {
	return s.exec(ctx, `
		UPDATE users SET is_email_2fa_enabled = $2, updated_at = $3
		WHERE id = $1`, id, enabled, s.now().UTC())
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return pg.Healthcheck(s.pool)(ctx)
}

func (s *Store) get(ctx context.Context, query string, arg any) (*auth.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// exec runs a single-row update and maps zero affected rows to ErrUserNotFound.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u       auth.User
		secret  *string
		enabled bool
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified,
		&u.VerificationToken, &u.VerificationTokenExpires,
		&secret, &enabled, &u.EmailTwoFactor, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.TOTP = auth.TOTPFromColumns(secret, enabled)
	u.UpdatedAt = u.UpdatedAt.UTC()
	if u.VerificationTokenExpires != nil {
		exp := u.VerificationTokenExpires.UTC()
		u.VerificationTokenExpires = &exp
	}
	return &u, nil
}
