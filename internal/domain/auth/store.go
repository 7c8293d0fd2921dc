package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	Role             string
	PasswordHash     string
	ManagerID        string
	TwoFactorEnabled bool
}

const authUserQuery = `
    SELECT id, email, first_name, last_name, role, password_hash,
           COALESCE(manager_id::text, ''), two_factor_enabled
    FROM users`

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	return s.scanUser(s.DB.QueryRow(ctx, authUserQuery+`
    WHERE lower(email) = lower($1) AND is_active
  `, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (AuthUser, error) {
	return s.scanUser(s.DB.QueryRow(ctx, authUserQuery+`
    WHERE id = $1 AND is_active
  `, id))
}

func (s *Store) scanUser(row pgx.Row) (AuthUser, error) {
	var u AuthUser
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role,
		&u.PasswordHash, &u.ManagerID, &u.TwoFactorEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, ErrUserNotFound
	}
	return u, err
}

func (s *Store) SaveTwoFactorCode(ctx context.Context, userID, codeHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET two_factor_code_hash = $1, two_factor_expires_at = $2
    WHERE id = $3
  `, codeHash, expires, userID)
	return err
}

// ConsumeTwoFactorCode clears the stored code iff it matches and has not
// expired, so each code verifies at most once.
func (s *Store) ConsumeTwoFactorCode(ctx context.Context, userID, codeHash string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET two_factor_code_hash = NULL, two_factor_expires_at = NULL
    WHERE id = $1 AND two_factor_code_hash = $2 AND two_factor_expires_at > now()
  `, userID, codeHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID)
	return err
}

func (s *Store) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET two_factor_enabled = $1,
      two_factor_code_hash = NULL, two_factor_expires_at = NULL
    WHERE id = $2
  `, enabled, userID)
	return err
}
