package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/platform/config"
)

type seedLeaveType struct {
	name        string
	code        string
	daysPerYear int
	isPaid      bool
}

var defaultLeaveTypes = []seedLeaveType{
	{"Annual Leave", "ANNUAL", 25, true},
	{"Sick Leave", "SICK", 10, true},
	{"Personal Leave", "PERSONAL", 5, true},
	{"Unpaid Leave", "UNPAID", 30, false},
}

// Seed makes the instance usable on first boot: default leave types and an
// admin account. Existing rows are never overwritten.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	for _, lt := range defaultLeaveTypes {
		_, err := pool.Exec(ctx, `
    INSERT INTO leave_types (name, code, days_per_year, is_paid, requires_approval, is_active)
    VALUES ($1,$2,$3,$4,true,true)
    ON CONFLICT (code) DO NOTHING
  `, lt.name, lt.code, lt.daysPerYear, lt.isPaid)
		if err != nil {
			return err
		}
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var exists bool
	if err := pool.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
  `, email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, first_name, last_name, role, password_hash, is_active)
    VALUES ($1, 'System', 'Admin', $2, $3, true)
  `, email, auth.RoleAdmin, hash)
	return err
}
