package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TypeLeaveSubmitted = "leave.submitted"
	TypeLeaveApproved  = "leave.approved"
	TypeLeaveRejected  = "leave.rejected"
	TypeLeaveCancelled = "leave.cancelled"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EntityID  string    `json:"entityId,omitempty"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	DB     *pgxpool.Pool
	Mailer Mailer
}

func New(db *pgxpool.Pool, mailer Mailer) *Service {
	return &Service{DB: db, Mailer: mailer}
}

// Notify stores an in-app notification and mails a copy. Mail failures are
// logged, not returned: the triggering transition has already committed.
func (s *Service) Notify(ctx context.Context, userID, kind, title, body, entityID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, type, title, body, entity_id)
    VALUES ($1,$2,$3,$4,$5)
  `, userID, kind, title, body, nullableID(entityID))
	if err != nil {
		return err
	}

	var email string
	if err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE id = $1", userID).Scan(&email); err != nil {
		return err
	}
	if err := s.Mailer.Send(ctx, email, title, body); err != nil {
		slog.Warn("notification mail failed", "user_id", userID, "type", kind, "error", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
    SELECT id, user_id, type, title, body, COALESCE(entity_id::text, ''), is_read, created_at
    FROM notifications
    WHERE user_id = $1
  `
	if unreadOnly {
		query += " AND NOT is_read"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := s.DB.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.EntityID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read
  `, userID).Scan(&count)
	return count, err
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2
  `, id, userID)
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET is_read = true WHERE user_id = $1 AND NOT is_read
  `, userID)
	return err
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
