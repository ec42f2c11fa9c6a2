package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Notification is a delivered inbox row.
type Notification struct {
	ID        int             `db:"id" json:"id"`
	UserID    int             `db:"user_id" json:"user_id"`
	Kind      string          `db:"kind" json:"kind"`
	Data      json.RawMessage `db:"data" json:"data"`
	ReadAt    *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListForUser(ctx context.Context, userID, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []Notification
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, kind, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, notificationID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID,
	)
	return err
}
