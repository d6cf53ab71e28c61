package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace/internal/domain/notifications"
)

type NotificationsRepo struct {
	db *sqlx.DB
}

func NewNotificationsRepo(db *sqlx.DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

// Add ignores notifications that were already stored, so redelivered events do not duplicate them.
func (r *NotificationsRepo) Add(ctx context.Context, n notifications.Notification) error {
	data := n.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}

	return nil
}

func (r *NotificationsRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]notifications.Notification, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Type      string    `db:"type"`
		Title     string    `db:"title"`
		Message   string    `db:"message"`
		Data      []byte    `db:"data"`
		IsRead    bool      `db:"is_read"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := make([]notifications.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, notifications.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			Data:      row.Data,
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt,
		})
	}

	return result, nil
}

type ProfilesRepo struct {
	db *sqlx.DB
}

func NewProfilesRepo(db *sqlx.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

// GetProfile returns ErrHostEmailNotFound when the profile is missing or has no email.
func (r *ProfilesRepo) GetProfile(ctx context.Context, id uuid.UUID) (notifications.Profile, error) {
	var row struct {
		ID    uuid.UUID      `db:"id"`
		Name  string         `db:"name"`
		Email sql.NullString `db:"email"`
	}
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT id, name, email FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return notifications.Profile{}, fmt.Errorf("profile %s: %w", id, notifications.ErrHostEmailNotFound)
	}
	if err != nil {
		return notifications.Profile{}, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	if !row.Email.Valid || row.Email.String == "" {
		return notifications.Profile{}, fmt.Errorf("profile %s: %w", id, notifications.ErrHostEmailNotFound)
	}

	return notifications.Profile{ID: row.ID, Name: row.Name, Email: row.Email.String}, nil
}
