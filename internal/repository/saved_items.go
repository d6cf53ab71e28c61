package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/saved"
)

type SavedItemsRepo struct {
	db *sqlx.DB
}

func NewSavedItemsRepo(db *sqlx.DB) *SavedItemsRepo {
	return &SavedItemsRepo{db: db}
}

// Save is idempotent: saving an item twice keeps the first timestamp.
func (r *SavedItemsRepo) Save(ctx context.Context, item saved.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_items (user_id, item_id, item_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO NOTHING`,
		item.UserID, item.ItemID, string(item.ItemType),
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ItemID, err)
	}

	return nil
}

func (r *SavedItemsRepo) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_items WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove saved item %s: %w", itemID, err)
	}

	return nil
}

func (r *SavedItemsRepo) List(ctx context.Context, userID uuid.UUID) ([]saved.Entry, error) {
	var rows []struct {
		SavedAt  time.Time `db:"saved_at"`
		ItemType string    `db:"item_type"`
		listingModel
	}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT s.created_at AS saved_at, s.item_type,
			l.id, l.kind, l.name, l.location, l.country, l.host_id, l.price, l.child_price, l.capacity,
			l.days_opened, l.opening_hours, l.closing_hours, l.fixed_date, l.is_flexible_date,
			l.is_custom_date, l.approval_status, l.is_hidden, l.created_at
		FROM saved_items s
		JOIN listings l ON l.id = s.item_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved items of user %s: %w", userID, err)
	}

	entries := make([]saved.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, saved.Entry{
			Item: saved.Item{
				UserID:    userID,
				ItemID:    row.ID,
				ItemType:  listings.Kind(row.ItemType),
				CreatedAt: row.SavedAt,
			},
			Listing: row.toDomain(),
		})
	}

	return entries, nil
}
