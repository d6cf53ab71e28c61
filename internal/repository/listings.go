package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace/internal/domain/listings"
)

type listingModel struct {
	ID             uuid.UUID      `db:"id"`
	Kind           string         `db:"kind"`
	Name           string         `db:"name"`
	Location       string         `db:"location"`
	Country        string         `db:"country"`
	HostID         uuid.UUID      `db:"host_id"`
	Price          float64        `db:"price"`
	ChildPrice     float64        `db:"child_price"`
	Capacity       int            `db:"capacity"`
	DaysOpened     pq.StringArray `db:"days_opened"`
	OpeningHours   string         `db:"opening_hours"`
	ClosingHours   string         `db:"closing_hours"`
	FixedDate      sql.NullTime   `db:"fixed_date"`
	IsFlexibleDate bool           `db:"is_flexible_date"`
	IsCustomDate   bool           `db:"is_custom_date"`
	ApprovalStatus string         `db:"approval_status"`
	IsHidden       bool           `db:"is_hidden"`
	CreatedAt      time.Time      `db:"created_at"`
}

const listingColumns = `id, kind, name, location, country, host_id, price, child_price, capacity, days_opened,
	opening_hours, closing_hours, fixed_date, is_flexible_date, is_custom_date, approval_status, is_hidden, created_at`

func (m listingModel) toDomain() listings.Listing {
	l := listings.Listing{
		ID:             m.ID,
		Kind:           listings.Kind(m.Kind),
		Name:           m.Name,
		Location:       m.Location,
		Country:        m.Country,
		HostID:         m.HostID,
		Price:          m.Price,
		ChildPrice:     m.ChildPrice,
		Capacity:       m.Capacity,
		DaysOpened:     []string(m.DaysOpened),
		OpeningHours:   m.OpeningHours,
		ClosingHours:   m.ClosingHours,
		IsFlexibleDate: m.IsFlexibleDate,
		IsCustomDate:   m.IsCustomDate,
		ApprovalStatus: m.ApprovalStatus,
		IsHidden:       m.IsHidden,
		CreatedAt:      m.CreatedAt,
	}
	if m.FixedDate.Valid {
		d := listings.Day(m.FixedDate.Time)
		l.FixedDate = &d
	}

	return l
}

type ListingsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewListingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *ListingsRepo {
	return &ListingsRepo{db: db, getter: getter}
}

func (r *ListingsRepo) GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error) {
	var m listingModel
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &m,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return listings.Listing{}, fmt.Errorf("listing %s: %w", id, listings.ErrListingNotFound)
	}
	if err != nil {
		return listings.Listing{}, fmt.Errorf("failed to get listing %s: %w", id, err)
	}

	return m.toDomain(), nil
}

type ListFilter struct {
	Kind   *listings.Kind
	Limit  int
	Offset int
}

// ListListings returns approved, visible listings, newest first.
func (r *ListingsRepo) ListListings(ctx context.Context, f ListFilter) ([]listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE approval_status = 'approved' AND NOT is_hidden`
	args := []any{}

	if f.Kind != nil {
		args = append(args, string(*f.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}

	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var models []listingModel
	err := sqlx.SelectContext(ctx, r.db, &models, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	result := make([]listings.Listing, 0, len(models))
	for _, m := range models {
		result = append(result, m.toDomain())
	}

	return result, nil
}

func (r *ListingsRepo) CreateListing(ctx context.Context, l listings.Listing) error {
	daysOpened := pq.StringArray{}
	daysOpened = append(daysOpened, l.DaysOpened...)

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO listings (
			id, kind, name, location, country, host_id, price, child_price, capacity, days_opened,
			opening_hours, closing_hours, fixed_date, is_flexible_date, is_custom_date, approval_status, is_hidden
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		l.ID, string(l.Kind), l.Name, l.Location, l.Country, l.HostID, l.Price, l.ChildPrice, l.Capacity,
		daysOpened, l.OpeningHours, l.ClosingHours, l.FixedDate, l.IsFlexibleDate,
		l.IsCustomDate, l.ApprovalStatus, l.IsHidden,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}
