package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
)

type bookingModel struct {
	ID             uuid.UUID     `db:"id"`
	ItemID         uuid.UUID     `db:"item_id"`
	BookingType    string        `db:"booking_type"`
	UserID         uuid.NullUUID `db:"user_id"`
	GuestName      string        `db:"guest_name"`
	GuestEmail     string        `db:"guest_email"`
	GuestPhone     string        `db:"guest_phone"`
	VisitDate      sql.NullTime  `db:"visit_date"`
	SlotsBooked    int           `db:"slots_booked"`
	TotalAmount    float64       `db:"total_amount"`
	PaymentStatus  string        `db:"payment_status"`
	Status         string        `db:"status"`
	BookingDetails []byte        `db:"booking_details"`
	Reference      string        `db:"reference"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

const bookingColumns = `id, item_id, booking_type, user_id, guest_name, guest_email, guest_phone, visit_date,
	slots_booked, total_amount, payment_status, status, booking_details, reference, created_at, updated_at`

func (m bookingModel) toDomain() bookings.Booking {
	b := bookings.Booking{
		ID:             m.ID,
		ItemID:         m.ItemID,
		BookingType:    listings.Kind(m.BookingType),
		GuestName:      m.GuestName,
		GuestEmail:     m.GuestEmail,
		GuestPhone:     m.GuestPhone,
		SlotsBooked:    m.SlotsBooked,
		TotalAmount:    m.TotalAmount,
		PaymentStatus:  bookings.PaymentStatus(m.PaymentStatus),
		Status:         bookings.Status(m.Status),
		BookingDetails: json.RawMessage(m.BookingDetails),
		Reference:      m.Reference,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.UserID.Valid {
		id := m.UserID.UUID
		b.UserID = &id
	}
	if m.VisitDate.Valid {
		d := listings.Day(m.VisitDate.Time)
		b.VisitDate = &d
	}

	return b
}

type BookingsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewBookingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *BookingsRepo {
	return &BookingsRepo{db: db, getter: getter}
}

func (r *BookingsRepo) CreateBooking(ctx context.Context, b bookings.Booking) error {
	details := b.BookingDetails
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO bookings (
			id, item_id, booking_type, user_id, guest_name, guest_email, guest_phone, visit_date,
			slots_booked, total_amount, payment_status, status, booking_details, reference
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.ItemID, string(b.BookingType), b.UserID, b.GuestName, b.GuestEmail, b.GuestPhone, b.VisitDate,
		b.SlotsBooked, b.TotalAmount, string(b.PaymentStatus), string(b.Status), string(details), b.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *BookingsRepo) GetBooking(ctx context.Context, id uuid.UUID) (bookings.Booking, error) {
	var m bookingModel
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &m,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bookings.Booking{}, fmt.Errorf("booking %s: %w", id, bookings.ErrBookingNotFound)
	}
	if err != nil {
		return bookings.Booking{}, fmt.Errorf("failed to get booking %s: %w", id, err)
	}

	return m.toDomain(), nil
}

func (r *BookingsRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]bookings.Booking, error) {
	var models []bookingModel
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &models,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings of user %s: %w", userID, err)
	}

	result := make([]bookings.Booking, 0, len(models))
	for _, m := range models {
		result = append(result, m.toDomain())
	}

	return result, nil
}

// SumActiveSlots adds up the slots other active bookings hold on the item for the date.
// A nil date matches bookings without a visit date.
func (r *BookingsRepo) SumActiveSlots(ctx context.Context, itemID uuid.UUID, visitDate *time.Time, excludeID uuid.UUID) (int, error) {
	var total int
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &total, `
		SELECT COALESCE(SUM(GREATEST(slots_booked, 1)), 0)
		FROM bookings
		WHERE item_id = $1
			AND visit_date IS NOT DISTINCT FROM $2::date
			AND id <> $3
			AND status NOT IN ('cancelled', 'rejected')`,
		itemID, visitDate, excludeID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sum booked slots: %w", err)
	}

	return total, nil
}

// ActiveSlotsByDate returns booked slots per date of other active bookings within [from, to].
func (r *BookingsRepo) ActiveSlotsByDate(ctx context.Context, itemID, excludeID uuid.UUID, from, to time.Time) (map[string]int, error) {
	var rows []struct {
		VisitDate time.Time `db:"visit_date"`
		Slots     int       `db:"slots"`
	}
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &rows, `
		SELECT visit_date, SUM(GREATEST(slots_booked, 1)) AS slots
		FROM bookings
		WHERE item_id = $1
			AND id <> $2
			AND visit_date BETWEEN $3::date AND $4::date
			AND status NOT IN ('cancelled', 'rejected')
		GROUP BY visit_date`,
		itemID, excludeID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked dates: %w", err)
	}

	booked := make(map[string]int, len(rows))
	for _, row := range rows {
		booked[listings.FormatDate(row.VisitDate)] = row.Slots
	}

	return booked, nil
}

func (r *BookingsRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status bookings.PaymentStatus) error {
	return r.update(ctx, id, `UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`, string(status))
}

func (r *BookingsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status bookings.Status) error {
	return r.update(ctx, id, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, string(status))
}

func (r *BookingsRepo) UpdateVisitDate(ctx context.Context, id uuid.UUID, visitDate time.Time) error {
	return r.update(ctx, id, `UPDATE bookings SET visit_date = $2::date, updated_at = NOW() WHERE id = $1`, visitDate)
}

func (r *BookingsRepo) update(ctx context.Context, id uuid.UUID, query string, value any) error {
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("booking %s: %w", id, bookings.ErrBookingNotFound)
	}

	return nil
}
