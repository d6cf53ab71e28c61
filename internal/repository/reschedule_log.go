package repository

import (
	"context"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RescheduleLogRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewRescheduleLogRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *RescheduleLogRepo {
	return &RescheduleLogRepo{db: db, getter: getter}
}

// Append records a date change. Bookings that had no date yet are not logged.
func (r *RescheduleLogRepo) Append(ctx context.Context, bookingID, userID uuid.UUID, oldDate, newDate time.Time) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO reschedule_log (booking_id, user_id, old_date, new_date)
		VALUES ($1, $2, $3::date, $4::date)`,
		bookingID, userID, oldDate, newDate,
	)
	if err != nil {
		return fmt.Errorf("failed to log reschedule of booking %s: %w", bookingID, err)
	}

	return nil
}
