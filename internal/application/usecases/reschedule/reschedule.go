package reschedule

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/reschedule"
	"marketplace/internal/entities"
	"marketplace/internal/idempotency"
	"marketplace/internal/transaction"
)

// DefaultWindow is how far ahead selectable dates are listed when the caller gives no range.
const DefaultWindow = 60 * 24 * time.Hour

// MaxWindow bounds a caller supplied range.
const MaxWindow = 366 * 24 * time.Hour

type ListingsRepo interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

type BookingsRepo interface {
	GetBooking(ctx context.Context, id uuid.UUID) (bookings.Booking, error)
	ActiveSlotsByDate(ctx context.Context, itemID, excludeID uuid.UUID, from, to time.Time) (map[string]int, error)
	UpdateVisitDate(ctx context.Context, id uuid.UUID, visitDate time.Time) error
}

type LogRepo interface {
	Append(ctx context.Context, bookingID, userID uuid.UUID, oldDate, newDate time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

type Usecase struct {
	listings  ListingsRepo
	bookings  BookingsRepo
	log       LogRepo
	trManager transaction.Runner
	publisher EventPublisher
	now       func() time.Time
}

func NewUsecase(
	listingsRepo ListingsRepo,
	bookingsRepo BookingsRepo,
	logRepo LogRepo,
	trManager transaction.Runner,
	publisher EventPublisher,
) *Usecase {
	return &Usecase{
		listings:  listingsRepo,
		bookings:  bookingsRepo,
		log:       logRepo,
		trManager: trManager,
		publisher: publisher,
		now:       time.Now,
	}
}

type Options struct {
	reschedule.Eligibility
	CurrentDate *string  `json:"current_date,omitempty"`
	Dates       []string `json:"dates"`
}

func (u *Usecase) ownedBooking(ctx context.Context, bookingID, userID uuid.UUID) (bookings.Booking, listings.Listing, error) {
	b, err := u.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return bookings.Booking{}, listings.Listing{}, err
	}
	if !b.OwnedBy(userID) {
		return bookings.Booking{}, listings.Listing{}, fmt.Errorf("booking %s: %w", bookingID, bookings.ErrNotOwner)
	}

	l, err := u.listings.GetListing(ctx, b.ItemID)
	if err != nil {
		return bookings.Booking{}, listings.Listing{}, err
	}

	return b, l, nil
}

// Options reports whether the booking can move and which dates in [from, to] it can move to.
func (u *Usecase) Options(ctx context.Context, bookingID, userID uuid.UUID, from, to *time.Time) (Options, error) {
	b, l, err := u.ownedBooking(ctx, bookingID, userID)
	if err != nil {
		return Options{}, err
	}

	now := u.now()
	opts := Options{
		Eligibility: reschedule.CheckEligibility(b, l, now),
		CurrentDate: b.VisitDateString(),
		Dates:       []string{},
	}
	if !opts.Eligible {
		return opts, nil
	}

	start, end := listings.Day(now), listings.Day(now.Add(DefaultWindow))
	if from != nil {
		start = listings.Day(*from)
	}
	if to != nil {
		end = listings.Day(*to)
	}
	if end.Before(start) {
		return Options{}, fmt.Errorf("window ends before it starts: %w", bookings.ErrInvalidRequest)
	}
	if end.Sub(start) > MaxWindow {
		return Options{}, fmt.Errorf("window is longer than %d days: %w", int(MaxWindow.Hours()/24), bookings.ErrInvalidRequest)
	}

	booked, err := u.bookings.ActiveSlotsByDate(ctx, l.ID, b.ID, start, end)
	if err != nil {
		return Options{}, err
	}

	calendar := reschedule.NewCalendar(l, booked, b.Slots(), now)
	for _, day := range calendar.SelectableDates(start, end) {
		opts.Dates = append(opts.Dates, listings.FormatDate(day))
	}

	return opts, nil
}

// Reschedule moves the booking to newDate, rechecking eligibility and capacity in a serializable transaction.
func (u *Usecase) Reschedule(ctx context.Context, bookingID, userID uuid.UUID, newDate time.Time) (bookings.Booking, error) {
	var updated bookings.Booking

	err := transaction.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		b, l, err := u.ownedBooking(ctx, bookingID, userID)
		if err != nil {
			return err
		}

		now := u.now()
		day := listings.Day(newDate)

		booked, err := u.bookings.ActiveSlotsByDate(ctx, l.ID, b.ID, day, day)
		if err != nil {
			return err
		}

		flow := reschedule.Start(b, l, reschedule.NewCalendar(l, booked, b.Slots(), now), now)
		if err := flow.Select(day); err != nil {
			return err
		}
		selected, err := flow.Submit()
		if err != nil {
			return err
		}

		err = u.apply(ctx, b, selected, userID, now)
		flow.Complete(err)
		if flow.State() != reschedule.StateSucceeded {
			return flow.Err()
		}

		updated = b
		updated.VisitDate = &selected
		return nil
	})
	if err != nil {
		return bookings.Booking{}, err
	}

	log.FromContext(ctx).
		WithField("booking_id", bookingID).
		WithField("visit_date", listings.FormatDate(*updated.VisitDate)).
		Info("booking rescheduled")

	return updated, nil
}

func (u *Usecase) apply(ctx context.Context, b bookings.Booking, newDate time.Time, userID uuid.UUID, now time.Time) error {
	if err := u.bookings.UpdateVisitDate(ctx, b.ID, newDate); err != nil {
		return err
	}

	if b.VisitDate != nil {
		if err := u.log.Append(ctx, b.ID, userID, *b.VisitDate, newDate); err != nil {
			return err
		}
	}

	err := u.publisher.Publish(ctx, entities.BookingRescheduled_v1{
		Header:        entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx)),
		BookingID:     b.ID,
		UserID:        b.UserID,
		ItemName:      b.ItemName(),
		OldDate:       b.VisitDateString(),
		NewDate:       listings.FormatDate(newDate),
		RescheduledAt: now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish booking rescheduled event: %w", err)
	}

	return nil
}
