package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/payments"
	"marketplace/internal/entities"
	"marketplace/internal/idempotency"
	"marketplace/internal/transaction"
)

type ListingsRepo interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

type BookingsRepo interface {
	CreateBooking(ctx context.Context, b bookings.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (bookings.Booking, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]bookings.Booking, error)
	SumActiveSlots(ctx context.Context, itemID uuid.UUID, visitDate *time.Time, excludeID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status bookings.Status) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status bookings.PaymentStatus) error
}

type PaymentsRepo interface {
	CreatePendingPayment(ctx context.Context, p payments.PendingPayment) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (payments.PendingPayment, error)
	ListOpenByUser(ctx context.Context, userID uuid.UUID) ([]payments.PendingPayment, error)
	ResetForRetry(ctx context.Context, id uuid.UUID) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

type Usecase struct {
	listings  ListingsRepo
	bookings  BookingsRepo
	payments  PaymentsRepo
	trManager transaction.Runner
	publisher EventPublisher
	now       func() time.Time
}

func NewUsecase(
	listingsRepo ListingsRepo,
	bookingsRepo BookingsRepo,
	paymentsRepo PaymentsRepo,
	trManager transaction.Runner,
	publisher EventPublisher,
) *Usecase {
	return &Usecase{
		listings:  listingsRepo,
		bookings:  bookingsRepo,
		payments:  paymentsRepo,
		trManager: trManager,
		publisher: publisher,
		now:       time.Now,
	}
}

type SubmitResult struct {
	BookingID        uuid.UUID              `json:"booking_id"`
	PendingPaymentID uuid.UUID              `json:"pending_payment_id"`
	Reference        string                 `json:"reference"`
	TotalAmount      float64                `json:"total_amount"`
	PaymentStatus    bookings.PaymentStatus `json:"payment_status"`
}

func newReference() string {
	return "BK-" + strings.ToUpper(shortuuid.New()[:10])
}

// Submit stores the booking and its pending payment in one serializable transaction,
// so two guests cannot both take the last slots of a date.
func (u *Usecase) Submit(ctx context.Context, req bookings.Request) (SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return SubmitResult{}, err
	}

	var result SubmitResult
	err := transaction.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		l, err := u.listings.GetListing(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if !l.Bookable() {
			return fmt.Errorf("listing %s: %w", l.ID, bookings.ErrListingNotBookable)
		}

		now := u.now()
		visitDate, err := req.ResolveVisitDate(l, now)
		if err != nil {
			return err
		}

		booked, err := u.bookings.SumActiveSlots(ctx, l.ID, visitDate, uuid.Nil)
		if err != nil {
			return err
		}
		log.FromContext(ctx).
			WithField("capacity", l.Capacity).
			WithField("booked", booked).
			WithField("requested", req.SlotsBooked).
			Debug("checking listing capacity")

		if err := bookings.CheckCapacity(l.Capacity, booked, req.SlotsBooked); err != nil {
			return err
		}

		details, err := req.DetailsSnapshot(l)
		if err != nil {
			return fmt.Errorf("failed to snapshot booking details: %w", err)
		}

		b := bookings.Booking{
			ID:             uuid.New(),
			ItemID:         l.ID,
			BookingType:    l.Kind,
			UserID:         req.UserID,
			GuestName:      strings.TrimSpace(req.GuestName),
			GuestEmail:     strings.TrimSpace(req.GuestEmail),
			GuestPhone:     strings.TrimSpace(req.GuestPhone),
			VisitDate:      visitDate,
			SlotsBooked:    req.SlotsBooked,
			TotalAmount:    bookings.TotalAmount(l, req.SlotsBooked, req.ChildSlots),
			PaymentStatus:  bookings.PaymentPending,
			Status:         bookings.StatusActive,
			BookingDetails: details,
			Reference:      newReference(),
		}
		if err := u.bookings.CreateBooking(ctx, b); err != nil {
			return err
		}

		payment := payments.PendingPayment{
			ID:            uuid.New(),
			BookingID:     b.ID,
			UserID:        b.UserID,
			PhoneNumber:   b.GuestPhone,
			Amount:        b.TotalAmount,
			PaymentStatus: payments.StatusPending,
			BookingData:   details,
		}
		if err := u.payments.CreatePendingPayment(ctx, payment); err != nil {
			return err
		}

		err = u.publisher.Publish(ctx, entities.BookingMade_v1{
			Header:           entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx)),
			BookingID:        b.ID,
			PendingPaymentID: payment.ID,
			ItemID:           l.ID,
			ItemName:         l.Name,
			BookingType:      string(l.Kind),
			UserID:           b.UserID,
			GuestName:        b.GuestName,
			GuestEmail:       b.GuestEmail,
			GuestPhone:       b.GuestPhone,
			VisitDate:        b.VisitDateString(),
			SlotsBooked:      b.SlotsBooked,
			TotalAmount:      b.TotalAmount,
			Reference:        b.Reference,
			BookedAt:         now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to publish booking made event: %w", err)
		}

		result = SubmitResult{
			BookingID:        b.ID,
			PendingPaymentID: payment.ID,
			Reference:        b.Reference,
			TotalAmount:      b.TotalAmount,
			PaymentStatus:    b.PaymentStatus,
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	log.FromContext(ctx).
		WithField("booking_id", result.BookingID).
		WithField("reference", result.Reference).
		Info("booking submitted")

	return result, nil
}

// authorize lets anyone holding the id read guest bookings; account bookings are owner only.
func authorize(b bookings.Booking, userID *uuid.UUID) error {
	if b.UserID == nil {
		return nil
	}
	if userID == nil || !b.OwnedBy(*userID) {
		return fmt.Errorf("booking %s: %w", b.ID, bookings.ErrNotOwner)
	}

	return nil
}

func (u *Usecase) Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (bookings.Booking, error) {
	b, err := u.bookings.GetBooking(ctx, id)
	if err != nil {
		return bookings.Booking{}, err
	}
	if err := authorize(b, userID); err != nil {
		return bookings.Booking{}, err
	}

	return b, nil
}

// Entry is a booking as shown in the user's booking list, with its open payment attempt if any.
type Entry struct {
	Booking bookings.Booking         `json:"booking"`
	Payment *payments.PendingPayment `json:"payment,omitempty"`
}

func (e Entry) CanRetryPayment() bool {
	return !e.Booking.IsConfirmed() && e.Payment != nil && e.Payment.CanRetry()
}

// ListForUser merges the user's bookings with payments that have not completed, newest first.
func (u *Usecase) ListForUser(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	userBookings, err := u.bookings.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, err
	}

	open, err := u.payments.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uuid.UUID]payments.PendingPayment, len(open))
	for _, p := range open {
		if _, ok := latest[p.BookingID]; !ok {
			latest[p.BookingID] = p
		}
	}

	entries := make([]Entry, 0, len(userBookings))
	for _, b := range userBookings {
		entry := Entry{Booking: b}
		if p, ok := latest[b.ID]; ok && !b.IsConfirmed() {
			entry.Payment = &p
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Cancel soft-cancels an unpaid booking, releasing its capacity.
func (u *Usecase) Cancel(ctx context.Context, id, userID uuid.UUID) error {
	return transaction.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		b, err := u.bookings.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if !b.OwnedBy(userID) {
			return fmt.Errorf("booking %s: %w", id, bookings.ErrNotOwner)
		}
		if !b.Counts() {
			return fmt.Errorf("booking %s: %w", id, bookings.ErrAlreadyCancelled)
		}
		if b.IsConfirmed() {
			return fmt.Errorf("booking %s: %w", id, bookings.ErrCancelAfterPayment)
		}

		if err := u.bookings.UpdateStatus(ctx, id, bookings.StatusCancelled); err != nil {
			return err
		}
		if err := u.bookings.UpdatePaymentStatus(ctx, id, bookings.PaymentCancelled); err != nil {
			return err
		}

		return u.publisher.Publish(ctx, entities.BookingCancelled_v1{
			Header:      entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx)),
			BookingID:   id,
			UserID:      b.UserID,
			CancelledAt: u.now().UTC(),
		})
	})
}

// RetryPayment resets a failed or dismissed payment so a new prompt is sent to the guest's phone.
func (u *Usecase) RetryPayment(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (payments.PendingPayment, error) {
	var payment payments.PendingPayment
	err := transaction.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		b, err := u.bookings.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(b, userID); err != nil {
			return err
		}
		if !b.Counts() {
			return fmt.Errorf("booking %s: %w", id, bookings.ErrAlreadyCancelled)
		}

		payment, err = u.payments.GetByBookingID(ctx, id)
		if errors.Is(err, payments.ErrPendingPaymentNotFound) {
			return fmt.Errorf("booking %s has no payment: %w", id, bookings.ErrPaymentNotRetryable)
		}
		if err != nil {
			return err
		}
		if b.IsConfirmed() || !payment.CanRetry() {
			return fmt.Errorf("payment %s is %s: %w", payment.ID, payment.PaymentStatus, bookings.ErrPaymentNotRetryable)
		}

		if err := u.payments.ResetForRetry(ctx, payment.ID); err != nil {
			return err
		}
		if err := u.bookings.UpdatePaymentStatus(ctx, id, bookings.PaymentPending); err != nil {
			return err
		}

		payment.PaymentStatus = payments.StatusPending
		payment.CheckoutRequestID = nil
		payment.MerchantRequestID = nil
		payment.ResultCode = nil
		payment.ResultDesc = nil

		return u.publisher.Publish(ctx, entities.PaymentRetryRequested_v1{
			Header:           entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx)),
			BookingID:        id,
			PendingPaymentID: payment.ID,
			Reference:        b.Reference,
			RequestedAt:      u.now().UTC(),
		})
	})
	if err != nil {
		return payments.PendingPayment{}, err
	}

	return payment, nil
}
