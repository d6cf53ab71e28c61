package notifications

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"marketplace/internal/config"
	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/notifications"
	"marketplace/internal/domain/reschedule"
	"marketplace/internal/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var printer = message.NewPrinter(language.English)

func formatAmount(amount float64) string {
	return printer.Sprintf("%v", number.Decimal(amount, number.MaxFractionDigits(2)))
}

//go:generate mockgen -destination=mocks/mailer_mock.go -package=mocks . Mailer
type Mailer interface {
	Send(ctx context.Context, email notifications.Email) (notifications.SendResult, error)
}

type ProfilesRepo interface {
	GetProfile(ctx context.Context, id uuid.UUID) (notifications.Profile, error)
}

type NotificationsRepo interface {
	Add(ctx context.Context, n notifications.Notification) error
}

type BookingsRepo interface {
	GetBooking(ctx context.Context, id uuid.UUID) (bookings.Booking, error)
}

type ListingsRepo interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

type Usecase struct {
	mailer        Mailer
	profiles      ProfilesRepo
	notifications NotificationsRepo
	bookings      BookingsRepo
	listings      ListingsRepo
	from          config.MailConfig
}

func NewUsecase(
	mailer Mailer,
	profiles ProfilesRepo,
	notificationsRepo NotificationsRepo,
	bookingsRepo BookingsRepo,
	listingsRepo ListingsRepo,
	from config.MailConfig,
) *Usecase {
	return &Usecase{
		mailer:        mailer,
		profiles:      profiles,
		notifications: notificationsRepo,
		bookings:      bookingsRepo,
		listings:      listingsRepo,
		from:          from,
	}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}

	return buf.String(), nil
}

// SendHostBookingNotification emails the host about a paid booking.
// It returns ErrHostEmailNotFound when the host has no email on file.
func (u *Usecase) SendHostBookingNotification(ctx context.Context, req notifications.HostBookingNotification) (notifications.SendResult, error) {
	host, err := u.profiles.GetProfile(ctx, req.HostID)
	if err != nil {
		return notifications.SendResult{}, err
	}

	hostName := host.Name
	if hostName == "" {
		hostName = "Host"
	}

	visitDate := ""
	if req.VisitDate != nil {
		visitDate = *req.VisitDate
	}

	html, err := render("host_booking.html", map[string]any{
		"HostName":  hostName,
		"BookingID": req.BookingID,
		"GuestName": req.GuestName,
		"ItemName":  req.ItemName,
		"VisitDate": visitDate,
		"Amount":    formatAmount(req.TotalAmount),
	})
	if err != nil {
		return notifications.SendResult{}, err
	}

	result, err := u.mailer.Send(ctx, notifications.Email{
		From:    u.from.BookingsFrom,
		To:      []string{host.Email},
		Subject: "New Paid Booking - " + req.ItemName,
		HTML:    html,
	})
	if err != nil {
		return notifications.SendResult{}, err
	}

	log.FromContext(ctx).
		WithField("booking_id", req.BookingID).
		WithField("email_id", result.ID).
		Info("host booking notification sent")

	return result, nil
}

func (u *Usecase) SendPaymentInitiation(ctx context.Context, req notifications.PaymentInitiation) (notifications.SendResult, error) {
	html, err := render("payment_initiation.html", map[string]any{
		"GuestName": req.GuestName,
		"ItemName":  req.ItemName,
		"Phone":     req.Phone,
		"Amount":    formatAmount(req.TotalAmount),
	})
	if err != nil {
		return notifications.SendResult{}, err
	}

	result, err := u.mailer.Send(ctx, notifications.Email{
		From:    u.from.PaymentsFrom,
		To:      []string{req.Email},
		Subject: "Payment Initiated - " + req.ItemName,
		HTML:    html,
	})
	if err != nil {
		return notifications.SendResult{}, err
	}

	log.FromContext(ctx).WithField("email_id", result.ID).Info("payment initiation email sent")

	return result, nil
}

// NotifyHostOfPayment emails the host of the booked listing. Hosts without an email are skipped.
func (u *Usecase) NotifyHostOfPayment(ctx context.Context, bookingID uuid.UUID) error {
	b, err := u.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	l, err := u.listings.GetListing(ctx, b.ItemID)
	if err != nil {
		return err
	}

	itemName := b.ItemName()
	if itemName == "" {
		itemName = l.Name
	}

	_, err = u.SendHostBookingNotification(ctx, notifications.HostBookingNotification{
		HostID:      l.HostID,
		BookingID:   b.ID,
		GuestName:   b.GuestName,
		ItemName:    itemName,
		TotalAmount: b.TotalAmount,
		VisitDate:   b.VisitDateString(),
	})
	if errors.Is(err, notifications.ErrHostEmailNotFound) {
		log.FromContext(ctx).
			WithField("host_id", l.HostID).
			Warn("host has no email, skipping booking notification")
		return nil
	}

	return err
}

// NotifyGuestOfPayment writes the in-app payment notice. Guest checkouts without an account get none.
func (u *Usecase) NotifyGuestOfPayment(ctx context.Context, id, bookingID uuid.UUID, completed bool) error {
	b, err := u.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID == nil {
		return nil
	}

	itemName := b.ItemName()
	if itemName == "" {
		itemName = "your booking"
	}

	n := notifications.Notification{
		ID:      id,
		UserID:  *b.UserID,
		Type:    notifications.TypePaymentConfirmed,
		Title:   "Payment Confirmed",
		Message: fmt.Sprintf("Your payment of KES %s for %s has been confirmed.", formatAmount(b.TotalAmount), itemName),
	}
	if !completed {
		n.Type = notifications.TypePaymentFailed
		n.Title = "Payment Failed"
		n.Message = fmt.Sprintf("Your payment for %s was not completed. You can retry it from your bookings.", itemName)
	}

	n.Data, err = json.Marshal(map[string]any{"booking_id": b.ID, "reference": b.Reference})
	if err != nil {
		return err
	}

	return u.notifications.Add(ctx, n)
}

func (u *Usecase) NotifyGuestOfReschedule(ctx context.Context, id uuid.UUID, event entities.BookingRescheduled_v1) error {
	if event.UserID == nil {
		return nil
	}

	newDate, err := listings.ParseDate(event.NewDate)
	if err != nil {
		return err
	}

	notice := reschedule.NewNotice(event.ItemName, newDate, event.IsNewSchedule())

	data, err := json.Marshal(map[string]any{
		"booking_id": event.BookingID,
		"old_date":   event.OldDate,
		"new_date":   event.NewDate,
	})
	if err != nil {
		return err
	}

	return u.notifications.Add(ctx, notifications.Notification{
		ID:      id,
		UserID:  *event.UserID,
		Type:    notice.Type,
		Title:   notice.Title,
		Message: notice.Message,
		Data:    data,
	})
}
