package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/notifications"
	"marketplace/internal/domain/payments"
	"marketplace/internal/domain/saved"
	"marketplace/internal/entities"
	"marketplace/internal/repository"
)

type RepositoryTestSuite struct {
	suite.Suite

	db        *sqlx.DB
	container testcontainers.Container
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	ctx := context.Background()

	// POSTGRES_URL points the tests at an already running database.
	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "user",
					"POSTGRES_PASSWORD": "password",
					"POSTGRES_DB":       "db",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			},
			Started: true,
		})
		if err != nil {
			s.T().Skipf("postgres container unavailable: %v", err)
		}
		s.container = container

		host, err := container.Host(ctx)
		s.Require().NoError(err)
		port, err := container.MappedPort(ctx, "5432/tcp")
		s.Require().NoError(err)

		dsn = fmt.Sprintf("postgres://user:password@%s:%s/db?sslmode=disable", host, port.Port())
	}

	db, err := sqlx.Open("postgres", dsn)
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(repository.InitializeDBSchema(ctx, db))
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RepositoryTestSuite) newListing(kind listings.Kind, approved bool) listings.Listing {
	l := listings.Listing{
		ID:             uuid.New(),
		Kind:           kind,
		Name:           "Hell's Gate " + uuid.NewString()[:8],
		Location:       "Naivasha",
		Country:        "Kenya",
		HostID:         uuid.New(),
		Price:          1500,
		Capacity:       10,
		DaysOpened:     []string{"Saturday", "Sunday"},
		ApprovalStatus: listings.ApprovalPending,
	}
	if approved {
		l.ApprovalStatus = listings.ApprovalApproved
	}

	repo := repository.NewListingsRepo(s.db, trmsqlx.DefaultCtxGetter)
	s.Require().NoError(repo.CreateListing(context.Background(), l))

	return l
}

func (s *RepositoryTestSuite) newBooking(l listings.Listing, visitDate *time.Time, slots int) bookings.Booking {
	userID := uuid.New()
	b := bookings.Booking{
		ID:             uuid.New(),
		ItemID:         l.ID,
		BookingType:    l.Kind,
		UserID:         &userID,
		GuestName:      "Amina Otieno",
		GuestEmail:     "amina@example.com",
		GuestPhone:     "254712345678",
		VisitDate:      visitDate,
		SlotsBooked:    slots,
		TotalAmount:    float64(slots) * l.Price,
		PaymentStatus:  bookings.PaymentPending,
		Status:         bookings.StatusActive,
		BookingDetails: []byte(`{"place_name":"Hell's Gate"}`),
		Reference:      "BK-" + uuid.NewString()[:12],
	}

	repo := repository.NewBookingsRepo(s.db, trmsqlx.DefaultCtxGetter)
	s.Require().NoError(repo.CreateBooking(context.Background(), b))

	return b
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *RepositoryTestSuite) TestListings() {
	ctx := context.Background()
	repo := repository.NewListingsRepo(s.db, trmsqlx.DefaultCtxGetter)

	approved := s.newListing(listings.KindAdventurePlace, true)
	pending := s.newListing(listings.KindAdventurePlace, false)

	got, err := repo.GetListing(ctx, approved.ID)
	s.Require().NoError(err)
	s.Equal(approved.Name, got.Name)
	s.Equal([]string{"Saturday", "Sunday"}, got.DaysOpened)
	s.Nil(got.FixedDate)

	_, err = repo.GetListing(ctx, uuid.New())
	s.ErrorIs(err, listings.ErrListingNotFound)

	kind := listings.KindAdventurePlace
	list, err := repo.ListListings(ctx, repository.ListFilter{Kind: &kind, Limit: 100})
	s.Require().NoError(err)

	ids := make([]uuid.UUID, 0, len(list))
	for _, l := range list {
		ids = append(ids, l.ID)
	}
	s.Contains(ids, approved.ID)
	s.NotContains(ids, pending.ID)
}

func (s *RepositoryTestSuite) TestBookings() {
	ctx := context.Background()
	repo := repository.NewBookingsRepo(s.db, trmsqlx.DefaultCtxGetter)

	l := s.newListing(listings.KindAdventurePlace, true)
	saturday := day(2025, 3, 15)

	b := s.newBooking(l, pointer.To(saturday), 3)
	s.newBooking(l, pointer.To(saturday), 2)
	cancelled := s.newBooking(l, pointer.To(saturday), 4)
	s.Require().NoError(repo.UpdateStatus(ctx, cancelled.ID, bookings.StatusCancelled))

	got, err := repo.GetBooking(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.Reference, got.Reference)
	s.Equal(l.ID, got.ItemID)
	s.Require().NotNil(got.VisitDate)
	s.Equal("2025-03-15", listings.FormatDate(*got.VisitDate))
	s.JSONEq(`{"place_name":"Hell's Gate"}`, string(got.BookingDetails))

	slots, err := repo.SumActiveSlots(ctx, l.ID, pointer.To(saturday), b.ID)
	s.Require().NoError(err)
	s.Equal(2, slots)

	byDate, err := repo.ActiveSlotsByDate(ctx, l.ID, uuid.Nil, day(2025, 3, 1), day(2025, 3, 31))
	s.Require().NoError(err)
	s.Equal(map[string]int{"2025-03-15": 5}, byDate)

	s.Require().NoError(repo.UpdateVisitDate(ctx, b.ID, day(2025, 3, 16)))
	s.Require().NoError(repo.UpdatePaymentStatus(ctx, b.ID, bookings.PaymentCompleted))

	got, err = repo.GetBooking(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("2025-03-16", listings.FormatDate(*got.VisitDate))
	s.Equal(bookings.PaymentCompleted, got.PaymentStatus)

	mine, err := repo.ListUserBookings(ctx, *b.UserID)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(b.ID, mine[0].ID)

	_, err = repo.GetBooking(ctx, uuid.New())
	s.ErrorIs(err, bookings.ErrBookingNotFound)
	s.ErrorIs(repo.UpdateStatus(ctx, uuid.New(), bookings.StatusCancelled), bookings.ErrBookingNotFound)
}

func (s *RepositoryTestSuite) TestPayments() {
	ctx := context.Background()
	repo := repository.NewPaymentsRepo(s.db, trmsqlx.DefaultCtxGetter)
	trManager := trmanager.Must(trmsqlx.NewDefaultFactory(s.db))

	b := s.newBooking(s.newListing(listings.KindTrip, true), nil, 1)
	p := payments.PendingPayment{
		ID:            uuid.New(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		PhoneNumber:   "254712345678",
		Amount:        1500,
		PaymentStatus: payments.StatusPending,
	}
	s.Require().NoError(repo.CreatePendingPayment(ctx, p))

	got, err := repo.GetPendingPayment(ctx, p.ID)
	s.Require().NoError(err)
	s.True(got.AwaitingPrompt())

	checkoutID := "ws_CO_" + uuid.NewString()
	s.Require().NoError(repo.SetCheckoutRequest(ctx, p.ID, checkoutID, "mr_1"))

	err = trManager.Do(ctx, func(ctx context.Context) error {
		locked, err := repo.GetByCheckoutRequestID(ctx, checkoutID)
		if err != nil {
			return err
		}

		return repo.ApplyOutcome(ctx, locked.ID, payments.Outcome{
			CheckoutRequestID: checkoutID,
			ResultCode:        "0",
			ResultDesc:        "The service request is processed successfully.",
			Status:            payments.StatusCompleted,
			ReceiptNumber:     pointer.To("QAZ123"),
		})
	})
	s.Require().NoError(err)

	got, err = repo.GetByBookingID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(payments.StatusCompleted, got.PaymentStatus)
	s.Require().NotNil(got.MpesaReceiptNumber)
	s.Equal("QAZ123", *got.MpesaReceiptNumber)
	s.Require().NotNil(got.MerchantRequestID)
	s.Equal("mr_1", *got.MerchantRequestID)

	open, err := repo.ListOpenByUser(ctx, *b.UserID)
	s.Require().NoError(err)
	s.Empty(open)

	// a later failure overrides the earlier success, receipt included
	s.Require().NoError(repo.ApplyOutcome(ctx, p.ID, payments.Outcome{
		CheckoutRequestID: checkoutID,
		ResultCode:        "1032",
		ResultDesc:        "Request cancelled by user",
		Status:            payments.StatusFailed,
	}))

	got, err = repo.GetPendingPayment(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(payments.StatusFailed, got.PaymentStatus)
	s.Nil(got.MpesaReceiptNumber)

	_, err = repo.GetByCheckoutRequestID(ctx, "ws_CO_unknown")
	s.ErrorIs(err, payments.ErrPendingPaymentNotFound)
}

func (s *RepositoryTestSuite) TestPayments_retry() {
	ctx := context.Background()
	repo := repository.NewPaymentsRepo(s.db, trmsqlx.DefaultCtxGetter)

	b := s.newBooking(s.newListing(listings.KindTrip, true), nil, 1)
	p := payments.PendingPayment{
		ID:            uuid.New(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		PhoneNumber:   "254712345678",
		Amount:        1500,
		PaymentStatus: payments.StatusPending,
	}
	s.Require().NoError(repo.CreatePendingPayment(ctx, p))
	s.Require().NoError(repo.SetCheckoutRequest(ctx, p.ID, "ws_CO_"+uuid.NewString(), "mr_2"))
	s.Require().NoError(repo.MarkFailed(ctx, p.ID, "Request cancelled by user"))

	open, err := repo.ListOpenByUser(ctx, *b.UserID)
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.True(open[0].CanRetry())

	s.Require().NoError(repo.ResetForRetry(ctx, p.ID))

	got, err := repo.GetPendingPayment(ctx, p.ID)
	s.Require().NoError(err)
	s.True(got.AwaitingPrompt())
	s.Nil(got.ResultDesc)
	s.Nil(got.MpesaReceiptNumber)

	s.ErrorIs(repo.MarkFailed(ctx, uuid.New(), "x"), payments.ErrPendingPaymentNotFound)
}

func (s *RepositoryTestSuite) TestCallbackLog() {
	ctx := context.Background()
	repo := repository.NewPaymentsRepo(s.db, trmsqlx.DefaultCtxGetter)

	entry := payments.NewCallbackLogEntry([]byte(`{"Body":`), nil)
	s.Require().NoError(repo.InsertCallbackLog(ctx, entry))

	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT raw_payload::text FROM mpesa_callback_log ORDER BY id DESC LIMIT 1`)
	s.Require().NoError(err)
	s.JSONEq(`"{\"Body\":"`, raw)
}

func (s *RepositoryTestSuite) TestRescheduleLog() {
	ctx := context.Background()
	repo := repository.NewRescheduleLogRepo(s.db, trmsqlx.DefaultCtxGetter)

	b := s.newBooking(s.newListing(listings.KindAdventurePlace, true), pointer.To(day(2025, 3, 15)), 1)
	s.Require().NoError(repo.Append(ctx, b.ID, *b.UserID, day(2025, 3, 15), day(2025, 3, 16)))

	var count int
	s.Require().NoError(s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reschedule_log WHERE booking_id = $1`, b.ID))
	s.Equal(1, count)
}

func (s *RepositoryTestSuite) TestSavedItems() {
	ctx := context.Background()
	repo := repository.NewSavedItemsRepo(s.db)

	l := s.newListing(listings.KindHotel, true)
	userID := uuid.New()
	item := saved.Item{UserID: userID, ItemID: l.ID, ItemType: l.Kind}

	s.Require().NoError(repo.Save(ctx, item))
	s.Require().NoError(repo.Save(ctx, item))

	entries, err := repo.List(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(l.ID, entries[0].Item.ItemID)
	s.Equal(l.Name, entries[0].Listing.Name)
	s.False(entries[0].Item.CreatedAt.IsZero())

	s.Require().NoError(repo.Remove(ctx, userID, l.ID))
	s.Require().NoError(repo.Remove(ctx, userID, l.ID))

	entries, err = repo.List(ctx, userID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *RepositoryTestSuite) TestNotifications() {
	ctx := context.Background()
	repo := repository.NewNotificationsRepo(s.db)

	userID := uuid.New()
	n := notifications.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    notifications.TypePaymentConfirmed,
		Title:   "Payment Confirmed",
		Message: "Your payment of KES 1,500 for Hell's Gate has been confirmed.",
	}
	s.Require().NoError(repo.Add(ctx, n))
	s.Require().NoError(repo.Add(ctx, n))

	stored, err := repo.ListForUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(n.Message, stored[0].Message)
	s.False(stored[0].IsRead)
	s.JSONEq(`{}`, string(stored[0].Data))
}

func (s *RepositoryTestSuite) TestProfiles() {
	ctx := context.Background()
	repo := repository.NewProfilesRepo(s.db)

	withEmail, withoutEmail := uuid.New(), uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (id, name, email) VALUES ($1, 'Wanjiru', 'host@example.com'), ($2, 'Otieno', NULL)`,
		withEmail, withoutEmail)
	s.Require().NoError(err)

	p, err := repo.GetProfile(ctx, withEmail)
	s.Require().NoError(err)
	s.Equal("host@example.com", p.Email)

	_, err = repo.GetProfile(ctx, withoutEmail)
	s.ErrorIs(err, notifications.ErrHostEmailNotFound)

	_, err = repo.GetProfile(ctx, uuid.New())
	s.ErrorIs(err, notifications.ErrHostEmailNotFound)
}

func TestEventsRepo_SaveEvent_is_idempotent(t *testing.T) {
	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		t.Skip("POSTGRES_URL not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, repository.InitializeDBSchema(ctx, db))

	repo := repository.NewEventsRepo(db)
	event, err := entities.NewEventHeader().Store("BookingMade_v1", []byte(`{"booking_id":"x"}`))
	require.NoError(t, err)

	require.NoError(t, repo.SaveEvent(ctx, event))
	require.NoError(t, repo.SaveEvent(ctx, event))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events WHERE event_id = $1`, event.ID))
	assert.Equal(t, 1, count)
}
