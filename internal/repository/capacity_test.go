package repository_test

import (
	"context"
	"sync"
	"time"

	"github.com/AlekSi/pointer"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"

	"marketplace/internal/application/usecases/booking"
	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/repository"
	"marketplace/internal/repository/inmemory"
	"marketplace/internal/transaction"
)

func nextSaturday(from time.Time) time.Time {
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func (s *RepositoryTestSuite) TestSubmit_concurrent_requests_for_last_slots() {
	ctx := context.Background()

	l := s.newListing(listings.KindAdventurePlace, true)
	visitDate := nextSaturday(time.Now().UTC().AddDate(0, 0, 7))

	// 10 slots, 6 taken: room for two more bookings of 2
	s.newBooking(l, pointer.To(visitDate), 6)

	usecase := booking.NewUsecase(
		repository.NewListingsRepo(s.db, trmsqlx.DefaultCtxGetter),
		repository.NewBookingsRepo(s.db, trmsqlx.DefaultCtxGetter),
		repository.NewPaymentsRepo(s.db, trmsqlx.DefaultCtxGetter),
		trmanager.Must(trmsqlx.NewDefaultFactory(s.db)),
		&inmemory.Publisher{},
	)

	const workers = 8
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			_, errs[i] = usecase.Submit(ctx, bookings.Request{
				ItemID:      l.ID,
				GuestName:   "Amina Otieno",
				GuestPhone:  "0712345678",
				VisitDate:   pointer.To(visitDate),
				SlotsBooked: 2,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		// a request can also run out of serialization retries; it still must not book anything
		if !transaction.IsSerializationFailure(err) {
			s.ErrorIs(err, bookings.ErrNotEnoughCapacity)
		}
	}
	s.GreaterOrEqual(succeeded, 1)
	s.LessOrEqual(succeeded, 2)

	var total int
	err := s.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(slots_booked), 0) FROM bookings WHERE item_id = $1 AND visit_date = $2 AND status <> 'cancelled'`,
		l.ID, visitDate)
	s.Require().NoError(err)
	s.LessOrEqual(total, l.Capacity)
	s.Equal(6+2*succeeded, total)

	var payments int
	err = s.db.GetContext(ctx, &payments,
		`SELECT COUNT(*) FROM pending_payments p JOIN bookings b ON b.id = p.booking_id WHERE b.item_id = $1`, l.ID)
	s.Require().NoError(err)
	s.Equal(succeeded, payments)
}
