package reschedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/reschedule"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) // Monday

func hotelBooking(visit time.Time, slots int) bookings.Booking {
	return bookings.Booking{
		ID:          uuid.New(),
		BookingType: listings.KindHotel,
		Status:      bookings.StatusActive,
		VisitDate:   pointer.To(visit),
		SlotsBooked: slots,
	}
}

func TestCheckEligibility(t *testing.T) {
	hotel := listings.Listing{Kind: listings.KindHotel}

	testCases := []struct {
		name     string
		booking  bookings.Booking
		listing  listings.Listing
		eligible bool
		reason   string
	}{
		{
			name:    "event",
			booking: bookings.Booking{BookingType: listings.KindEvent, Status: bookings.StatusActive},
			listing: listings.Listing{Kind: listings.KindEvent},
			reason:  reschedule.ReasonEventFixedDate,
		},
		{
			name:    "fixed date trip",
			booking: bookings.Booking{BookingType: listings.KindTrip, Status: bookings.StatusActive},
			listing: listings.Listing{Kind: listings.KindTrip},
			reason:  reschedule.ReasonTripFixedDate,
		},
		{
			name:     "flexible trip",
			booking:  bookings.Booking{BookingType: listings.KindTrip, Status: bookings.StatusActive},
			listing:  listings.Listing{Kind: listings.KindTrip, IsFlexibleDate: true},
			eligible: true,
		},
		{
			name:     "custom date trip",
			booking:  bookings.Booking{BookingType: listings.KindTrip, Status: bookings.StatusActive},
			listing:  listings.Listing{Kind: listings.KindTrip, IsCustomDate: true},
			eligible: true,
		},
		{
			name:    "visit in 47 hours",
			booking: hotelBooking(now.Add(47*time.Hour), 1),
			listing: hotel,
			reason:  reschedule.ReasonTooLate,
		},
		{
			name:     "visit in 48 hours",
			booking:  hotelBooking(now.Add(48*time.Hour), 1),
			listing:  hotel,
			eligible: true,
		},
		{
			name:     "no visit date yet",
			booking:  bookings.Booking{BookingType: listings.KindHotel, Status: bookings.StatusActive},
			listing:  hotel,
			eligible: true,
		},
		{
			name:    "cancelled",
			booking: bookings.Booking{BookingType: listings.KindHotel, Status: bookings.StatusCancelled},
			listing: hotel,
			reason:  reschedule.ReasonInactive,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := reschedule.CheckEligibility(tc.booking, tc.listing, now)
			assert.Equal(t, tc.eligible, got.Eligible)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestCalendar_capacity(t *testing.T) {
	hotel := listings.Listing{Kind: listings.KindHotel, Capacity: 10}
	target := now.AddDate(0, 0, 7)

	// two other bookings of 4 and 5 slots on the target date
	booked := map[string]int{listings.FormatDate(target): 4 + 5}

	blocked := reschedule.NewCalendar(hotel, booked, 2, now)
	assert.Equal(t, reschedule.ReasonFullyBooked, blocked.Check(target))
	assert.Empty(t, blocked.Check(target.AddDate(0, 0, 1)))

	allowed := reschedule.NewCalendar(hotel, booked, 1, now)
	assert.Empty(t, allowed.Check(target))
}

func TestCalendar_workingDays(t *testing.T) {
	place := listings.Listing{
		Kind:       listings.KindAdventurePlace,
		DaysOpened: []string{"Saturday", "Sunday"},
	}

	calendar := reschedule.NewCalendar(place, nil, 1, now)
	dates := calendar.SelectableDates(now, now.AddDate(0, 0, 13))

	var days []string
	for _, d := range dates {
		days = append(days, listings.FormatDate(d))
	}
	assert.Equal(t, []string{"2025-03-15", "2025-03-16", "2025-03-22", "2025-03-23"}, days)

	assert.Equal(t, reschedule.ReasonNotWorkingDay, calendar.Check(now.AddDate(0, 0, 3)))
	assert.Equal(t, reschedule.ReasonPastDate, calendar.Check(now.AddDate(0, 0, -2)))
}

func TestCalendar_tripsIgnoreWorkingDays(t *testing.T) {
	trip := listings.Listing{Kind: listings.KindTrip, IsFlexibleDate: true, DaysOpened: []string{"Sunday"}}

	calendar := reschedule.NewCalendar(trip, nil, 1, now)
	assert.Empty(t, calendar.Check(now.AddDate(0, 0, 3)))
}

func TestCalendar_minimumNotice(t *testing.T) {
	hotel := listings.Listing{Kind: listings.KindHotel}
	wednesday := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		now    time.Time
		day    time.Time
		reason string
	}{
		{name: "today", now: now, day: now, reason: reschedule.ReasonTooSoon},
		{name: "tomorrow", now: now, day: now.AddDate(0, 0, 1), reason: reschedule.ReasonTooSoon},
		{name: "47 hours ahead", now: wednesday.Add(-47 * time.Hour), day: wednesday, reason: reschedule.ReasonTooSoon},
		{name: "48 hours ahead", now: wednesday.Add(-48 * time.Hour), day: wednesday},
		{name: "yesterday", now: now, day: now.AddDate(0, 0, -1), reason: reschedule.ReasonPastDate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calendar := reschedule.NewCalendar(hotel, nil, 1, tc.now)
			assert.Equal(t, tc.reason, calendar.Check(tc.day))
		})
	}
}

func TestCalendar_selectableDatesSkipShortNotice(t *testing.T) {
	hotel := listings.Listing{Kind: listings.KindHotel}

	// Monday noon: Tuesday and Wednesday are less than 48 hours away
	dates := reschedule.NewCalendar(hotel, nil, 1, now).SelectableDates(now, now.AddDate(0, 0, 3))

	require.Len(t, dates, 1)
	assert.Equal(t, "2025-03-13", listings.FormatDate(dates[0]))
}

func TestFlow(t *testing.T) {
	hotel := listings.Listing{Kind: listings.KindHotel, Capacity: 10}
	booking := hotelBooking(now.AddDate(0, 0, 5), 2)
	target := now.AddDate(0, 0, 10)

	t.Run("happy path", func(t *testing.T) {
		flow := reschedule.Start(booking, hotel, reschedule.NewCalendar(hotel, nil, 2, now), now)
		require.Equal(t, reschedule.StateEligible, flow.State())

		require.NoError(t, flow.Select(target))
		assert.Equal(t, reschedule.StateDateSelected, flow.State())

		date, err := flow.Submit()
		require.NoError(t, err)
		assert.Equal(t, listings.Day(target), date)
		assert.Equal(t, reschedule.StateSubmitted, flow.State())

		flow.Complete(nil)
		assert.Equal(t, reschedule.StateSucceeded, flow.State())
	})

	t.Run("failed submission can be retried", func(t *testing.T) {
		flow := reschedule.Start(booking, hotel, reschedule.NewCalendar(hotel, nil, 2, now), now)
		require.NoError(t, flow.Select(target))
		_, err := flow.Submit()
		require.NoError(t, err)

		flow.Complete(errors.New("connection reset"))
		assert.Equal(t, reschedule.StateFailed, flow.State())
		assert.Error(t, flow.Err())

		require.NoError(t, flow.Retry())
		assert.Equal(t, reschedule.StateDateSelected, flow.State())
	})

	t.Run("ineligible", func(t *testing.T) {
		late := hotelBooking(now.Add(24*time.Hour), 2)
		flow := reschedule.Start(late, hotel, reschedule.NewCalendar(hotel, nil, 2, now), now)
		assert.Equal(t, reschedule.StateIneligible, flow.State())
		assert.Equal(t, reschedule.ReasonTooLate, flow.Reason())

		err := flow.Select(target)
		assert.ErrorIs(t, err, reschedule.ErrNotEligible)
	})

	t.Run("full date", func(t *testing.T) {
		booked := map[string]int{listings.FormatDate(target): 9}
		flow := reschedule.Start(booking, hotel, reschedule.NewCalendar(hotel, booked, 2, now), now)

		err := flow.Select(target)
		assert.ErrorIs(t, err, reschedule.ErrDateNotSelectable)
		assert.Equal(t, reschedule.StateEligible, flow.State())
	})

	t.Run("date within 48 hours", func(t *testing.T) {
		flow := reschedule.Start(booking, hotel, reschedule.NewCalendar(hotel, nil, 2, now), now)

		err := flow.Select(now.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, reschedule.ErrDateNotSelectable)
		assert.Contains(t, err.Error(), reschedule.ReasonTooSoon)
		assert.Equal(t, reschedule.StateEligible, flow.State())
	})

	t.Run("submit without date", func(t *testing.T) {
		flow := reschedule.Start(booking, hotel, reschedule.NewCalendar(hotel, nil, 2, now), now)
		_, err := flow.Submit()
		assert.ErrorIs(t, err, reschedule.ErrInvalidTransition)
	})
}

func TestNewNotice(t *testing.T) {
	date := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)

	set := reschedule.NewNotice("Lake View", date, true)
	assert.Equal(t, "visit_date_set", set.Type)
	assert.Equal(t, "Your visit date for Lake View has been set to April 5, 2025.", set.Message)

	moved := reschedule.NewNotice("", date, false)
	assert.Equal(t, "booking_rescheduled", moved.Type)
	assert.Equal(t, "Your booking for Your booking has been moved to April 5, 2025.", moved.Message)
}
