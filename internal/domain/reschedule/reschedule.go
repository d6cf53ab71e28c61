package reschedule

import (
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
)

var (
	ErrNotEligible       = errors.New("booking cannot be rescheduled")
	ErrDateNotSelectable = errors.New("date cannot be selected")
	ErrInvalidTransition = errors.New("invalid reschedule transition")
)

// MinNotice applies to both ends of a move: the current visit date and the new one must be at least this far away.
const MinNotice = 48 * time.Hour

const (
	ReasonEventFixedDate = "Events with fixed dates cannot be rescheduled."
	ReasonTripFixedDate  = "This trip has a fixed date and cannot be rescheduled."
	ReasonTooLate        = "Bookings cannot be rescheduled within 48 hours of the scheduled date."
	ReasonInactive       = "Cancelled bookings cannot be rescheduled."
)

const (
	ReasonPastDate      = "Selected date is in the past"
	ReasonTooSoon       = "Select a visit date at least 48 hours in advance"
	ReasonNotWorkingDay = "Selected date is not a working day"
	ReasonFullyBooked   = "Selected date is fully booked"
)

type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

func CheckEligibility(b bookings.Booking, l listings.Listing, now time.Time) Eligibility {
	if !b.Counts() {
		return Eligibility{Reason: ReasonInactive}
	}

	if b.BookingType == listings.KindEvent || l.Kind == listings.KindEvent {
		return Eligibility{Reason: ReasonEventFixedDate}
	}

	if l.Kind == listings.KindTrip && !l.IsFlexibleDate && !l.IsCustomDate {
		return Eligibility{Reason: ReasonTripFixedDate}
	}

	if b.VisitDate != nil && b.VisitDate.Sub(now) < MinNotice {
		return Eligibility{Reason: ReasonTooLate}
	}

	return Eligibility{Eligible: true}
}

// Calendar answers which dates a booking may move to.
type Calendar struct {
	listing listings.Listing
	booked  map[string]int // slots of other active bookings per date
	slots   int
	now     time.Time
	today   time.Time
}

func NewCalendar(l listings.Listing, booked map[string]int, slots int, now time.Time) Calendar {
	if booked == nil {
		booked = map[string]int{}
	}
	if slots < 1 {
		slots = 1
	}

	return Calendar{
		listing: l,
		booked:  booked,
		slots:   slots,
		now:     now,
		today:   listings.Day(now),
	}
}

// Check returns an empty reason when the day can be selected.
func (c Calendar) Check(day time.Time) string {
	day = listings.Day(day)

	if day.Before(c.today) {
		return ReasonPastDate
	}
	if day.Sub(c.now) < MinNotice {
		return ReasonTooSoon
	}
	if !c.listing.IsWorkingDay(day) {
		return ReasonNotWorkingDay
	}
	if c.isFull(day) {
		return ReasonFullyBooked
	}

	return ""
}

func (c Calendar) isFull(day time.Time) bool {
	booked := c.booked[listings.FormatDate(day)]
	if c.listing.Capacity <= 0 {
		return false
	}

	return bookings.CheckCapacity(c.listing.Capacity, booked, c.slots) != nil
}

// SelectableDates lists the days in [from, to] that pass Check.
func (c Calendar) SelectableDates(from, to time.Time) []time.Time {
	var dates []time.Time
	for day := listings.Day(from); !day.After(listings.Day(to)); day = day.AddDate(0, 0, 1) {
		if c.Check(day) == "" {
			dates = append(dates, day)
		}
	}

	return dates
}

type State string

const (
	StateIneligible   State = "ineligible"
	StateEligible     State = "eligible"
	StateDateSelected State = "date_selected"
	StateSubmitted    State = "submitted"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Flow walks a single reschedule attempt from eligibility to its result.
type Flow struct {
	state    State
	reason   string
	calendar Calendar
	selected *time.Time
	err      error
}

func Start(b bookings.Booking, l listings.Listing, calendar Calendar, now time.Time) *Flow {
	eligibility := CheckEligibility(b, l, now)
	if !eligibility.Eligible {
		return &Flow{state: StateIneligible, reason: eligibility.Reason, calendar: calendar}
	}

	return &Flow{state: StateEligible, calendar: calendar}
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) Reason() string {
	return f.reason
}

func (f *Flow) Err() error {
	return f.err
}

// Select picks a new date. Picking again before submitting replaces the previous choice.
func (f *Flow) Select(day time.Time) error {
	switch f.state {
	case StateIneligible:
		return fmt.Errorf("%s: %w", f.reason, ErrNotEligible)
	case StateEligible, StateDateSelected:
	default:
		return fmt.Errorf("select in state %s: %w", f.state, ErrInvalidTransition)
	}

	if reason := f.calendar.Check(day); reason != "" {
		return fmt.Errorf("%s: %s: %w", listings.FormatDate(day), reason, ErrDateNotSelectable)
	}

	selected := listings.Day(day)
	f.selected = &selected
	f.state = StateDateSelected

	return nil
}

func (f *Flow) Submit() (time.Time, error) {
	if f.state != StateDateSelected || f.selected == nil {
		return time.Time{}, fmt.Errorf("submit in state %s: %w", f.state, ErrInvalidTransition)
	}

	f.state = StateSubmitted
	return *f.selected, nil
}

// Complete records the result of persisting a submitted date.
func (f *Flow) Complete(err error) {
	if f.state != StateSubmitted {
		return
	}

	if err != nil {
		f.state = StateFailed
		f.err = err
		return
	}

	f.state = StateSucceeded
}

// Retry returns a failed attempt to date selection.
func (f *Flow) Retry() error {
	if f.state != StateFailed {
		return fmt.Errorf("retry in state %s: %w", f.state, ErrInvalidTransition)
	}

	f.state = StateDateSelected
	f.err = nil
	return nil
}

// Notice is the in-app message a guest receives once the date is saved.
type Notice struct {
	Type    string
	Title   string
	Message string
}

func NewNotice(itemName string, newDate time.Time, isNewSchedule bool) Notice {
	if itemName == "" {
		itemName = "Your booking"
	}
	date := newDate.Format("January 2, 2006")

	if isNewSchedule {
		return Notice{
			Type:    "visit_date_set",
			Title:   "Visit Date Set",
			Message: fmt.Sprintf("Your visit date for %s has been set to %s.", itemName, date),
		}
	}

	return Notice{
		Type:    "booking_rescheduled",
		Title:   "Booking Rescheduled",
		Message: fmt.Sprintf("Your booking for %s has been moved to %s.", itemName, date),
	}
}
