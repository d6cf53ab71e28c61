package bookings

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/payments"
)

// Request is a guest's booking submission before it is checked against the listing.
type Request struct {
	ItemID      uuid.UUID
	UserID      *uuid.UUID
	GuestName   string
	GuestEmail  string
	GuestPhone  string
	VisitDate   *time.Time
	SlotsBooked int
	ChildSlots  int
	Details     map[string]any
}

// Validate checks the submission and rewrites GuestPhone to the MSISDN the payment prompt is sent to.
func (r *Request) Validate() error {
	if r.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required: %w", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.GuestName) == "" {
		return fmt.Errorf("guest_name is required: %w", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.GuestEmail) == "" && strings.TrimSpace(r.GuestPhone) == "" {
		return fmt.Errorf("guest_email or guest_phone is required: %w", ErrInvalidRequest)
	}
	if r.GuestEmail != "" {
		if _, err := mail.ParseAddress(r.GuestEmail); err != nil {
			return fmt.Errorf("guest_email %q is not a valid address: %w", r.GuestEmail, ErrInvalidRequest)
		}
	}
	if strings.TrimSpace(r.GuestPhone) != "" {
		phone, err := payments.NormalizeMSISDN(r.GuestPhone)
		if err != nil {
			return fmt.Errorf("guest_phone: %w: %w", err, ErrInvalidRequest)
		}
		r.GuestPhone = phone
	}
	if r.SlotsBooked < 1 {
		return fmt.Errorf("slots_booked must be at least 1: %w", ErrInvalidRequest)
	}
	if r.ChildSlots < 0 || r.ChildSlots > r.SlotsBooked {
		return fmt.Errorf("child_slots must be between 0 and slots_booked: %w", ErrInvalidRequest)
	}

	return nil
}

// ResolveVisitDate returns the date the booking will hold against the listing.
// Date-fixed listings use their own date; everything else needs a future working day.
func (r Request) ResolveVisitDate(l listings.Listing, today time.Time) (*time.Time, error) {
	today = listings.Day(today)

	if l.IsDateFixed() {
		if l.FixedDate == nil {
			if r.VisitDate != nil {
				return nil, fmt.Errorf("%s has no selectable dates: %w", l.Kind, ErrInvalidVisitDate)
			}
			return nil, nil
		}

		fixed := listings.Day(*l.FixedDate)
		if r.VisitDate != nil && !listings.Day(*r.VisitDate).Equal(fixed) {
			return nil, fmt.Errorf("%s runs on %s only: %w", l.Kind, listings.FormatDate(fixed), ErrInvalidVisitDate)
		}
		if fixed.Before(today) {
			return nil, fmt.Errorf("%s already took place on %s: %w", l.Kind, listings.FormatDate(fixed), ErrInvalidVisitDate)
		}
		return &fixed, nil
	}

	if r.VisitDate == nil {
		return nil, fmt.Errorf("visit_date is required: %w", ErrInvalidVisitDate)
	}

	day := listings.Day(*r.VisitDate)
	if day.Before(today) {
		return nil, fmt.Errorf("%s is in the past: %w", listings.FormatDate(day), ErrInvalidVisitDate)
	}
	if !l.IsWorkingDay(day) {
		return nil, fmt.Errorf("%s is closed on %s: %w", l.Name, day.Weekday(), ErrInvalidVisitDate)
	}

	return &day, nil
}

// TotalAmount prices adults at the listing price and children at the child price.
func TotalAmount(l listings.Listing, slots, childSlots int) float64 {
	adults := slots - childSlots
	total := l.Price*float64(adults) + l.ChildUnitPrice()*float64(childSlots)

	return math.Round(total*100) / 100
}

// CheckCapacity fails when the requested slots would push the booked total past capacity.
// A capacity of zero or less means the listing has no configured limit.
func CheckCapacity(capacity, booked, requested int) error {
	if capacity > 0 && booked+requested > capacity {
		remaining := capacity - booked
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Errorf("slots available: %d, requested: %d, %w", remaining, requested, ErrNotEnoughCapacity)
	}

	return nil
}

// DetailsSnapshot merges the client supplied details with a snapshot of the listing.
func (r Request) DetailsSnapshot(l listings.Listing) (json.RawMessage, error) {
	details := map[string]any{}
	for k, v := range r.Details {
		details[k] = v
	}

	details[l.DetailsKey()] = l.Name
	details["location"] = l.Location
	details["unit_price"] = l.Price
	details["adults"] = r.SlotsBooked - r.ChildSlots
	details["children"] = r.ChildSlots

	return json.Marshal(details)
}
