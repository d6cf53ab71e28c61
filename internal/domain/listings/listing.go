package listings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrUnknownKind     = errors.New("unknown listing kind")
)

// DateLayout is the wire format of visit dates.
const DateLayout = "2006-01-02"

type Kind string

const (
	KindTrip           Kind = "trip"
	KindEvent          Kind = "event"
	KindHotel          Kind = "hotel"
	KindAdventurePlace Kind = "adventure_place"
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trip":
		return KindTrip, nil
	case "event":
		return KindEvent, nil
	case "hotel":
		return KindHotel, nil
	case "adventure_place", "adventure", "attraction":
		return KindAdventurePlace, nil
	}

	return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
}

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

type Listing struct {
	ID             uuid.UUID  `json:"id"`
	Kind           Kind       `json:"kind"`
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	Country        string     `json:"country"`
	HostID         uuid.UUID  `json:"host_id"`
	Price          float64    `json:"price"`
	ChildPrice     float64    `json:"child_price"`
	Capacity       int        `json:"capacity"`
	DaysOpened     []string   `json:"days_opened"`
	OpeningHours   string     `json:"opening_hours,omitempty"`
	ClosingHours   string     `json:"closing_hours,omitempty"`
	FixedDate      *time.Time `json:"fixed_date,omitempty"`
	IsFlexibleDate bool       `json:"is_flexible_date"`
	IsCustomDate   bool       `json:"is_custom_date"`
	ApprovalStatus string     `json:"approval_status"`
	IsHidden       bool       `json:"is_hidden"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Bookable reports whether guests may book the listing.
func (l Listing) Bookable() bool {
	return l.ApprovalStatus == ApprovalApproved && !l.IsHidden
}

// IsDateFixed reports whether the visit date is set by the listing rather than the guest.
// Events always have one; trips only when neither flexible nor custom dates are allowed.
func (l Listing) IsDateFixed() bool {
	switch l.Kind {
	case KindEvent:
		return true
	case KindTrip:
		return !l.IsFlexibleDate && !l.IsCustomDate
	default:
		return false
	}
}

// ChecksWorkingDays reports whether visit dates must fall on DaysOpened.
// Trips run on their own schedule.
func (l Listing) ChecksWorkingDays() bool {
	return l.Kind != KindTrip && len(l.DaysOpened) > 0
}

func (l Listing) IsWorkingDay(day time.Time) bool {
	if !l.ChecksWorkingDays() {
		return true
	}

	weekday := day.Weekday().String()
	for _, d := range l.DaysOpened {
		if strings.EqualFold(strings.TrimSpace(d), weekday) {
			return true
		}
	}

	return false
}

func (l Listing) ChildUnitPrice() float64 {
	if l.ChildPrice > 0 {
		return l.ChildPrice
	}

	return l.Price
}

// DetailsKey is the booking_details field that carries the listing name for this kind.
func (l Listing) DetailsKey() string {
	switch l.Kind {
	case KindTrip:
		return "trip_name"
	case KindEvent:
		return "event_name"
	case KindHotel:
		return "hotel_name"
	default:
		return "place_name"
	}
}

// Day truncates t to a calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
