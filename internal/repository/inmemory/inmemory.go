// Package inmemory holds map backed repositories for tests.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/notifications"
	"marketplace/internal/domain/payments"
	"marketplace/internal/domain/saved"
	"marketplace/internal/entities"
	"marketplace/internal/repository"
)

// Runner runs the function without a real transaction.
type Runner struct {
	Calls int
}

func (r *Runner) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(ctx context.Context) error) error {
	r.Calls++
	return fn(ctx)
}

type Publisher struct {
	mu     sync.Mutex
	Events []entities.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, event entities.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, event)
	return nil
}

func (p *Publisher) Published() []entities.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]entities.Event(nil), p.Events...)
}

type Listings struct {
	mu    sync.Mutex
	items map[uuid.UUID]listings.Listing
}

func NewListings(ls ...listings.Listing) *Listings {
	r := &Listings{items: map[uuid.UUID]listings.Listing{}}
	for _, l := range ls {
		r.items[l.ID] = l
	}

	return r
}

func (r *Listings) GetListing(_ context.Context, id uuid.UUID) (listings.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.items[id]
	if !ok {
		return listings.Listing{}, fmt.Errorf("listing %s: %w", id, listings.ErrListingNotFound)
	}

	return l, nil
}

func (r *Listings) ListListings(_ context.Context, f repository.ListFilter) ([]listings.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []listings.Listing{}
	for _, l := range r.items {
		if !l.Bookable() || (f.Kind != nil && l.Kind != *f.Kind) {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if f.Offset >= len(result) {
		return []listings.Listing{}, nil
	}
	result = result[f.Offset:]
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}

	return result, nil
}

type Bookings struct {
	mu    sync.Mutex
	items map[uuid.UUID]bookings.Booking
}

func NewBookings(bs ...bookings.Booking) *Bookings {
	r := &Bookings{items: map[uuid.UUID]bookings.Booking{}}
	for _, b := range bs {
		r.items[b.ID] = b
	}

	return r
}

func (r *Bookings) CreateBooking(_ context.Context, b bookings.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[b.ID]; ok {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt
	r.items[b.ID] = b
	return nil
}

func (r *Bookings) GetBooking(_ context.Context, id uuid.UUID) (bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]
	if !ok {
		return bookings.Booking{}, fmt.Errorf("booking %s: %w", id, bookings.ErrBookingNotFound)
	}

	return b, nil
}

func (r *Bookings) All() []bookings.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]bookings.Booking, 0, len(r.items))
	for _, b := range r.items {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result
}

func (r *Bookings) ListUserBookings(_ context.Context, userID uuid.UUID) ([]bookings.Booking, error) {
	var result []bookings.Booking
	for _, b := range r.All() {
		if b.OwnedBy(userID) {
			result = append(result, b)
		}
	}

	return result, nil
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return listings.Day(*a).Equal(listings.Day(*b))
}

func (r *Bookings) SumActiveSlots(_ context.Context, itemID uuid.UUID, visitDate *time.Time, excludeID uuid.UUID) (int, error) {
	total := 0
	for _, b := range r.All() {
		if b.ItemID == itemID && b.ID != excludeID && b.Counts() && sameDay(b.VisitDate, visitDate) {
			total += b.Slots()
		}
	}

	return total, nil
}

func (r *Bookings) ActiveSlotsByDate(_ context.Context, itemID, excludeID uuid.UUID, from, to time.Time) (map[string]int, error) {
	booked := map[string]int{}
	for _, b := range r.All() {
		if b.ItemID != itemID || b.ID == excludeID || !b.Counts() || b.VisitDate == nil {
			continue
		}
		day := listings.Day(*b.VisitDate)
		if day.Before(listings.Day(from)) || day.After(listings.Day(to)) {
			continue
		}
		booked[listings.FormatDate(day)] += b.Slots()
	}

	return booked, nil
}

func (r *Bookings) modify(id uuid.UUID, fn func(b *bookings.Booking)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, bookings.ErrBookingNotFound)
	}
	fn(&b)
	b.UpdatedAt = time.Now().UTC()
	r.items[id] = b

	return nil
}

func (r *Bookings) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status bookings.PaymentStatus) error {
	return r.modify(id, func(b *bookings.Booking) { b.PaymentStatus = status })
}

func (r *Bookings) UpdateStatus(_ context.Context, id uuid.UUID, status bookings.Status) error {
	return r.modify(id, func(b *bookings.Booking) { b.Status = status })
}

func (r *Bookings) UpdateVisitDate(_ context.Context, id uuid.UUID, visitDate time.Time) error {
	return r.modify(id, func(b *bookings.Booking) {
		d := listings.Day(visitDate)
		b.VisitDate = &d
	})
}

type Payments struct {
	mu          sync.Mutex
	items       map[uuid.UUID]payments.PendingPayment
	CallbackLog []payments.CallbackLogEntry
}

func NewPayments(ps ...payments.PendingPayment) *Payments {
	r := &Payments{items: map[uuid.UUID]payments.PendingPayment{}}
	for _, p := range ps {
		r.items[p.ID] = p
	}

	return r
}

func (r *Payments) CreatePendingPayment(_ context.Context, p payments.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.items[p.ID] = p
	return nil
}

func (r *Payments) find(match func(p payments.PendingPayment) bool) (payments.PendingPayment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found payments.PendingPayment
	ok := false
	for _, p := range r.items {
		if match(p) && (!ok || p.CreatedAt.After(found.CreatedAt)) {
			found, ok = p, true
		}
	}

	return found, ok
}

func (r *Payments) GetPendingPayment(_ context.Context, id uuid.UUID) (payments.PendingPayment, error) {
	p, ok := r.find(func(p payments.PendingPayment) bool { return p.ID == id })
	if !ok {
		return payments.PendingPayment{}, fmt.Errorf("%s: %w", id, payments.ErrPendingPaymentNotFound)
	}

	return p, nil
}

func (r *Payments) GetByBookingID(_ context.Context, bookingID uuid.UUID) (payments.PendingPayment, error) {
	p, ok := r.find(func(p payments.PendingPayment) bool { return p.BookingID == bookingID })
	if !ok {
		return payments.PendingPayment{}, fmt.Errorf("%s: %w", bookingID, payments.ErrPendingPaymentNotFound)
	}

	return p, nil
}

func (r *Payments) GetByCheckoutRequestID(_ context.Context, checkoutRequestID string) (payments.PendingPayment, error) {
	p, ok := r.find(func(p payments.PendingPayment) bool {
		return p.CheckoutRequestID != nil && *p.CheckoutRequestID == checkoutRequestID
	})
	if !ok {
		return payments.PendingPayment{}, fmt.Errorf("checkout %s: %w", checkoutRequestID, payments.ErrPendingPaymentNotFound)
	}

	return p, nil
}

func (r *Payments) modify(id uuid.UUID, fn func(p *payments.PendingPayment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, payments.ErrPendingPaymentNotFound)
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p

	return nil
}

func (r *Payments) ApplyOutcome(_ context.Context, id uuid.UUID, o payments.Outcome) error {
	return r.modify(id, func(p *payments.PendingPayment) {
		code, desc := o.ResultCode, o.ResultDesc
		p.PaymentStatus = o.Status
		p.ResultCode = &code
		p.ResultDesc = &desc
		p.MpesaReceiptNumber = o.ReceiptNumber
		if o.MerchantRequestID != "" {
			merchant := o.MerchantRequestID
			p.MerchantRequestID = &merchant
		}
	})
}

func (r *Payments) SetCheckoutRequest(_ context.Context, id uuid.UUID, checkoutRequestID, merchantRequestID string) error {
	return r.modify(id, func(p *payments.PendingPayment) {
		p.CheckoutRequestID = &checkoutRequestID
		p.MerchantRequestID = &merchantRequestID
	})
}

func (r *Payments) MarkFailed(_ context.Context, id uuid.UUID, resultDesc string) error {
	return r.modify(id, func(p *payments.PendingPayment) {
		p.PaymentStatus = payments.StatusFailed
		p.ResultDesc = &resultDesc
	})
}

func (r *Payments) ResetForRetry(_ context.Context, id uuid.UUID) error {
	return r.modify(id, func(p *payments.PendingPayment) {
		p.PaymentStatus = payments.StatusPending
		p.CheckoutRequestID = nil
		p.MerchantRequestID = nil
		p.ResultCode = nil
		p.ResultDesc = nil
		p.MpesaReceiptNumber = nil
	})
}

func (r *Payments) ListOpenByUser(_ context.Context, userID uuid.UUID) ([]payments.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []payments.PendingPayment
	for _, p := range r.items {
		if p.UserID != nil && *p.UserID == userID && p.PaymentStatus != payments.StatusCompleted {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result, nil
}

func (r *Payments) InsertCallbackLog(_ context.Context, entry payments.CallbackLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CallbackLog = append(r.CallbackLog, entry)
	return nil
}

type RescheduleEntry struct {
	BookingID uuid.UUID
	UserID    uuid.UUID
	OldDate   time.Time
	NewDate   time.Time
}

type RescheduleLog struct {
	mu      sync.Mutex
	Entries []RescheduleEntry
}

func (r *RescheduleLog) Append(_ context.Context, bookingID, userID uuid.UUID, oldDate, newDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Entries = append(r.Entries, RescheduleEntry{BookingID: bookingID, UserID: userID, OldDate: oldDate, NewDate: newDate})
	return nil
}

type SavedItems struct {
	mu       sync.Mutex
	listings *Listings
	items    []saved.Item
}

func NewSavedItems(ls *Listings) *SavedItems {
	return &SavedItems{listings: ls}
}

func (r *SavedItems) Save(_ context.Context, item saved.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.UserID == item.UserID && existing.ItemID == item.ItemID {
			return nil
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.items = append(r.items, item)
	return nil
}

func (r *SavedItems) Remove(_ context.Context, userID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.items[:0]
	for _, item := range r.items {
		if item.UserID == userID && item.ItemID == itemID {
			continue
		}
		kept = append(kept, item)
	}
	r.items = kept
	return nil
}

func (r *SavedItems) List(ctx context.Context, userID uuid.UUID) ([]saved.Entry, error) {
	r.mu.Lock()
	items := append([]saved.Item(nil), r.items...)
	r.mu.Unlock()

	var entries []saved.Entry
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].UserID != userID {
			continue
		}
		l, err := r.listings.GetListing(ctx, items[i].ItemID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, saved.Entry{Item: items[i], Listing: l})
	}

	return entries, nil
}

type Notifications struct {
	mu    sync.Mutex
	items map[uuid.UUID]notifications.Notification
	order []uuid.UUID
}

func NewNotifications() *Notifications {
	return &Notifications{items: map[uuid.UUID]notifications.Notification{}}
}

func (r *Notifications) Add(_ context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[n.ID]; ok {
		return nil
	}
	r.items[n.ID] = n
	r.order = append(r.order, n.ID)
	return nil
}

func (r *Notifications) ListForUser(_ context.Context, userID uuid.UUID) ([]notifications.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []notifications.Notification
	for i := len(r.order) - 1; i >= 0; i-- {
		if n := r.items[r.order[i]]; n.UserID == userID {
			result = append(result, n)
		}
	}

	return result, nil
}

type Profiles struct {
	items map[uuid.UUID]notifications.Profile
}

func NewProfiles(ps ...notifications.Profile) *Profiles {
	r := &Profiles{items: map[uuid.UUID]notifications.Profile{}}
	for _, p := range ps {
		r.items[p.ID] = p
	}

	return r
}

func (r *Profiles) GetProfile(_ context.Context, id uuid.UUID) (notifications.Profile, error) {
	p, ok := r.items[id]
	if !ok || p.Email == "" {
		return notifications.Profile{}, fmt.Errorf("profile %s: %w", id, notifications.ErrHostEmailNotFound)
	}

	return p, nil
}
