package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []struct {
	table string
	ddl   string
}{
	{"profiles", `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	email VARCHAR(255)
);`},
	{"listings", `
CREATE TABLE IF NOT EXISTS listings (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	kind VARCHAR(32) NOT NULL CHECK (kind IN ('trip', 'event', 'hotel', 'adventure_place')),
	name VARCHAR(255) NOT NULL,
	location VARCHAR(255) NOT NULL DEFAULT '',
	country VARCHAR(100) NOT NULL DEFAULT '',
	host_id UUID NOT NULL,
	price NUMERIC(12, 2) NOT NULL DEFAULT 0,
	child_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
	capacity INTEGER NOT NULL DEFAULT 0,
	days_opened TEXT[] NOT NULL DEFAULT '{}',
	opening_hours VARCHAR(32) NOT NULL DEFAULT '',
	closing_hours VARCHAR(32) NOT NULL DEFAULT '',
	fixed_date DATE,
	is_flexible_date BOOLEAN NOT NULL DEFAULT FALSE,
	is_custom_date BOOLEAN NOT NULL DEFAULT FALSE,
	approval_status VARCHAR(16) NOT NULL DEFAULT 'pending',
	is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	item_id UUID NOT NULL REFERENCES listings(id),
	booking_type VARCHAR(32) NOT NULL,
	user_id UUID,
	guest_name VARCHAR(255) NOT NULL,
	guest_email VARCHAR(255) NOT NULL DEFAULT '',
	guest_phone VARCHAR(32) NOT NULL DEFAULT '',
	visit_date DATE,
	slots_booked INTEGER NOT NULL CHECK (slots_booked >= 1),
	total_amount NUMERIC(12, 2) NOT NULL,
	payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
	status VARCHAR(16) NOT NULL DEFAULT 'active',
	booking_details JSONB NOT NULL DEFAULT '{}',
	reference VARCHAR(32) NOT NULL UNIQUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS bookings_item_visit_date_idx ON bookings (item_id, visit_date);
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);`},
	{"pending_payments", `
CREATE TABLE IF NOT EXISTS pending_payments (
	id UUID PRIMARY KEY,
	booking_id UUID NOT NULL REFERENCES bookings(id),
	user_id UUID,
	phone_number VARCHAR(32) NOT NULL,
	amount NUMERIC(12, 2) NOT NULL,
	checkout_request_id VARCHAR(64) UNIQUE,
	merchant_request_id VARCHAR(64),
	payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
	result_code VARCHAR(16),
	result_desc TEXT,
	mpesa_receipt_number VARCHAR(32),
	booking_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS pending_payments_booking_id_idx ON pending_payments (booking_id);`},
	{"mpesa_callback_log", `
CREATE TABLE IF NOT EXISTS mpesa_callback_log (
	id BIGSERIAL PRIMARY KEY,
	checkout_request_id VARCHAR(64) NOT NULL DEFAULT '',
	merchant_request_id VARCHAR(64) NOT NULL DEFAULT '',
	result_code VARCHAR(16) NOT NULL DEFAULT '',
	result_desc TEXT NOT NULL DEFAULT '',
	raw_payload JSONB NOT NULL,
	received_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`},
	{"reschedule_log", `
CREATE TABLE IF NOT EXISTS reschedule_log (
	id BIGSERIAL PRIMARY KEY,
	booking_id UUID NOT NULL REFERENCES bookings(id),
	user_id UUID NOT NULL,
	old_date DATE NOT NULL,
	new_date DATE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`},
	{"saved_items", `
CREATE TABLE IF NOT EXISTS saved_items (
	user_id UUID NOT NULL,
	item_id UUID NOT NULL REFERENCES listings(id),
	item_type VARCHAR(32) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, item_id)
);`},
	{"notifications", `
CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	type VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	message TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}',
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`},
	{"events", `
CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMP NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);`},
}

func InitializeDBSchema(ctx context.Context, db *sqlx.DB) error {
	for _, s := range schema {
		_, err := db.ExecContext(ctx, s.ddl)
		if err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.table, err)
		}
	}

	return nil
}
