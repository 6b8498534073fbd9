package database

// Schema is the full DDL for the booking platform. The partial unique index
// idx_unique_booking_slot is the enforcement mechanism for slot exclusivity:
// at most one active booking may exist per (package_id, starts_at). It is
// partial so cancelled and refunded rows release their slot without deletes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email VARCHAR(200) NOT NULL UNIQUE,
	name VARCHAR(100) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	phone VARCHAR(20),
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	experience_level VARCHAR(20),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_login TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS packages (
	id UUID PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	description TEXT NOT NULL,
	price_cents BIGINT NOT NULL,
	currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
	duration_hours DOUBLE PRECISION NOT NULL,
	max_riders INT NOT NULL DEFAULT 1,
	includes_drone BOOLEAN NOT NULL DEFAULT FALSE,
	includes_editing BOOLEAN NOT NULL DEFAULT TRUE,
	video_count INT NOT NULL DEFAULT 1,
	scheduling_url VARCHAR(255) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	display_order INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	user_id UUID REFERENCES users(id),
	customer_name VARCHAR(200),
	customer_email VARCHAR(200),
	package_id UUID NOT NULL REFERENCES packages(id),
	starts_at TIMESTAMPTZ NOT NULL,
	location VARCHAR(200) NOT NULL DEFAULT '',
	location_details TEXT,
	amount_cents BIGINT NOT NULL,
	currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
	status VARCHAR(20) NOT NULL DEFAULT 'pending_payment',
	checkout_session_id VARCHAR(255) UNIQUE,
	payment_intent_id VARCHAR(255) UNIQUE,
	charge_id VARCHAR(255),
	paid_at TIMESTAMPTZ,
	number_of_riders INT NOT NULL DEFAULT 1,
	rider_experience VARCHAR(50),
	special_requests TEXT,
	video_links TEXT,
	delivered_at TIMESTAMPTZ,
	refund_pending_review BOOLEAN NOT NULL DEFAULT FALSE,
	admin_notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	cancelled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_bookings_starts_at ON bookings(starts_at);

CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_booking_slot
	ON bookings(package_id, starts_at)
	WHERE status IN ('pending_payment', 'confirmed', 'in_progress', 'completed');

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	customer_email VARCHAR(200),
	customer_name VARCHAR(200),
	package_id UUID NOT NULL REFERENCES packages(id),
	package_name VARCHAR(200) NOT NULL,
	amount_cents BIGINT NOT NULL,
	currency VARCHAR(10) NOT NULL DEFAULT 'eur',
	checkout_session_id VARCHAR(255) UNIQUE,
	payment_intent_id VARCHAR(255),
	paid_at TIMESTAMPTZ,
	latest_waiver_id UUID,
	booking_id UUID REFERENCES bookings(id),
	scheduled_start TIMESTAMPTZ,
	scheduled_timezone VARCHAR(100),
	scheduled_location VARCHAR(255),
	status VARCHAR(40) NOT NULL DEFAULT 'pending_payment',
	admin_notes TEXT,
	video_links TEXT,
	delivered_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(customer_email);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS waivers (
	id UUID PRIMARY KEY,
	booking_id UUID REFERENCES bookings(id),
	client_name VARCHAR(200) NOT NULL,
	client_email VARCHAR(200) NOT NULL,
	legal_name_signature VARCHAR(200) NOT NULL,
	ip_address VARCHAR(50) NOT NULL,
	user_agent VARCHAR(500),
	device_summary VARCHAR(200),
	waiver_version VARCHAR(10) NOT NULL,
	waiver_text_hash VARCHAR(64) NOT NULL,
	supersedes_waiver_id UUID REFERENCES waivers(id),
	signed_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_waivers_booking ON waivers(booking_id);

CREATE TABLE IF NOT EXISTS order_waivers (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id),
	waiver_id UUID NOT NULL REFERENCES waivers(id) UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_order_waivers_order ON order_waivers(order_id);

CREATE TABLE IF NOT EXISTS webhook_events (
	id UUID PRIMARY KEY,
	provider_event_id VARCHAR(255) NOT NULL UNIQUE,
	event_type VARCHAR(100) NOT NULL,
	payload TEXT NOT NULL,
	processed_at TIMESTAMPTZ,
	processing_error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payment_audits (
	id UUID PRIMARY KEY,
	booking_id UUID,
	order_id UUID,
	event_type VARCHAR(50) NOT NULL,
	source VARCHAR(30) NOT NULL,
	payment_intent_id VARCHAR(255),
	session_id VARCHAR(255),
	provider_event_id VARCHAR(255),
	expected_amount_cents BIGINT,
	received_amount_cents BIGINT,
	currency VARCHAR(10),
	amounts_match BOOLEAN,
	error_message TEXT,
	raw_body TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_payment_audits_booking ON payment_audits(booking_id);
CREATE INDEX IF NOT EXISTS idx_payment_audits_created ON payment_audits(created_at);

CREATE TABLE IF NOT EXISTS videos (
	id UUID PRIMARY KEY,
	title VARCHAR(200) NOT NULL,
	description TEXT,
	youtube_id VARCHAR(50) NOT NULL UNIQUE,
	thumbnail_url VARCHAR(255),
	location_tag VARCHAR(100),
	style_tag VARCHAR(100),
	rider_level VARCHAR(50),
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	is_published BOOLEAN NOT NULL DEFAULT TRUE,
	display_order INT NOT NULL DEFAULT 0,
	booking_id UUID REFERENCES bookings(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS testimonials (
	id UUID PRIMARY KEY,
	client_name VARCHAR(100) NOT NULL,
	client_location VARCHAR(100),
	text TEXT NOT NULL,
	rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	booking_id UUID REFERENCES bookings(id),
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	is_published BOOLEAN NOT NULL DEFAULT TRUE,
	display_order INT NOT NULL DEFAULT 0,
	verified_purchase BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// slotConstraintName is the index whose violation means "slot taken"
const slotConstraintName = "idx_unique_booking_slot"
