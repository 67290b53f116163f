package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id              TEXT PRIMARY KEY,
	user_email      TEXT NOT NULL,
	currency        TEXT NOT NULL DEFAULT '',
	payment_method  TEXT NOT NULL DEFAULT '',
	property_title  TEXT NOT NULL DEFAULT '',
	deposit_amount  DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (deposit_amount >= 0),
	total_amount    DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (total_amount >= 0),
	months          INTEGER NOT NULL DEFAULT 0 CHECK (months >= 0),
	txid            TEXT,
	check_in_date   TIMESTAMPTZ,
	status          TEXT NOT NULL DEFAULT 'PENDING_ANALYSIS',
	risk_score      INTEGER CHECK (risk_score BETWEEN 0 AND 100),
	risk_level      TEXT,
	risk_reason     TEXT,
	needs_review    BOOLEAN NOT NULL DEFAULT FALSE,
	version         BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	released_at     TIMESTAMPTZ,
	CONSTRAINT released_at_iff_released CHECK ((status = 'ESCROW_RELEASED') = (released_at IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS bookings_user_email_idx ON bookings (user_email);
CREATE INDEX IF NOT EXISTS bookings_status_idx ON bookings (status);
`

// Migrate creates the bookings table when it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
