package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Curbside store.
var Migrations = migrate.NewGroup("curbside")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_curbside_payment_methods",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS curbside_payment_methods (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT '',
    brand       TEXT NOT NULL DEFAULT '',
    last4       TEXT NOT NULL DEFAULT '',
    exp_month   INT NOT NULL DEFAULT 0,
    exp_year    INT NOT NULL DEFAULT 0,
    bank_name   TEXT NOT NULL DEFAULT '',
    is_primary  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_curbside_pm_customer ON curbside_payment_methods (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_curbside_pm_primary ON curbside_payment_methods (customer_id, is_primary);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS curbside_payment_methods`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_curbside_subscriptions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS curbside_subscriptions (
    id                   TEXT PRIMARY KEY,
    customer_id          TEXT NOT NULL DEFAULT '',
    property_id          TEXT NOT NULL DEFAULT '',
    service_slug         TEXT NOT NULL DEFAULT '',
    service_name         TEXT NOT NULL DEFAULT '',
    category             TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'active',
    quantity             BIGINT NOT NULL DEFAULT 0,
    unit_price_cents     BIGINT NOT NULL DEFAULT 0,
    unit_price_currency  TEXT NOT NULL DEFAULT '',
    total_price_cents    BIGINT NOT NULL DEFAULT 0,
    total_price_currency TEXT NOT NULL DEFAULT '',
    payment_method_id    TEXT NOT NULL DEFAULT '',
    start_date           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    next_billing_date    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    paused_until         TIMESTAMPTZ,
    equipment_type       TEXT NOT NULL DEFAULT '',
    equipment_status     TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_curbside_subs_customer ON curbside_subscriptions (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_curbside_subs_property ON curbside_subscriptions (property_id, created_at);
CREATE INDEX IF NOT EXISTS idx_curbside_subs_status ON curbside_subscriptions (property_id, status);
CREATE INDEX IF NOT EXISTS idx_curbside_subs_pm ON curbside_subscriptions (payment_method_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS curbside_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_curbside_invoices",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS curbside_invoices (
    id                TEXT PRIMARY KEY,
    customer_id       TEXT NOT NULL DEFAULT '',
    property_id       TEXT NOT NULL DEFAULT '',
    subscription_id   TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'due',
    kind              TEXT NOT NULL DEFAULT '',
    amount_cents      BIGINT NOT NULL DEFAULT 0,
    amount_currency   TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    date              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    due_date          TIMESTAMPTZ,
    paid_at           TIMESTAMPTZ,
    payment_method_id TEXT NOT NULL DEFAULT '',
    idempotency_key   TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_curbside_inv_customer ON curbside_invoices (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_curbside_inv_property ON curbside_invoices (property_id, created_at);
CREATE INDEX IF NOT EXISTS idx_curbside_inv_status ON curbside_invoices (status, due_date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_curbside_inv_idempotency ON curbside_invoices (idempotency_key) WHERE idempotency_key != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS curbside_invoices`)
				return err
			},
		},
	)
}
