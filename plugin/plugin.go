// Package plugin provides an extensible plugin system for Curbside.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted is called when a new subscription is created.
type OnSubscriptionStarted interface {
	Plugin
	OnSubscriptionStarted(ctx context.Context, sub interface{}) error
}

// OnQuantityChanged is called when a subscription's quantity changes.
type OnQuantityChanged interface {
	Plugin
	OnQuantityChanged(ctx context.Context, sub interface{}, oldQty, newQty int64) error
}

// OnSubscriptionCanceled is called for every subscription that transitions
// to canceled, including base-fee subscriptions canceled by the cascade.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub interface{}) error
}

// OnSubscriptionPaused is called when a subscription is paused.
type OnSubscriptionPaused interface {
	Plugin
	OnSubscriptionPaused(ctx context.Context, sub interface{}) error
}

// OnSubscriptionResumed is called when a paused subscription resumes.
type OnSubscriptionResumed interface {
	Plugin
	OnSubscriptionResumed(ctx context.Context, sub interface{}) error
}

// OnSubscriptionRestarted is called when a canceled subscription is
// restarted.
type OnSubscriptionRestarted interface {
	Plugin
	OnSubscriptionRestarted(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Equipment hooks
// ──────────────────────────────────────────────────

// OnEquipmentRetrieved is called when a cancellation schedules equipment
// pickup from the property.
type OnEquipmentRetrieved interface {
	Plugin
	OnEquipmentRetrieved(ctx context.Context, sub interface{}) error
}

// OnEquipmentRedelivered is called when a restart schedules equipment
// redelivery to the property.
type OnEquipmentRedelivered interface {
	Plugin
	OnEquipmentRedelivered(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Payment method hooks
// ──────────────────────────────────────────────────

// OnPaymentMethodAttached is called when a payment method is stored.
type OnPaymentMethodAttached interface {
	Plugin
	OnPaymentMethodAttached(ctx context.Context, method interface{}) error
}

// OnPaymentMethodDetached is called when a payment method is removed.
type OnPaymentMethodDetached interface {
	Plugin
	OnPaymentMethodDetached(ctx context.Context, method interface{}) error
}

// OnPrimaryChanged is called when a customer's primary payment method
// changes, whether explicitly or by promotion after a detach.
type OnPrimaryChanged interface {
	Plugin
	OnPrimaryChanged(ctx context.Context, customerID string, method interface{}) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called when the engine appends an invoice.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, inv interface{}) error
}

// OnInvoicePaid is called when an invoice is paid.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, inv interface{}) error
}

// OnInvoicesOverdue is called after an overdue sweep flips invoices.
type OnInvoicesOverdue interface {
	Plugin
	OnInvoicesOverdue(ctx context.Context, count int64) error
}
