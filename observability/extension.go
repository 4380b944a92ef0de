// Package observability provides a metrics extension for Curbside that
// records lifecycle event counts through a caller-supplied MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/curbside/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionStarted   = (*MetricsExtension)(nil)
	_ plugin.OnQuantityChanged       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionPaused    = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionResumed   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRestarted = (*MetricsExtension)(nil)
	_ plugin.OnEquipmentRetrieved    = (*MetricsExtension)(nil)
	_ plugin.OnEquipmentRedelivered  = (*MetricsExtension)(nil)
	_ plugin.OnPaymentMethodAttached = (*MetricsExtension)(nil)
	_ plugin.OnPaymentMethodDetached = (*MetricsExtension)(nil)
	_ plugin.OnPrimaryChanged        = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated        = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid           = (*MetricsExtension)(nil)
	_ plugin.OnInvoicesOverdue       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Curbside plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionStarted   Counter
	QuantityIncreased     Counter
	QuantityDecreased     Counter
	SubscriptionCanceled  Counter
	SubscriptionPaused    Counter
	SubscriptionResumed   Counter
	SubscriptionRestarted Counter

	// Equipment metrics
	EquipmentRetrieved   Counter
	EquipmentRedelivered Counter

	// Payment method metrics
	PaymentMethodAttached Counter
	PaymentMethodDetached Counter
	PrimaryChanged        Counter

	// Invoice metrics
	InvoiceCreated    Counter
	InvoicePaid       Counter
	InvoicesOverdue   Counter
	OverdueSweepBatch Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionStarted:   factory.Counter("curbside.subscription.started"),
		QuantityIncreased:     factory.Counter("curbside.subscription.quantity.increased"),
		QuantityDecreased:     factory.Counter("curbside.subscription.quantity.decreased"),
		SubscriptionCanceled:  factory.Counter("curbside.subscription.canceled"),
		SubscriptionPaused:    factory.Counter("curbside.subscription.paused"),
		SubscriptionResumed:   factory.Counter("curbside.subscription.resumed"),
		SubscriptionRestarted: factory.Counter("curbside.subscription.restarted"),

		// Equipment metrics
		EquipmentRetrieved:   factory.Counter("curbside.equipment.retrieved"),
		EquipmentRedelivered: factory.Counter("curbside.equipment.redelivered"),

		// Payment method metrics
		PaymentMethodAttached: factory.Counter("curbside.payment_method.attached"),
		PaymentMethodDetached: factory.Counter("curbside.payment_method.detached"),
		PrimaryChanged:        factory.Counter("curbside.payment_method.primary_changed"),

		// Invoice metrics
		InvoiceCreated:    factory.Counter("curbside.invoice.created"),
		InvoicePaid:       factory.Counter("curbside.invoice.paid"),
		InvoicesOverdue:   factory.Counter("curbside.invoice.overdue"),
		OverdueSweepBatch: factory.Histogram("curbside.invoice.overdue.sweep_batch"),

		// Error metrics
		StoreErrors:  factory.Counter("curbside.store.errors"),
		PluginErrors: factory.Counter("curbside.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted implements plugin.OnSubscriptionStarted.
func (m *MetricsExtension) OnSubscriptionStarted(_ context.Context, _ interface{}) error {
	m.SubscriptionStarted.Inc()
	return nil
}

// OnQuantityChanged implements plugin.OnQuantityChanged.
func (m *MetricsExtension) OnQuantityChanged(_ context.Context, _ interface{}, oldQty, newQty int64) error {
	if newQty > oldQty {
		m.QuantityIncreased.Inc()
	} else if newQty < oldQty {
		m.QuantityDecreased.Inc()
	}
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ interface{}) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionPaused implements plugin.OnSubscriptionPaused.
func (m *MetricsExtension) OnSubscriptionPaused(_ context.Context, _ interface{}) error {
	m.SubscriptionPaused.Inc()
	return nil
}

// OnSubscriptionResumed implements plugin.OnSubscriptionResumed.
func (m *MetricsExtension) OnSubscriptionResumed(_ context.Context, _ interface{}) error {
	m.SubscriptionResumed.Inc()
	return nil
}

// OnSubscriptionRestarted implements plugin.OnSubscriptionRestarted.
func (m *MetricsExtension) OnSubscriptionRestarted(_ context.Context, _ interface{}) error {
	m.SubscriptionRestarted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Equipment lifecycle hooks
// ──────────────────────────────────────────────────

// OnEquipmentRetrieved implements plugin.OnEquipmentRetrieved.
func (m *MetricsExtension) OnEquipmentRetrieved(_ context.Context, _ interface{}) error {
	m.EquipmentRetrieved.Inc()
	return nil
}

// OnEquipmentRedelivered implements plugin.OnEquipmentRedelivered.
func (m *MetricsExtension) OnEquipmentRedelivered(_ context.Context, _ interface{}) error {
	m.EquipmentRedelivered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment method lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentMethodAttached implements plugin.OnPaymentMethodAttached.
func (m *MetricsExtension) OnPaymentMethodAttached(_ context.Context, _ interface{}) error {
	m.PaymentMethodAttached.Inc()
	return nil
}

// OnPaymentMethodDetached implements plugin.OnPaymentMethodDetached.
func (m *MetricsExtension) OnPaymentMethodDetached(_ context.Context, _ interface{}) error {
	m.PaymentMethodDetached.Inc()
	return nil
}

// OnPrimaryChanged implements plugin.OnPrimaryChanged.
func (m *MetricsExtension) OnPrimaryChanged(_ context.Context, _ string, _ interface{}) error {
	m.PrimaryChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, _ interface{}) error {
	m.InvoiceCreated.Inc()
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ interface{}) error {
	m.InvoicePaid.Inc()
	return nil
}

// OnInvoicesOverdue implements plugin.OnInvoicesOverdue.
func (m *MetricsExtension) OnInvoicesOverdue(_ context.Context, count int64) error {
	m.InvoicesOverdue.Add(float64(count))
	m.OverdueSweepBatch.Observe(float64(count))
	return nil
}
