// Package audithook bridges Curbside lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/plugin"
	"github.com/xraph/curbside/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnSubscriptionStarted   = (*Extension)(nil)
	_ plugin.OnQuantityChanged       = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled  = (*Extension)(nil)
	_ plugin.OnSubscriptionPaused    = (*Extension)(nil)
	_ plugin.OnSubscriptionResumed   = (*Extension)(nil)
	_ plugin.OnSubscriptionRestarted = (*Extension)(nil)
	_ plugin.OnEquipmentRetrieved    = (*Extension)(nil)
	_ plugin.OnEquipmentRedelivered  = (*Extension)(nil)
	_ plugin.OnPaymentMethodAttached = (*Extension)(nil)
	_ plugin.OnPaymentMethodDetached = (*Extension)(nil)
	_ plugin.OnPrimaryChanged        = (*Extension)(nil)
	_ plugin.OnInvoiceCreated        = (*Extension)(nil)
	_ plugin.OnInvoicePaid           = (*Extension)(nil)
	_ plugin.OnInvoicesOverdue       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Curbside lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted implements plugin.OnSubscriptionStarted.
func (e *Extension) OnSubscriptionStarted(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionSubscriptionStarted, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		subKVs(sub)...,
	)
}

// OnQuantityChanged implements plugin.OnQuantityChanged.
func (e *Extension) OnQuantityChanged(ctx context.Context, payload interface{}, oldQty, newQty int64) error {
	sub, _ := payload.(*subscription.Subscription)
	action := ActionQuantityIncreased
	if newQty < oldQty {
		action = ActionQuantityDecreased
	}

	kvs := append(subKVs(sub), "old_quantity", oldQty, "new_quantity", newQty)
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		kvs...,
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		subKVs(sub)...,
	)
}

// OnSubscriptionPaused implements plugin.OnSubscriptionPaused.
func (e *Extension) OnSubscriptionPaused(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionSubscriptionPaused, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		subKVs(sub)...,
	)
}

// OnSubscriptionResumed implements plugin.OnSubscriptionResumed.
func (e *Extension) OnSubscriptionResumed(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionSubscriptionResumed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		subKVs(sub)...,
	)
}

// OnSubscriptionRestarted implements plugin.OnSubscriptionRestarted.
func (e *Extension) OnSubscriptionRestarted(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionSubscriptionRestarted, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(sub), CategorySubscription, nil,
		subKVs(sub)...,
	)
}

// ──────────────────────────────────────────────────
// Equipment lifecycle hooks
// ──────────────────────────────────────────────────

// OnEquipmentRetrieved implements plugin.OnEquipmentRetrieved.
func (e *Extension) OnEquipmentRetrieved(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionEquipmentRetrieved, SeverityInfo, OutcomeSuccess,
		ResourceEquipment, subID(sub), CategoryEquipment, nil,
		subKVs(sub)...,
	)
}

// OnEquipmentRedelivered implements plugin.OnEquipmentRedelivered.
func (e *Extension) OnEquipmentRedelivered(ctx context.Context, payload interface{}) error {
	sub, _ := payload.(*subscription.Subscription)
	return e.record(ctx, ActionEquipmentRedelivered, SeverityInfo, OutcomeSuccess,
		ResourceEquipment, subID(sub), CategoryEquipment, nil,
		subKVs(sub)...,
	)
}

// ──────────────────────────────────────────────────
// Payment method lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentMethodAttached implements plugin.OnPaymentMethodAttached.
func (e *Extension) OnPaymentMethodAttached(ctx context.Context, payload interface{}) error {
	pm, _ := payload.(*payment.Method)
	return e.record(ctx, ActionPaymentMethodAttached, SeverityInfo, OutcomeSuccess,
		ResourcePaymentMethod, methodID(pm), CategoryPayment, nil,
		methodKVs(pm)...,
	)
}

// OnPaymentMethodDetached implements plugin.OnPaymentMethodDetached.
func (e *Extension) OnPaymentMethodDetached(ctx context.Context, payload interface{}) error {
	pm, _ := payload.(*payment.Method)
	return e.record(ctx, ActionPaymentMethodDetached, SeverityInfo, OutcomeSuccess,
		ResourcePaymentMethod, methodID(pm), CategoryPayment, nil,
		methodKVs(pm)...,
	)
}

// OnPrimaryChanged implements plugin.OnPrimaryChanged.
func (e *Extension) OnPrimaryChanged(ctx context.Context, customerID string, payload interface{}) error {
	pm, _ := payload.(*payment.Method)
	kvs := append(methodKVs(pm), "customer_id", customerID)
	return e.record(ctx, ActionPrimaryChanged, SeverityInfo, OutcomeSuccess,
		ResourcePaymentMethod, methodID(pm), CategoryPayment, nil,
		kvs...,
	)
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, payload interface{}) error {
	inv, _ := payload.(*invoice.Invoice)
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, invID(inv), CategoryBilling, nil,
		invKVs(inv)...,
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, payload interface{}) error {
	inv, _ := payload.(*invoice.Invoice)
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, invID(inv), CategoryBilling, nil,
		invKVs(inv)...,
	)
}

// OnInvoicesOverdue implements plugin.OnInvoicesOverdue.
func (e *Extension) OnInvoicesOverdue(ctx context.Context, count int64) error {
	if count == 0 {
		// Nothing flipped; skip the noise.
		return nil
	}
	return e.record(ctx, ActionInvoicesOverdue, SeverityWarning, OutcomePartial,
		ResourceInvoice, "", CategoryBilling, nil,
		"count", count,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func subID(sub *subscription.Subscription) string {
	if sub == nil {
		return ""
	}
	return sub.ID.String()
}

func subKVs(sub *subscription.Subscription) []any {
	if sub == nil {
		return nil
	}
	return []any{
		"customer_id", sub.CustomerID,
		"property_id", sub.PropertyID,
		"service", sub.ServiceSlug,
		"status", string(sub.Status),
	}
}

func methodID(pm *payment.Method) string {
	if pm == nil {
		return ""
	}
	return pm.ID.String()
}

func methodKVs(pm *payment.Method) []any {
	if pm == nil {
		return nil
	}
	return []any{
		"customer_id", pm.CustomerID,
		"type", string(pm.Type),
		"is_primary", pm.IsPrimary,
	}
}

func invID(inv *invoice.Invoice) string {
	if inv == nil {
		return ""
	}
	return inv.ID.String()
}

func invKVs(inv *invoice.Invoice) []any {
	if inv == nil {
		return nil
	}
	return []any{
		"customer_id", inv.CustomerID,
		"property_id", inv.PropertyID,
		"kind", string(inv.Kind),
		"amount_cents", inv.Amount.Amount,
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
