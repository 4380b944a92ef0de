package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onSubscriptionStarted   []OnSubscriptionStarted
	onQuantityChanged       []OnQuantityChanged
	onSubscriptionCanceled  []OnSubscriptionCanceled
	onSubscriptionPaused    []OnSubscriptionPaused
	onSubscriptionResumed   []OnSubscriptionResumed
	onSubscriptionRestarted []OnSubscriptionRestarted
	onEquipmentRetrieved    []OnEquipmentRetrieved
	onEquipmentRedelivered  []OnEquipmentRedelivered
	onPaymentMethodAttached []OnPaymentMethodAttached
	onPaymentMethodDetached []OnPaymentMethodDetached
	onPrimaryChanged        []OnPrimaryChanged
	onInvoiceCreated        []OnInvoiceCreated
	onInvoicePaid           []OnInvoicePaid
	onInvoicesOverdue       []OnInvoicesOverdue
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSubscriptionStarted); ok {
		r.onSubscriptionStarted = append(r.onSubscriptionStarted, v)
	}
	if v, ok := p.(OnQuantityChanged); ok {
		r.onQuantityChanged = append(r.onQuantityChanged, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnSubscriptionPaused); ok {
		r.onSubscriptionPaused = append(r.onSubscriptionPaused, v)
	}
	if v, ok := p.(OnSubscriptionResumed); ok {
		r.onSubscriptionResumed = append(r.onSubscriptionResumed, v)
	}
	if v, ok := p.(OnSubscriptionRestarted); ok {
		r.onSubscriptionRestarted = append(r.onSubscriptionRestarted, v)
	}
	if v, ok := p.(OnEquipmentRetrieved); ok {
		r.onEquipmentRetrieved = append(r.onEquipmentRetrieved, v)
	}
	if v, ok := p.(OnEquipmentRedelivered); ok {
		r.onEquipmentRedelivered = append(r.onEquipmentRedelivered, v)
	}
	if v, ok := p.(OnPaymentMethodAttached); ok {
		r.onPaymentMethodAttached = append(r.onPaymentMethodAttached, v)
	}
	if v, ok := p.(OnPaymentMethodDetached); ok {
		r.onPaymentMethodDetached = append(r.onPaymentMethodDetached, v)
	}
	if v, ok := p.(OnPrimaryChanged); ok {
		r.onPrimaryChanged = append(r.onPrimaryChanged, v)
	}
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnInvoicesOverdue); ok {
		r.onInvoicesOverdue = append(r.onInvoicesOverdue, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSubscriptionStarted)(nil)).Elem(), "OnSubscriptionStarted")
	checkInterface(reflect.TypeOf((*OnQuantityChanged)(nil)).Elem(), "OnQuantityChanged")
	checkInterface(reflect.TypeOf((*OnSubscriptionCanceled)(nil)).Elem(), "OnSubscriptionCanceled")
	checkInterface(reflect.TypeOf((*OnSubscriptionRestarted)(nil)).Elem(), "OnSubscriptionRestarted")
	checkInterface(reflect.TypeOf((*OnPaymentMethodAttached)(nil)).Elem(), "OnPaymentMethodAttached")
	checkInterface(reflect.TypeOf((*OnInvoiceCreated)(nil)).Elem(), "OnInvoiceCreated")
	checkInterface(reflect.TypeOf((*OnInvoicePaid)(nil)).Elem(), "OnInvoicePaid")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionStarted emits a subscription started event.
func (r *Registry) EmitSubscriptionStarted(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionStarted(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuantityChanged emits a quantity changed event.
func (r *Registry) EmitQuantityChanged(ctx context.Context, sub interface{}, oldQty, newQty int64) {
	r.mu.RLock()
	plugins := r.onQuantityChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuantityChanged(ctx, sub, oldQty, newQty)
		}); err != nil {
			r.logger.Warn("plugin OnQuantityChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCanceled(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionPaused emits a subscription paused event.
func (r *Registry) EmitSubscriptionPaused(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionPaused(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionPaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionResumed emits a subscription resumed event.
func (r *Registry) EmitSubscriptionResumed(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionResumed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionResumed(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionResumed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionRestarted emits a subscription restarted event.
func (r *Registry) EmitSubscriptionRestarted(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionRestarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionRestarted(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionRestarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEquipmentRetrieved emits an equipment retrieved event.
func (r *Registry) EmitEquipmentRetrieved(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onEquipmentRetrieved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEquipmentRetrieved(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnEquipmentRetrieved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEquipmentRedelivered emits an equipment redelivered event.
func (r *Registry) EmitEquipmentRedelivered(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onEquipmentRedelivered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEquipmentRedelivered(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnEquipmentRedelivered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentMethodAttached emits a payment method attached event.
func (r *Registry) EmitPaymentMethodAttached(ctx context.Context, method interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentMethodAttached
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentMethodAttached(ctx, method)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentMethodAttached failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentMethodDetached emits a payment method detached event.
func (r *Registry) EmitPaymentMethodDetached(ctx context.Context, method interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentMethodDetached
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentMethodDetached(ctx, method)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentMethodDetached failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPrimaryChanged emits a primary payment method changed event.
func (r *Registry) EmitPrimaryChanged(ctx context.Context, customerID string, method interface{}) {
	r.mu.RLock()
	plugins := r.onPrimaryChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPrimaryChanged(ctx, customerID, method)
		}); err != nil {
			r.logger.Warn("plugin OnPrimaryChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceCreated emits an invoice created event.
func (r *Registry) EmitInvoiceCreated(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoiceCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceCreated(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoicePaid emits an invoice paid event.
func (r *Registry) EmitInvoicePaid(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoicePaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoicePaid(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoicePaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoicesOverdue emits an invoices overdue event after a sweep.
func (r *Registry) EmitInvoicesOverdue(ctx context.Context, count int64) {
	r.mu.RLock()
	plugins := r.onInvoicesOverdue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoicesOverdue(ctx, count)
		}); err != nil {
			r.logger.Warn("plugin OnInvoicesOverdue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
