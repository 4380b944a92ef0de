package curbside

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/store"
	"github.com/xraph/curbside/subscription"
	"github.com/xraph/curbside/types"
)

// StartServiceParams describes a new service subscription.
type StartServiceParams struct {
	CustomerID  string
	PropertyID  string
	ServiceSlug string
	Quantity    int64

	// PaymentMethodID selects the payment method charged for this
	// subscription. When nil, the customer's primary method is used.
	PaymentMethodID id.PaymentMethodID

	// UseSticker applies when the service tracks equipment: true means
	// the customer supplies their own can and pays the sticker fee
	// instead of the rental setup fee.
	UseSticker bool
}

// StartService creates an active subscription for a catalog service and
// emits the upfront invoices: the first-month charge and, for equipment
// services, the one-time setup or sticker fee. If the property already
// has active subscriptions the new one joins their billing date;
// otherwise the property anchors to the first of next month.
func (e *Engine) StartService(ctx context.Context, params StartServiceParams) (*subscription.Subscription, error) {
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if params.CustomerID == "" || params.PropertyID == "" {
		return nil, ErrInvalidInput
	}

	svc, ok := e.catalog.Find(params.ServiceSlug)
	if !ok {
		return nil, ErrServiceNotFound
	}

	pmID, err := e.resolvePaymentMethod(ctx, params.CustomerID, params.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	mu := e.propertyLock(params.PropertyID)
	mu.Lock()
	defer mu.Unlock()

	now := e.clock()

	// Keep all of a property's charges on one cycle.
	nextBilling, err := e.propertyBillingDate(ctx, params.PropertyID, now)
	if err != nil {
		return nil, err
	}

	sub := &subscription.Subscription{
		Entity:          types.EntityAt(now),
		ID:              id.NewSubscriptionID(),
		CustomerID:      params.CustomerID,
		PropertyID:      params.PropertyID,
		ServiceSlug:     svc.Slug,
		ServiceName:     svc.Name,
		Category:        svc.Category,
		Status:          subscription.StatusActive,
		Quantity:        params.Quantity,
		UnitPrice:       svc.UnitPrice,
		TotalPrice:      svc.UnitPrice.Multiply(params.Quantity),
		PaymentMethodID: pmID,
		StartDate:       now,
		NextBillingDate: nextBilling,
	}

	if svc.HasEquipment() {
		sub.EquipmentStatus = subscription.EquipmentAtProperty
		if params.UseSticker {
			sub.EquipmentType = subscription.EquipmentOwnCan
		} else {
			sub.EquipmentType = subscription.EquipmentRental
		}
	}

	var invoices []*invoice.Invoice

	if sub.TotalPrice.IsPositive() {
		invoices = append(invoices, e.newInvoice(sub, invoice.KindFirstMonth, sub.TotalPrice,
			fmt.Sprintf("First Month: %s (x%d)", svc.Name, params.Quantity), now))
	}

	if svc.HasEquipment() {
		if inv := e.equipmentFeeInvoice(sub, svc, params.Quantity, now); inv != nil {
			invoices = append(invoices, inv)
		}
	}

	change := &store.Change{
		CreateSubscriptions: []*subscription.Subscription{sub},
		CreateInvoices:      invoices,
	}
	if err := e.commitChange(ctx, change); err != nil {
		return nil, err
	}

	e.plugins.EmitSubscriptionStarted(ctx, sub)
	for _, inv := range invoices {
		e.plugins.EmitInvoiceCreated(ctx, inv)
	}

	e.logger.Info("subscription started",
		"subscription_id", sub.ID,
		"property_id", sub.PropertyID,
		"service", sub.ServiceSlug,
		"quantity", sub.Quantity,
		"total", sub.TotalPrice,
		"next_billing_date", sub.NextBillingDate,
		"invoices", len(invoices),
	)

	return sub, nil
}

// ChangeQuantity sets a subscription's quantity. Zero cancels the
// subscription with the full cascade. An increase emits the equipment
// fee for the added units plus a prorated charge for the remainder of
// the current cycle; a decrease emits no refund.
func (e *Engine) ChangeQuantity(ctx context.Context, subID id.SubscriptionID, quantity int64) (*subscription.Subscription, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		sub, err := e.store.GetSubscription(ctx, subID)
		if err != nil {
			return nil, err
		}
		if err := e.CancelSubscription(ctx, subID); err != nil {
			return nil, err
		}
		return e.store.GetSubscription(ctx, sub.ID)
	}

	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.Status == subscription.StatusCanceled {
		return nil, ErrSubscriptionCanceled
	}

	mu := e.propertyLock(sub.PropertyID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read inside the critical section.
	sub, err = e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.Status == subscription.StatusCanceled {
		return nil, ErrSubscriptionCanceled
	}

	now := e.clock()
	oldQty := sub.Quantity
	delta := quantity - oldQty

	var invoices []*invoice.Invoice
	if delta > 0 {
		if sub.HasEquipment() {
			svc, ok := e.catalog.Find(sub.ServiceSlug)
			if !ok {
				return nil, ErrServiceNotFound
			}
			if inv := e.equipmentFeeInvoice(sub, svc, delta, now); inv != nil {
				invoices = append(invoices, inv)
			}
		}

		if amount := prorate(sub.UnitPrice, delta, now, sub.NextBillingDate); amount.IsPositive() {
			invoices = append(invoices, e.newInvoice(sub, invoice.KindProration, amount,
				fmt.Sprintf("Prorated charge for adding %dx %s", delta, sub.ServiceName), now))
		}
	}

	sub.Quantity = quantity
	sub.TotalPrice = sub.UnitPrice.Multiply(quantity)
	sub.TouchAt(now)

	change := &store.Change{
		UpdateSubscriptions: []*subscription.Subscription{sub},
		CreateInvoices:      invoices,
	}
	if err := e.commitChange(ctx, change); err != nil {
		return nil, err
	}

	e.plugins.EmitQuantityChanged(ctx, sub, oldQty, quantity)
	for _, inv := range invoices {
		e.plugins.EmitInvoiceCreated(ctx, inv)
	}

	e.logger.Info("subscription quantity changed",
		"subscription_id", sub.ID,
		"old_quantity", oldQty,
		"new_quantity", quantity,
		"invoices", len(invoices),
	)

	return sub, nil
}

// CancelSubscription cancels a subscription. Cancellation is terminal:
// quantity and total drop to zero, equipment is marked retrieved, and
// when the last active equipment subscription on the property goes, the
// property's base fee is canceled in the same commit. No refund or
// proration invoice is emitted.
func (e *Engine) CancelSubscription(ctx context.Context, subID id.SubscriptionID) error {
	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	mu := e.propertyLock(sub.PropertyID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = e.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if sub.Status == subscription.StatusCanceled {
		return ErrSubscriptionCanceled
	}

	now := e.clock()
	canceled := e.cancelOne(sub, now)

	// Cascade: the base fee only lives while equipment does.
	cascaded, err := e.cascadeBaseFee(ctx, sub, now)
	if err != nil {
		return err
	}
	canceled = append(canceled, cascaded...)

	change := &store.Change{UpdateSubscriptions: canceled}
	if err := e.commitChange(ctx, change); err != nil {
		return err
	}

	for _, s := range canceled {
		e.plugins.EmitSubscriptionCanceled(ctx, s)
		if s.HasEquipment() {
			e.plugins.EmitEquipmentRetrieved(ctx, s)
		}
	}

	e.logger.Info("subscription canceled",
		"subscription_id", sub.ID,
		"property_id", sub.PropertyID,
		"cascaded", len(canceled)-1,
	)

	return nil
}

// CancelAllForProperty cancels every active or paused subscription on a
// property in one commit.
func (e *Engine) CancelAllForProperty(ctx context.Context, propertyID string) error {
	mu := e.propertyLock(propertyID)
	mu.Lock()
	defer mu.Unlock()

	subs, err := e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{})
	if err != nil {
		return err
	}

	now := e.clock()
	var canceled []*subscription.Subscription
	for _, s := range subs {
		if s.Status == subscription.StatusCanceled {
			continue
		}
		canceled = append(canceled, e.cancelOne(s, now)...)
	}
	if len(canceled) == 0 {
		return ErrNothingToCancel
	}

	change := &store.Change{UpdateSubscriptions: canceled}
	if err := e.commitChange(ctx, change); err != nil {
		return err
	}

	for _, s := range canceled {
		e.plugins.EmitSubscriptionCanceled(ctx, s)
		if s.HasEquipment() {
			e.plugins.EmitEquipmentRetrieved(ctx, s)
		}
	}

	e.logger.Info("property canceled",
		"property_id", propertyID,
		"subscriptions", len(canceled),
	)

	return nil
}

// RestartAllForProperty reactivates every canceled subscription on the
// property at quantity one, anchored together on the first of next
// month. Equipment that was retrieved incurs a fresh setup or sticker
// fee for redelivery; equipment still at the property does not.
func (e *Engine) RestartAllForProperty(ctx context.Context, propertyID string) error {
	mu := e.propertyLock(propertyID)
	mu.Lock()
	defer mu.Unlock()

	subs, err := e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{})
	if err != nil {
		return err
	}

	now := e.clock()
	nextBilling := firstOfNextMonth(now)

	var restarted []*subscription.Subscription
	var invoices []*invoice.Invoice

	for _, s := range subs {
		if s.Status != subscription.StatusCanceled {
			continue
		}

		if s.HasEquipment() && s.EquipmentStatus == subscription.EquipmentRetrieved {
			if svc, ok := e.catalog.Find(s.ServiceSlug); ok {
				if inv := e.equipmentFeeInvoice(s, svc, 1, now); inv != nil {
					invoices = append(invoices, inv)
				}
			}
		}

		s.Status = subscription.StatusActive
		s.Quantity = 1
		s.TotalPrice = s.UnitPrice
		s.StartDate = now
		s.NextBillingDate = nextBilling
		s.PausedUntil = nil
		if s.HasEquipment() {
			s.EquipmentStatus = subscription.EquipmentAtProperty
		}
		s.TouchAt(now)

		restarted = append(restarted, s)
	}
	if len(restarted) == 0 {
		return ErrNothingToRestart
	}

	change := &store.Change{
		UpdateSubscriptions: restarted,
		CreateInvoices:      invoices,
	}
	if err := e.commitChange(ctx, change); err != nil {
		return err
	}

	for _, s := range restarted {
		e.plugins.EmitSubscriptionRestarted(ctx, s)
		if s.HasEquipment() {
			e.plugins.EmitEquipmentRedelivered(ctx, s)
		}
	}
	for _, inv := range invoices {
		e.plugins.EmitInvoiceCreated(ctx, inv)
	}

	e.logger.Info("property restarted",
		"property_id", propertyID,
		"subscriptions", len(restarted),
		"next_billing_date", nextBilling,
		"invoices", len(invoices),
	)

	return nil
}

// PauseForProperty pauses every active subscription on the property
// until the given date. Pausing changes status only; quantity, total,
// and the billing clock are untouched.
func (e *Engine) PauseForProperty(ctx context.Context, propertyID string, until time.Time) error {
	mu := e.propertyLock(propertyID)
	mu.Lock()
	defer mu.Unlock()

	subs, err := e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{Status: subscription.StatusActive})
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return ErrNothingToPause
	}

	now := e.clock()
	for _, s := range subs {
		s.Status = subscription.StatusPaused
		u := until
		s.PausedUntil = &u
		s.TouchAt(now)
	}

	change := &store.Change{UpdateSubscriptions: subs}
	if err := e.commitChange(ctx, change); err != nil {
		return err
	}

	for _, s := range subs {
		e.plugins.EmitSubscriptionPaused(ctx, s)
	}

	e.logger.Info("property paused",
		"property_id", propertyID,
		"subscriptions", len(subs),
		"until", until,
	)

	return nil
}

// ResumeForProperty reactivates every paused subscription on the
// property and clears the pause window.
func (e *Engine) ResumeForProperty(ctx context.Context, propertyID string) error {
	mu := e.propertyLock(propertyID)
	mu.Lock()
	defer mu.Unlock()

	subs, err := e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{Status: subscription.StatusPaused})
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return ErrNothingToResume
	}

	now := e.clock()
	for _, s := range subs {
		s.Status = subscription.StatusActive
		s.PausedUntil = nil
		s.TouchAt(now)
	}

	change := &store.Change{UpdateSubscriptions: subs}
	if err := e.commitChange(ctx, change); err != nil {
		return err
	}

	for _, s := range subs {
		e.plugins.EmitSubscriptionResumed(ctx, s)
	}

	e.logger.Info("property resumed",
		"property_id", propertyID,
		"subscriptions", len(subs),
	)

	return nil
}

// UpdateSubscriptionPaymentMethod reassigns the payment method charged
// for a subscription. Pure reassignment; ownership checks belong to the
// caller.
func (e *Engine) UpdateSubscriptionPaymentMethod(ctx context.Context, subID id.SubscriptionID, pmID id.PaymentMethodID) error {
	if _, err := e.store.GetPaymentMethod(ctx, pmID); err != nil {
		return err
	}

	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	mu := e.propertyLock(sub.PropertyID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = e.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	sub.PaymentMethodID = pmID
	sub.TouchAt(e.clock())

	return e.commitChange(ctx, &store.Change{
		UpdateSubscriptions: []*subscription.Subscription{sub},
	})
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Subscriptions lists a customer's subscriptions.
func (e *Engine) Subscriptions(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptionsByCustomer(ctx, customerID, subscription.ListOpts{})
}

// SubscriptionsForProperty lists a property's subscriptions, canceled
// ones included.
func (e *Engine) SubscriptionsForProperty(ctx context.Context, propertyID string) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{})
}

// Subscription retrieves a subscription by ID.
func (e *Engine) Subscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// cancelOne applies the per-subscription cancel effects and returns the
// mutated records.
func (e *Engine) cancelOne(s *subscription.Subscription, now time.Time) []*subscription.Subscription {
	s.Status = subscription.StatusCanceled
	s.Quantity = 0
	s.TotalPrice = types.Zero(s.UnitPrice.Currency)
	if s.HasEquipment() {
		s.EquipmentStatus = subscription.EquipmentRetrieved
	}
	s.TouchAt(now)
	return []*subscription.Subscription{s}
}

// cascadeBaseFee cancels the property's active base-fee subscription
// when the cancellation of canceled leaves no active equipment
// subscription behind.
func (e *Engine) cascadeBaseFee(ctx context.Context, canceled *subscription.Subscription, now time.Time) ([]*subscription.Subscription, error) {
	if canceled.Category != catalog.CategoryBaseService {
		return nil, nil
	}

	subs, err := e.store.ListSubscriptionsByProperty(ctx, canceled.PropertyID, subscription.ListOpts{})
	if err != nil {
		return nil, err
	}

	var baseFee *subscription.Subscription
	for _, s := range subs {
		if s.ID == canceled.ID {
			continue
		}
		switch s.Category {
		case catalog.CategoryBaseService:
			if s.IsActive() {
				// A sibling can still needs the base fee.
				return nil, nil
			}
		case catalog.CategoryBaseFee:
			if s.IsActive() && baseFee == nil {
				baseFee = s
			}
		}
	}

	if baseFee == nil {
		return nil, nil
	}
	return e.cancelOne(baseFee, now), nil
}

// propertyBillingDate returns the billing date shared by the property's
// active subscriptions, or the first of next month for a fresh property.
func (e *Engine) propertyBillingDate(ctx context.Context, propertyID string, now time.Time) (time.Time, error) {
	subs, err := e.store.ListSubscriptionsByProperty(ctx, propertyID, subscription.ListOpts{Status: subscription.StatusActive})
	if err != nil {
		return time.Time{}, err
	}
	for _, s := range subs {
		if !s.NextBillingDate.IsZero() {
			return s.NextBillingDate, nil
		}
	}
	return firstOfNextMonth(now), nil
}

// resolvePaymentMethod validates an explicit payment method or falls
// back to the customer's primary.
func (e *Engine) resolvePaymentMethod(ctx context.Context, customerID string, pmID id.PaymentMethodID) (id.PaymentMethodID, error) {
	if !pmID.IsNil() {
		m, err := e.store.GetPaymentMethod(ctx, pmID)
		if err != nil {
			return id.Nil, err
		}
		return m.ID, nil
	}

	methods, err := e.store.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return id.Nil, err
	}
	for _, m := range methods {
		if m.IsPrimary {
			return m.ID, nil
		}
	}
	return id.Nil, ErrPaymentMethodNotFound
}

// equipmentFeeInvoice builds the one-time setup or sticker fee invoice
// for qty units, or nil when the applicable fee is zero.
func (e *Engine) equipmentFeeInvoice(s *subscription.Subscription, svc catalog.Service, qty int64, now time.Time) *invoice.Invoice {
	var (
		fee  types.Money
		kind invoice.Kind
		desc string
	)
	if s.EquipmentType == subscription.EquipmentOwnCan {
		fee = svc.StickerFee.Multiply(qty)
		kind = invoice.KindStickerFee
		desc = fmt.Sprintf("One-Time Sticker Fee: %s (x%d)", svc.Name, qty)
	} else {
		fee = svc.SetupFee.Multiply(qty)
		kind = invoice.KindSetupFee
		desc = fmt.Sprintf("One-Time Setup Fee: %s (x%d)", svc.Name, qty)
	}
	if !fee.IsPositive() {
		return nil
	}
	return e.newInvoice(s, kind, fee, desc, now)
}

// newInvoice builds an engine-emitted invoice tied to a subscription.
func (e *Engine) newInvoice(s *subscription.Subscription, kind invoice.Kind, amount types.Money, desc string, now time.Time) *invoice.Invoice {
	due := now.Add(e.invoiceDueIn)
	return &invoice.Invoice{
		Entity:          types.EntityAt(now),
		ID:              id.NewInvoiceID(),
		CustomerID:      s.CustomerID,
		PropertyID:      s.PropertyID,
		SubscriptionID:  s.ID,
		Status:          invoice.StatusDue,
		Kind:            kind,
		Amount:          amount,
		Description:     desc,
		Date:            now,
		DueDate:         &due,
		PaymentMethodID: s.PaymentMethodID,
	}
}

// commitChange stamps the caller's idempotency key onto the emitted
// invoices and applies the whole mutation as one store commit.
func (e *Engine) commitChange(ctx context.Context, change *store.Change) error {
	if change.Empty() {
		return nil
	}
	if key := idempotencyKeyFrom(ctx); key != "" {
		// One key can cover several invoices in a single mutation;
		// suffix by position so each stays unique in the ledger.
		for i, inv := range change.CreateInvoices {
			inv.IdempotencyKey = fmt.Sprintf("%s/%d", key, i)
		}
	}
	return e.store.CommitChange(ctx, change)
}
