package curbside

import (
	"context"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/store"
	"github.com/xraph/curbside/subscription"
	"github.com/xraph/curbside/types"
)

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

// Services lists the purchasable catalog.
func (e *Engine) Services() []catalog.Service {
	return e.catalog.Services()
}

// FindService looks up a catalog service by slug.
func (e *Engine) FindService(slug string) (catalog.Service, error) {
	svc, ok := e.catalog.Find(slug)
	if !ok {
		return catalog.Service{}, ErrServiceNotFound
	}
	return svc, nil
}

// ──────────────────────────────────────────────────
// Payment Methods
// ──────────────────────────────────────────────────

// AttachPaymentMethod stores a payment method for a customer. The first
// method a customer attaches becomes primary, as does any method
// attached while no primary exists; when a primary already exists the
// new method is stored non-primary.
func (e *Engine) AttachPaymentMethod(ctx context.Context, m *payment.Method) (*payment.Method, error) {
	if m == nil || m.CustomerID == "" {
		return nil, ErrInvalidInput
	}

	if m.ID.IsNil() {
		m.ID = id.NewPaymentMethodID()
	}
	m.Entity = types.EntityAt(e.clock())

	existing, err := e.store.ListPaymentMethods(ctx, m.CustomerID)
	if err != nil {
		return nil, err
	}

	hasPrimary := false
	for _, other := range existing {
		if other.IsPrimary {
			hasPrimary = true
			break
		}
	}
	m.IsPrimary = !hasPrimary

	if err := e.store.CreatePaymentMethod(ctx, m); err != nil {
		return nil, err
	}

	e.plugins.EmitPaymentMethodAttached(ctx, m)
	if m.IsPrimary {
		e.plugins.EmitPrimaryChanged(ctx, m.CustomerID, m)
	}

	e.logger.Info("payment method attached",
		"payment_method_id", m.ID,
		"customer_id", m.CustomerID,
		"type", m.Type,
		"primary", m.IsPrimary,
	)

	return m, nil
}

// DetachPaymentMethod removes a stored payment method. Fails with
// ErrPaymentMethodInUse while any active subscription still charges it.
// Removing the primary promotes the first remaining method in store
// order, keeping exactly one primary whenever any methods exist.
func (e *Engine) DetachPaymentMethod(ctx context.Context, pmID id.PaymentMethodID) error {
	m, err := e.store.GetPaymentMethod(ctx, pmID)
	if err != nil {
		return err
	}

	subs, err := e.store.ListSubscriptionsByCustomer(ctx, m.CustomerID, subscription.ListOpts{Status: subscription.StatusActive})
	if err != nil {
		return err
	}
	for _, s := range subs {
		if s.PaymentMethodID == pmID {
			return ErrPaymentMethodInUse
		}
	}

	if err := e.store.DeletePaymentMethod(ctx, pmID); err != nil {
		return err
	}
	e.plugins.EmitPaymentMethodDetached(ctx, m)

	if m.IsPrimary {
		remaining, err := e.store.ListPaymentMethods(ctx, m.CustomerID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			promoted := remaining[0]
			if err := e.store.SetPrimaryPaymentMethod(ctx, m.CustomerID, promoted.ID); err != nil {
				return err
			}
			promoted.IsPrimary = true
			e.plugins.EmitPrimaryChanged(ctx, m.CustomerID, promoted)
		}
	}

	e.logger.Info("payment method detached",
		"payment_method_id", pmID,
		"customer_id", m.CustomerID,
		"was_primary", m.IsPrimary,
	)

	return nil
}

// SetPrimaryPaymentMethod marks one of the customer's methods primary
// and clears the flag on all others in one atomic store operation.
func (e *Engine) SetPrimaryPaymentMethod(ctx context.Context, customerID string, pmID id.PaymentMethodID) error {
	if err := e.store.SetPrimaryPaymentMethod(ctx, customerID, pmID); err != nil {
		return err
	}

	m, err := e.store.GetPaymentMethod(ctx, pmID)
	if err != nil {
		return err
	}
	e.plugins.EmitPrimaryChanged(ctx, customerID, m)

	return nil
}

// PaymentMethods lists a customer's stored payment methods.
func (e *Engine) PaymentMethods(ctx context.Context, customerID string) ([]*payment.Method, error) {
	return e.store.ListPaymentMethods(ctx, customerID)
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

// Invoices lists a customer's invoices, most recent first.
func (e *Engine) Invoices(ctx context.Context, customerID string) ([]*invoice.Invoice, error) {
	return e.store.ListInvoicesByCustomer(ctx, customerID, invoice.ListOpts{})
}

// InvoicesForProperty lists a property's invoices, most recent first.
func (e *Engine) InvoicesForProperty(ctx context.Context, propertyID string) ([]*invoice.Invoice, error) {
	return e.store.ListInvoicesByProperty(ctx, propertyID, invoice.ListOpts{})
}

// Invoice retrieves an invoice by ID.
func (e *Engine) Invoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return e.store.GetInvoice(ctx, invID)
}

// PayInvoice marks an invoice paid with the given payment method.
// Paying an already-paid invoice fails with ErrInvoicePaid and leaves
// the invoice untouched; an unknown id fails with ErrInvoiceNotFound.
func (e *Engine) PayInvoice(ctx context.Context, invID id.InvoiceID, pmID id.PaymentMethodID) (*invoice.Invoice, error) {
	if !pmID.IsNil() {
		if _, err := e.store.GetPaymentMethod(ctx, pmID); err != nil {
			return nil, err
		}
	}

	now := e.clock()
	if err := e.store.MarkInvoicePaid(ctx, invID, now, pmID); err != nil {
		return nil, err
	}

	inv, err := e.store.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}
	e.plugins.EmitInvoicePaid(ctx, inv)

	e.logger.Info("invoice paid",
		"invoice_id", invID,
		"amount", inv.Amount,
		"payment_method_id", pmID,
	)

	return inv, nil
}

// CreateInvoice appends a manual invoice to a property's ledger. The
// amount arrives as a major-currency decimal at this boundary and is
// rounded to cents exactly once, here.
func (e *Engine) CreateInvoice(ctx context.Context, customerID, propertyID string, amountMajor float64, description string) (*invoice.Invoice, error) {
	if customerID == "" || propertyID == "" {
		return nil, ErrInvalidInput
	}
	if amountMajor < 0 {
		return nil, ErrInvalidInput
	}

	now := e.clock()
	due := now.Add(e.invoiceDueIn)
	inv := &invoice.Invoice{
		Entity:      types.EntityAt(now),
		ID:          id.NewInvoiceID(),
		CustomerID:  customerID,
		PropertyID:  propertyID,
		Status:      invoice.StatusDue,
		Kind:        invoice.KindManual,
		Amount:      types.FromMajor(amountMajor, e.currency),
		Description: description,
		Date:        now,
		DueDate:     &due,
	}

	change := &store.Change{CreateInvoices: []*invoice.Invoice{inv}}
	if err := e.commitChange(ctx, change); err != nil {
		return nil, err
	}

	e.plugins.EmitInvoiceCreated(ctx, inv)

	e.logger.Info("manual invoice created",
		"invoice_id", inv.ID,
		"property_id", propertyID,
		"amount", inv.Amount,
	)

	return inv, nil
}
