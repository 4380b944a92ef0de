// Package store defines the unified storage interface for Curbside.
package store

import (
	"context"
	"time"

	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/subscription"
)

// Change is the unit of work a lifecycle command commits: every
// subscription it created or touched plus every invoice it emitted.
// Backends apply a Change as a single atomic step so that an invoice can
// never exist without its subscription write (or vice versa).
type Change struct {
	CreateSubscriptions []*subscription.Subscription
	UpdateSubscriptions []*subscription.Subscription
	CreateInvoices      []*invoice.Invoice
}

// Empty reports whether the change carries no writes.
func (c *Change) Empty() bool {
	return len(c.CreateSubscriptions) == 0 &&
		len(c.UpdateSubscriptions) == 0 &&
		len(c.CreateInvoices) == 0
}

// Store is the unified storage interface for all Curbside entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Payment method methods
	CreatePaymentMethod(ctx context.Context, m *payment.Method) error
	GetPaymentMethod(ctx context.Context, pmID id.PaymentMethodID) (*payment.Method, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]*payment.Method, error)
	UpdatePaymentMethod(ctx context.Context, m *payment.Method) error
	DeletePaymentMethod(ctx context.Context, pmID id.PaymentMethodID) error
	SetPrimaryPaymentMethod(ctx context.Context, customerID string, pmID id.PaymentMethodID) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	ListSubscriptionsByCustomer(ctx context.Context, customerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	ListSubscriptionsByProperty(ctx context.Context, propertyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error

	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoicesByCustomer(ctx context.Context, customerID string, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	ListInvoicesByProperty(ctx context.Context, propertyID string, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time, pmID id.PaymentMethodID) error
	MarkInvoicesOverdue(ctx context.Context, before time.Time) (int64, error)

	// CommitChange applies a lifecycle command's writes as one atomic step.
	CommitChange(ctx context.Context, change *Change) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
