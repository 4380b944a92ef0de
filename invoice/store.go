package invoice

import (
	"context"
	"time"

	"github.com/xraph/curbside/id"
)

// Store is the persistence interface for invoices.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)

	// List methods return invoices most-recent-first.
	ListByCustomer(ctx context.Context, customerID string, opts ListOpts) ([]*Invoice, error)
	ListByProperty(ctx context.Context, propertyID string, opts ListOpts) ([]*Invoice, error)

	// MarkPaid transitions an outstanding invoice to paid. It returns the
	// store's already-paid sentinel when the invoice was paid before, and
	// the not-found sentinel for unknown ids.
	MarkPaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time, pmID id.PaymentMethodID) error

	// MarkOverdue flips due invoices whose due date passed before the given
	// time to overdue, returning how many changed.
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
}

// ListOpts filters invoice listings.
type ListOpts struct {
	Status Status
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
