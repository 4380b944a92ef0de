package payment

import (
	"context"

	"github.com/xraph/curbside/id"
)

// Store is the persistence interface for payment methods.
type Store interface {
	Create(ctx context.Context, m *Method) error
	Get(ctx context.Context, pmID id.PaymentMethodID) (*Method, error)
	List(ctx context.Context, customerID string) ([]*Method, error)
	Update(ctx context.Context, m *Method) error
	Delete(ctx context.Context, pmID id.PaymentMethodID) error

	// SetPrimary marks the given method primary and clears the flag on the
	// customer's other methods as one atomic step.
	SetPrimary(ctx context.Context, customerID string, pmID id.PaymentMethodID) error
}
