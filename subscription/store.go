package subscription

import (
	"context"

	"github.com/xraph/curbside/id"
)

// Store is the persistence interface for subscriptions.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	ListByCustomer(ctx context.Context, customerID string, opts ListOpts) ([]*Subscription, error)
	ListByProperty(ctx context.Context, propertyID string, opts ListOpts) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
}

// ListOpts filters subscription listings.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
