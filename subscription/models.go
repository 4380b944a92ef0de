package subscription

import (
	"time"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/types"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
)

// EquipmentType records who owns the physical can.
type EquipmentType string

const (
	EquipmentOwnCan EquipmentType = "own_can"
	EquipmentRental EquipmentType = "rental"
)

// EquipmentStatus tracks where the physical can is.
type EquipmentStatus string

const (
	EquipmentAtProperty EquipmentStatus = "at_property"
	EquipmentRetrieved  EquipmentStatus = "retrieved"
)

// Subscription is one recurring service on one property. Canceled
// subscriptions are kept for history, never deleted; a canceled
// subscription always has zero quantity and zero total.
type Subscription struct {
	types.Entity
	ID          id.SubscriptionID `json:"id"`
	CustomerID  string            `json:"customer_id"`
	PropertyID  string            `json:"property_id"`
	ServiceSlug string            `json:"service_slug"`
	ServiceName string            `json:"service_name"`
	Category    catalog.Category  `json:"category"`
	Status      Status            `json:"status"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   types.Money       `json:"unit_price"`
	TotalPrice  types.Money       `json:"total_price"`

	PaymentMethodID id.PaymentMethodID `json:"payment_method_id"`

	StartDate       time.Time  `json:"start_date"`
	NextBillingDate time.Time  `json:"next_billing_date"`
	PausedUntil     *time.Time `json:"paused_until,omitempty"`

	// Equipment fields are set only for base_service subscriptions.
	EquipmentType   EquipmentType   `json:"equipment_type,omitempty"`
	EquipmentStatus EquipmentStatus `json:"equipment_status,omitempty"`
}

// HasEquipment reports whether this subscription tracks physical equipment.
func (s *Subscription) HasEquipment() bool {
	return s.Category == catalog.CategoryBaseService
}

// IsActive reports whether the subscription is currently billing.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}
