package catalog

import (
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/types"
)

// Category classifies a purchasable service.
type Category string

const (
	// CategoryBaseFee is the recurring charge for curbside service access,
	// independent of equipment size. A property carries at most one.
	CategoryBaseFee Category = "base_fee"

	// CategoryBaseService is a can/bin size or recycling service tied to
	// physical equipment at the property.
	CategoryBaseService Category = "base_service"

	// CategoryUpgrade is a recurring add-on (extra pickups, backdoor service).
	CategoryUpgrade Category = "upgrade"

	// CategoryStandalone is a one-time job with no billing interval.
	CategoryStandalone Category = "standalone"
)

// Interval is the billing interval of a service.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalNone  Interval = "none"
)

// Service is a single catalog entry. Services are seeded at process start
// and never mutated at runtime; subscriptions snapshot the unit price at
// creation time and reference the service by slug.
type Service struct {
	ID       id.ServiceID `json:"id"`
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	Category Category     `json:"category"`

	// UnitPrice is the recurring (or one-time, for standalone) charge per unit.
	UnitPrice types.Money `json:"unit_price"`

	// SetupFee is charged once per unit when the company delivers rental
	// equipment. Zero for services without equipment.
	SetupFee types.Money `json:"setup_fee"`

	// StickerFee is charged instead of SetupFee when the customer supplies
	// their own can and only needs a service sticker.
	StickerFee types.Money `json:"sticker_fee"`

	Interval Interval `json:"interval"`
}

// HasEquipment reports whether subscriptions to this service track
// physical equipment state.
func (s Service) HasEquipment() bool {
	return s.Category == CategoryBaseService
}

// Recurring reports whether the service bills on an interval.
func (s Service) Recurring() bool {
	return s.Interval != IntervalNone && s.Interval != ""
}
