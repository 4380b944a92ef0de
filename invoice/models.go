package invoice

import (
	"time"

	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/types"
)

// Status is the payment state of an invoice.
type Status string

const (
	StatusDue     Status = "due"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Kind records why an invoice was emitted.
type Kind string

const (
	KindFirstMonth Kind = "first_month"
	KindSetupFee   Kind = "setup_fee"
	KindStickerFee Kind = "sticker_fee"
	KindProration  Kind = "proration"
	KindManual     Kind = "manual"
)

// Invoice is one charge against a property. Invoices are append-only:
// after creation only Status, PaidAt, and PaymentMethodID change, and
// due/overdue -> paid is the only transition.
type Invoice struct {
	types.Entity
	ID         id.InvoiceID `json:"id"`
	CustomerID string       `json:"customer_id"`
	PropertyID string       `json:"property_id"`

	// SubscriptionID links engine-emitted invoices back to their
	// subscription. Nil for manual invoices.
	SubscriptionID id.SubscriptionID `json:"subscription_id,omitempty"`

	Status      Status      `json:"status"`
	Kind        Kind        `json:"kind"`
	Amount      types.Money `json:"amount"`
	Description string      `json:"description"`

	Date    time.Time  `json:"date"`
	DueDate *time.Time `json:"due_date,omitempty"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`

	PaymentMethodID id.PaymentMethodID `json:"payment_method_id,omitempty"`

	// IdempotencyKey dedupes retried mutations; stores skip an insert whose
	// key they have already seen. Empty means no deduplication.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Outstanding reports whether the invoice still needs payment.
func (i *Invoice) Outstanding() bool {
	return i.Status == StatusDue || i.Status == StatusOverdue
}
