package curbside

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("curbside: not found")
	ErrInvalidInput = errors.New("curbside: invalid input")

	// Catalog errors
	ErrServiceNotFound = errors.New("curbside: service not in catalog")

	// Payment method errors
	ErrPaymentMethodNotFound = errors.New("curbside: payment method not found")
	ErrPaymentMethodInUse    = errors.New("curbside: payment method in use by an active subscription")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("curbside: subscription not found")
	ErrSubscriptionCanceled = errors.New("curbside: subscription is canceled")
	ErrInvalidQuantity      = errors.New("curbside: quantity must be non-negative")
	ErrNothingToCancel      = errors.New("curbside: no active or paused subscriptions on property")
	ErrNothingToRestart     = errors.New("curbside: no canceled subscriptions on property")
	ErrNothingToPause       = errors.New("curbside: no active subscriptions on property")
	ErrNothingToResume      = errors.New("curbside: no paused subscriptions on property")

	// Invoice errors
	ErrInvoiceNotFound = errors.New("curbside: invoice not found")
	ErrInvoicePaid     = errors.New("curbside: invoice already paid")

	// Store errors
	ErrAlreadyExists     = errors.New("curbside: already exists")
	ErrStoreClosed       = errors.New("curbside: store is closed")
	ErrTransactionFailed = errors.New("curbside: transaction failed")
	ErrMigrationFailed   = errors.New("curbside: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("curbside: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrPaymentMethodNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// IsConflict returns true if the error reports a state the caller must
// resolve before retrying (detach-while-in-use, double payment).
func IsConflict(err error) bool {
	return errors.Is(err, ErrPaymentMethodInUse) ||
		errors.Is(err, ErrInvoicePaid) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried (with the same idempotency key, for mutations).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreClosed) ||
		errors.Is(err, ErrTransactionFailed)
}
