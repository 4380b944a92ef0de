package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionStarted   = "subscription.started"
	ActionQuantityIncreased     = "subscription.quantity.increased"
	ActionQuantityDecreased     = "subscription.quantity.decreased"
	ActionSubscriptionCanceled  = "subscription.canceled"
	ActionSubscriptionPaused    = "subscription.paused"
	ActionSubscriptionResumed   = "subscription.resumed"
	ActionSubscriptionRestarted = "subscription.restarted"

	// Equipment actions
	ActionEquipmentRetrieved   = "equipment.retrieved"
	ActionEquipmentRedelivered = "equipment.redelivered"

	// Payment method actions
	ActionPaymentMethodAttached = "payment_method.attached"
	ActionPaymentMethodDetached = "payment_method.detached"
	ActionPrimaryChanged        = "payment_method.primary_changed"

	// Invoice actions
	ActionInvoiceCreated  = "invoice.created"
	ActionInvoicePaid     = "invoice.paid"
	ActionInvoicesOverdue = "invoice.overdue"
)

// Resource constants for audit events.
const (
	ResourceSubscription  = "subscription"
	ResourceEquipment     = "equipment"
	ResourcePaymentMethod = "payment_method"
	ResourceInvoice       = "invoice"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryEquipment    = "equipment"
	CategoryPayment      = "payment"
	CategoryBilling      = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
