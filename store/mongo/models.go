package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/subscription"
	"github.com/xraph/curbside/types"
)

// ==================== Payment Method models ====================

type paymentMethodModel struct {
	grove.BaseModel `grove:"table:curbside_payment_methods"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	CustomerID string    `grove:"customer_id" bson:"customer_id"`
	Type       string    `grove:"type"        bson:"type"`
	Brand      string    `grove:"brand"       bson:"brand"`
	Last4      string    `grove:"last4"       bson:"last4"`
	ExpMonth   int       `grove:"exp_month"   bson:"exp_month"`
	ExpYear    int       `grove:"exp_year"    bson:"exp_year"`
	BankName   string    `grove:"bank_name"   bson:"bank_name"`
	IsPrimary  bool      `grove:"is_primary"  bson:"is_primary"`
	CreatedAt  time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toPaymentMethodModel(m *payment.Method) *paymentMethodModel {
	return &paymentMethodModel{
		ID:         m.ID.String(),
		CustomerID: m.CustomerID,
		Type:       string(m.Type),
		Brand:      m.Brand,
		Last4:      m.Last4,
		ExpMonth:   m.ExpMonth,
		ExpYear:    m.ExpYear,
		BankName:   m.BankName,
		IsPrimary:  m.IsPrimary,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func fromPaymentMethodModel(m *paymentMethodModel) (*payment.Method, error) {
	pmID, err := id.ParsePaymentMethodID(m.ID)
	if err != nil {
		return nil, err
	}

	return &payment.Method{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         pmID,
		CustomerID: m.CustomerID,
		Type:       payment.MethodType(m.Type),
		Brand:      m.Brand,
		Last4:      m.Last4,
		ExpMonth:   m.ExpMonth,
		ExpYear:    m.ExpYear,
		BankName:   m.BankName,
		IsPrimary:  m.IsPrimary,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:curbside_subscriptions"`

	ID                 string     `grove:"id,pk"                bson:"_id"`
	CustomerID         string     `grove:"customer_id"          bson:"customer_id"`
	PropertyID         string     `grove:"property_id"          bson:"property_id"`
	ServiceSlug        string     `grove:"service_slug"         bson:"service_slug"`
	ServiceName        string     `grove:"service_name"         bson:"service_name"`
	Category           string     `grove:"category"             bson:"category"`
	Status             string     `grove:"status"               bson:"status"`
	Quantity           int64      `grove:"quantity"             bson:"quantity"`
	UnitPriceCents     int64      `grove:"unit_price_cents"     bson:"unit_price_cents"`
	UnitPriceCurrency  string     `grove:"unit_price_currency"  bson:"unit_price_currency"`
	TotalPriceCents    int64      `grove:"total_price_cents"    bson:"total_price_cents"`
	TotalPriceCurrency string     `grove:"total_price_currency" bson:"total_price_currency"`
	PaymentMethodID    string     `grove:"payment_method_id"    bson:"payment_method_id"`
	StartDate          time.Time  `grove:"start_date"           bson:"start_date"`
	NextBillingDate    time.Time  `grove:"next_billing_date"    bson:"next_billing_date"`
	PausedUntil        *time.Time `grove:"paused_until"         bson:"paused_until,omitempty"`
	EquipmentType      string     `grove:"equipment_type"       bson:"equipment_type"`
	EquipmentStatus    string     `grove:"equipment_status"     bson:"equipment_status"`
	CreatedAt          time.Time  `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time  `grove:"updated_at"           bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		CustomerID:         s.CustomerID,
		PropertyID:         s.PropertyID,
		ServiceSlug:        s.ServiceSlug,
		ServiceName:        s.ServiceName,
		Category:           string(s.Category),
		Status:             string(s.Status),
		Quantity:           s.Quantity,
		UnitPriceCents:     s.UnitPrice.Amount,
		UnitPriceCurrency:  s.UnitPrice.Currency,
		TotalPriceCents:    s.TotalPrice.Amount,
		TotalPriceCurrency: s.TotalPrice.Currency,
		PaymentMethodID:    s.PaymentMethodID.String(),
		StartDate:          s.StartDate,
		NextBillingDate:    s.NextBillingDate,
		PausedUntil:        s.PausedUntil,
		EquipmentType:      string(s.EquipmentType),
		EquipmentStatus:    string(s.EquipmentStatus),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}

	pmID := id.Nil
	if m.PaymentMethodID != "" {
		pmID, err = id.ParsePaymentMethodID(m.PaymentMethodID)
		if err != nil {
			return nil, err
		}
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              subID,
		CustomerID:      m.CustomerID,
		PropertyID:      m.PropertyID,
		ServiceSlug:     m.ServiceSlug,
		ServiceName:     m.ServiceName,
		Category:        catalog.Category(m.Category),
		Status:          subscription.Status(m.Status),
		Quantity:        m.Quantity,
		UnitPrice:       types.Money{Amount: m.UnitPriceCents, Currency: m.UnitPriceCurrency},
		TotalPrice:      types.Money{Amount: m.TotalPriceCents, Currency: m.TotalPriceCurrency},
		PaymentMethodID: pmID,
		StartDate:       m.StartDate,
		NextBillingDate: m.NextBillingDate,
		PausedUntil:     m.PausedUntil,
		EquipmentType:   subscription.EquipmentType(m.EquipmentType),
		EquipmentStatus: subscription.EquipmentStatus(m.EquipmentStatus),
	}, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:curbside_invoices"`

	ID              string     `grove:"id,pk"             bson:"_id"`
	CustomerID      string     `grove:"customer_id"       bson:"customer_id"`
	PropertyID      string     `grove:"property_id"       bson:"property_id"`
	SubscriptionID  string     `grove:"subscription_id"   bson:"subscription_id"`
	Status          string     `grove:"status"            bson:"status"`
	Kind            string     `grove:"kind"              bson:"kind"`
	AmountCents     int64      `grove:"amount_cents"      bson:"amount_cents"`
	AmountCurrency  string     `grove:"amount_currency"   bson:"amount_currency"`
	Description     string     `grove:"description"       bson:"description"`
	Date            time.Time  `grove:"date"              bson:"date"`
	DueDate         *time.Time `grove:"due_date"          bson:"due_date,omitempty"`
	PaidAt          *time.Time `grove:"paid_at"           bson:"paid_at,omitempty"`
	PaymentMethodID string     `grove:"payment_method_id" bson:"payment_method_id"`
	IdempotencyKey  string     `grove:"idempotency_key"   bson:"idempotency_key"`
	CreatedAt       time.Time  `grove:"created_at"        bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"        bson:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	return &invoiceModel{
		ID:              inv.ID.String(),
		CustomerID:      inv.CustomerID,
		PropertyID:      inv.PropertyID,
		SubscriptionID:  inv.SubscriptionID.String(),
		Status:          string(inv.Status),
		Kind:            string(inv.Kind),
		AmountCents:     inv.Amount.Amount,
		AmountCurrency:  inv.Amount.Currency,
		Description:     inv.Description,
		Date:            inv.Date,
		DueDate:         inv.DueDate,
		PaidAt:          inv.PaidAt,
		PaymentMethodID: inv.PaymentMethodID.String(),
		IdempotencyKey:  inv.IdempotencyKey,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}

	subID := id.Nil
	if m.SubscriptionID != "" {
		subID, err = id.ParseSubscriptionID(m.SubscriptionID)
		if err != nil {
			return nil, err
		}
	}

	pmID := id.Nil
	if m.PaymentMethodID != "" {
		pmID, err = id.ParsePaymentMethodID(m.PaymentMethodID)
		if err != nil {
			return nil, err
		}
	}

	return &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              invID,
		CustomerID:      m.CustomerID,
		PropertyID:      m.PropertyID,
		SubscriptionID:  subID,
		Status:          invoice.Status(m.Status),
		Kind:            invoice.Kind(m.Kind),
		Amount:          types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		Description:     m.Description,
		Date:            m.Date,
		DueDate:         m.DueDate,
		PaidAt:          m.PaidAt,
		PaymentMethodID: pmID,
		IdempotencyKey:  m.IdempotencyKey,
	}, nil
}
