package payment

import (
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/types"
)

// MethodType distinguishes cards from bank accounts.
type MethodType string

const (
	TypeCard        MethodType = "card"
	TypeBankAccount MethodType = "bank_account"
)

// Method is a stored payment method. Each customer has at most one
// primary method, and exactly one when any methods exist at all; the
// engine maintains that invariant across attach, detach, and set-primary.
type Method struct {
	types.Entity
	ID         id.PaymentMethodID `json:"id"`
	CustomerID string             `json:"customer_id"`
	Type       MethodType         `json:"type"`
	Brand      string             `json:"brand,omitempty"`
	Last4      string             `json:"last4"`
	ExpMonth   int                `json:"exp_month,omitempty"`
	ExpYear    int                `json:"exp_year,omitempty"`
	BankName   string             `json:"bank_name,omitempty"`
	IsPrimary  bool               `json:"is_primary"`
}
