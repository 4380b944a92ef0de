// Package memory provides an in-memory store implementation, used by
// tests and local development. All mutations run under one lock, so a
// CommitChange is atomic by construction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/curbside"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/store"
	"github.com/xraph/curbside/subscription"
)

type Store struct {
	mu sync.RWMutex

	// Payment method storage. methodOrder preserves attach order so
	// primary promotion after a detach is deterministic.
	methods     map[string]*payment.Method
	methodOrder []string

	// Subscription storage
	subscriptions map[string]*subscription.Subscription
	subOrder      []string

	// Invoice ledger, append-only. Read APIs walk it backwards for
	// most-recent-first ordering.
	invoices    []*invoice.Invoice
	invoiceByID map[string]*invoice.Invoice
	invoiceSeen map[string]bool // idempotency keys already applied
}

func New() *Store {
	return &Store{
		methods:       make(map[string]*payment.Method),
		subscriptions: make(map[string]*subscription.Subscription),
		invoiceByID:   make(map[string]*invoice.Invoice),
		invoiceSeen:   make(map[string]bool),
	}
}

// ──────────────────────────────────────────────────
// Payment methods
// ──────────────────────────────────────────────────

func (s *Store) CreatePaymentMethod(_ context.Context, m *payment.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.ID.String()
	if _, exists := s.methods[key]; exists {
		return curbside.ErrAlreadyExists
	}
	c := *m
	s.methods[key] = &c
	s.methodOrder = append(s.methodOrder, key)
	return nil
}

func (s *Store) GetPaymentMethod(_ context.Context, pmID id.PaymentMethodID) (*payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.methods[pmID.String()]; ok {
		c := *m
		return &c, nil
	}
	return nil, curbside.ErrPaymentMethodNotFound
}

func (s *Store) ListPaymentMethods(_ context.Context, customerID string) ([]*payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Method, 0)
	for _, key := range s.methodOrder {
		m, ok := s.methods[key]
		if !ok || m.CustomerID != customerID {
			continue
		}
		c := *m
		result = append(result, &c)
	}
	return result, nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, m *payment.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.ID.String()
	if _, exists := s.methods[key]; !exists {
		return curbside.ErrPaymentMethodNotFound
	}
	c := *m
	s.methods[key] = &c
	return nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, pmID id.PaymentMethodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pmID.String()
	if _, exists := s.methods[key]; !exists {
		return curbside.ErrPaymentMethodNotFound
	}
	delete(s.methods, key)
	for i, k := range s.methodOrder {
		if k == key {
			s.methodOrder = append(s.methodOrder[:i], s.methodOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) SetPrimaryPaymentMethod(_ context.Context, customerID string, pmID id.PaymentMethodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.methods[pmID.String()]
	if !ok || target.CustomerID != customerID {
		return curbside.ErrPaymentMethodNotFound
	}

	for _, m := range s.methods {
		if m.CustomerID == customerID {
			m.IsPrimary = false
		}
	}
	target.IsPrimary = true
	return nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSubscriptionLocked(sub)
}

func (s *Store) createSubscriptionLocked(sub *subscription.Subscription) error {
	key := sub.ID.String()
	if _, exists := s.subscriptions[key]; exists {
		return curbside.ErrAlreadyExists
	}
	c := *sub
	s.subscriptions[key] = &c
	s.subOrder = append(s.subOrder, key)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		c := *sub
		return &c, nil
	}
	return nil, curbside.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptionsByCustomer(_ context.Context, customerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listSubscriptionsLocked(func(sub *subscription.Subscription) bool {
		return sub.CustomerID == customerID
	}, opts), nil
}

func (s *Store) ListSubscriptionsByProperty(_ context.Context, propertyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listSubscriptionsLocked(func(sub *subscription.Subscription) bool {
		return sub.PropertyID == propertyID
	}, opts), nil
}

func (s *Store) listSubscriptionsLocked(match func(*subscription.Subscription) bool, opts subscription.ListOpts) []*subscription.Subscription {
	result := make([]*subscription.Subscription, 0)
	for _, key := range s.subOrder {
		sub, ok := s.subscriptions[key]
		if !ok || !match(sub) {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		c := *sub
		result = append(result, &c)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end]
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSubscriptionLocked(sub)
}

func (s *Store) updateSubscriptionLocked(sub *subscription.Subscription) error {
	key := sub.ID.String()
	if _, exists := s.subscriptions[key]; !exists {
		return curbside.ErrSubscriptionNotFound
	}
	c := *sub
	s.subscriptions[key] = &c
	return nil
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createInvoiceLocked(inv)
}

func (s *Store) createInvoiceLocked(inv *invoice.Invoice) error {
	key := inv.ID.String()
	if _, exists := s.invoiceByID[key]; exists {
		return curbside.ErrAlreadyExists
	}
	if inv.IdempotencyKey != "" {
		if s.invoiceSeen[inv.IdempotencyKey] {
			// Retry of an applied mutation; skip, don't double-bill.
			return nil
		}
		s.invoiceSeen[inv.IdempotencyKey] = true
	}
	c := *inv
	s.invoices = append(s.invoices, &c)
	s.invoiceByID[key] = &c
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoiceByID[invID.String()]; ok {
		c := *inv
		return &c, nil
	}
	return nil, curbside.ErrInvoiceNotFound
}

func (s *Store) ListInvoicesByCustomer(_ context.Context, customerID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listInvoicesLocked(func(inv *invoice.Invoice) bool {
		return inv.CustomerID == customerID
	}, opts), nil
}

func (s *Store) ListInvoicesByProperty(_ context.Context, propertyID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listInvoicesLocked(func(inv *invoice.Invoice) bool {
		return inv.PropertyID == propertyID
	}, opts), nil
}

func (s *Store) listInvoicesLocked(match func(*invoice.Invoice) bool, opts invoice.ListOpts) []*invoice.Invoice {
	// Walk backwards: the ledger appends, read APIs serve newest first.
	result := make([]*invoice.Invoice, 0)
	for i := len(s.invoices) - 1; i >= 0; i-- {
		inv := s.invoices[i]
		if !match(inv) {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if !opts.Start.IsZero() && inv.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && inv.Date.After(opts.End) {
			continue
		}
		c := *inv
		result = append(result, &c)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end]
}

func (s *Store) MarkInvoicePaid(_ context.Context, invID id.InvoiceID, paidAt time.Time, pmID id.PaymentMethodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoiceByID[invID.String()]
	if !ok {
		return curbside.ErrInvoiceNotFound
	}
	if inv.Status == invoice.StatusPaid {
		return curbside.ErrInvoicePaid
	}

	inv.Status = invoice.StatusPaid
	t := paidAt
	inv.PaidAt = &t
	if !pmID.IsNil() {
		inv.PaymentMethodID = pmID
	}
	inv.TouchAt(paidAt)
	return nil
}

func (s *Store) MarkInvoicesOverdue(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, inv := range s.invoices {
		if inv.Status != invoice.StatusDue {
			continue
		}
		if inv.DueDate == nil || !inv.DueDate.Before(before) {
			continue
		}
		inv.Status = invoice.StatusOverdue
		inv.TouchAt(before)
		count++
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Change commit
// ──────────────────────────────────────────────────

// CommitChange applies a lifecycle command's subscription writes and
// invoice appends under one lock acquisition.
func (s *Store) CommitChange(_ context.Context, change *store.Change) error {
	if change == nil || change.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range change.CreateSubscriptions {
		if err := s.createSubscriptionLocked(sub); err != nil {
			return err
		}
	}
	for _, sub := range change.UpdateSubscriptions {
		if err := s.updateSubscriptionLocked(sub); err != nil {
			return err
		}
	}
	for _, inv := range change.CreateInvoices {
		if err := s.createInvoiceLocked(inv); err != nil {
			return err
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
