package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/curbside"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/store"
	"github.com/xraph/curbside/store/memory"
	"github.com/xraph/curbside/subscription"
	"github.com/xraph/curbside/types"
)

func newInvoice(customerID string, date time.Time, due *time.Time, status invoice.Status) *invoice.Invoice {
	return &invoice.Invoice{
		Entity:     types.EntityAt(date),
		ID:         id.NewInvoiceID(),
		CustomerID: customerID,
		PropertyID: "prop_1",
		Status:     status,
		Kind:       invoice.KindManual,
		Amount:     types.USD(2000),
		Date:       date,
		DueDate:    due,
	}
}

func TestMarkInvoicePaid(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	now := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	inv := newInvoice("cust_1", now, nil, invoice.StatusDue)
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatal(err)
	}

	pmID := id.NewPaymentMethodID()
	paidAt := now.Add(24 * time.Hour)
	if err := s.MarkInvoicePaid(ctx, inv.ID, paidAt, pmID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != invoice.StatusPaid {
		t.Errorf("status: got %s, want paid", got.Status)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("paid at: got %v, want %v", got.PaidAt, paidAt)
	}
	if got.PaymentMethodID != pmID {
		t.Errorf("payment method: got %s, want %s", got.PaymentMethodID, pmID)
	}

	if err := s.MarkInvoicePaid(ctx, inv.ID, paidAt, pmID); !errors.Is(err, curbside.ErrInvoicePaid) {
		t.Errorf("second pay: got %v, want ErrInvoicePaid", err)
	}
	if err := s.MarkInvoicePaid(ctx, id.NewInvoiceID(), paidAt, pmID); !errors.Is(err, curbside.ErrInvoiceNotFound) {
		t.Errorf("unknown invoice: got %v, want ErrInvoiceNotFound", err)
	}

	// Paying with a Nil method keeps the reference stamped at creation.
	stamped := newInvoice("cust_1", now, nil, invoice.StatusDue)
	stamped.PaymentMethodID = pmID
	if err := s.CreateInvoice(ctx, stamped); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkInvoicePaid(ctx, stamped.ID, paidAt, id.Nil); err != nil {
		t.Fatalf("pay with nil method: %v", err)
	}
	got, err = s.GetInvoice(ctx, stamped.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentMethodID != pmID {
		t.Errorf("payment method: got %s, want %s preserved", got.PaymentMethodID, pmID)
	}
}

func TestMarkInvoicesOverdue(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	cutoff := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	past := cutoff.Add(-time.Hour)
	future := cutoff.Add(time.Hour)

	lapsed := newInvoice("cust_1", past, &past, invoice.StatusDue)
	exactly := newInvoice("cust_1", past, &cutoff, invoice.StatusDue)
	pending := newInvoice("cust_1", past, &future, invoice.StatusDue)
	settled := newInvoice("cust_1", past, &past, invoice.StatusPaid)
	openEnded := newInvoice("cust_1", past, nil, invoice.StatusDue)

	for _, inv := range []*invoice.Invoice{lapsed, exactly, pending, settled, openEnded} {
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}
	}

	count, err := s.MarkInvoicesOverdue(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	// Only a due date strictly before the cutoff flips.
	if count != 1 {
		t.Fatalf("count: got %d, want 1", count)
	}

	tests := []struct {
		name string
		id   id.InvoiceID
		want invoice.Status
	}{
		{"lapsed", lapsed.ID, invoice.StatusOverdue},
		{"due exactly at cutoff", exactly.ID, invoice.StatusDue},
		{"due later", pending.ID, invoice.StatusDue},
		{"already paid", settled.ID, invoice.StatusPaid},
		{"no due date", openEnded.ID, invoice.StatusDue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetInvoice(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != tt.want {
				t.Errorf("got %s, want %s", got.Status, tt.want)
			}
		})
	}
}

func TestSetPrimaryPaymentMethodWrongCustomer(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	m := &payment.Method{
		Entity:     types.EntityAt(time.Now()),
		ID:         id.NewPaymentMethodID(),
		CustomerID: "cust_1",
		Type:       payment.TypeCard,
		IsPrimary:  true,
	}
	if err := s.CreatePaymentMethod(ctx, m); err != nil {
		t.Fatal(err)
	}

	err := s.SetPrimaryPaymentMethod(ctx, "cust_2", m.ID)
	if !errors.Is(err, curbside.ErrPaymentMethodNotFound) {
		t.Errorf("got %v, want ErrPaymentMethodNotFound", err)
	}
}

func TestCommitChangeSkipsReplayedInvoice(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	now := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)

	first := newInvoice("cust_1", now, nil, invoice.StatusDue)
	first.IdempotencyKey = "evt-1/0"
	if err := s.CommitChange(ctx, &store.Change{CreateInvoices: []*invoice.Invoice{first}}); err != nil {
		t.Fatal(err)
	}

	// A retry carries a fresh invoice ID but the same key.
	replay := newInvoice("cust_1", now, nil, invoice.StatusDue)
	replay.IdempotencyKey = "evt-1/0"
	if err := s.CommitChange(ctx, &store.Change{CreateInvoices: []*invoice.Invoice{replay}}); err != nil {
		t.Fatal(err)
	}

	invs, err := s.ListInvoicesByCustomer(ctx, "cust_1", invoice.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Errorf("expected 1 invoice after replay, got %d", len(invs))
	}
	if invs[0].ID != first.ID {
		t.Errorf("replay should not replace the original invoice")
	}
}

func TestListInvoicesFilters(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	var ids []id.InvoiceID
	for i := 0; i < 5; i++ {
		inv := newInvoice("cust_1", base.AddDate(0, 0, i), nil, invoice.StatusDue)
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, inv.ID)
	}
	if err := s.MarkInvoicePaid(ctx, ids[0], base, id.Nil); err != nil {
		t.Fatal(err)
	}

	t.Run("newest first", func(t *testing.T) {
		invs, err := s.ListInvoicesByCustomer(ctx, "cust_1", invoice.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(invs) != 5 {
			t.Fatalf("got %d invoices, want 5", len(invs))
		}
		if invs[0].ID != ids[4] || invs[4].ID != ids[0] {
			t.Error("expected most recent invoice first")
		}
	})

	t.Run("status filter", func(t *testing.T) {
		invs, err := s.ListInvoicesByCustomer(ctx, "cust_1", invoice.ListOpts{Status: invoice.StatusPaid})
		if err != nil {
			t.Fatal(err)
		}
		if len(invs) != 1 || invs[0].ID != ids[0] {
			t.Errorf("expected only the paid invoice, got %d", len(invs))
		}
	})

	t.Run("date window", func(t *testing.T) {
		invs, err := s.ListInvoicesByCustomer(ctx, "cust_1", invoice.ListOpts{
			Start: base.AddDate(0, 0, 1),
			End:   base.AddDate(0, 0, 3),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(invs) != 3 {
			t.Errorf("got %d invoices in window, want 3", len(invs))
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		invs, err := s.ListInvoicesByCustomer(ctx, "cust_1", invoice.ListOpts{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(invs) != 2 {
			t.Fatalf("got %d invoices, want 2", len(invs))
		}
		if invs[0].ID != ids[3] || invs[1].ID != ids[2] {
			t.Error("offset should skip the newest invoice")
		}
	})
}

func TestListSubscriptionsStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	now := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	mk := func(status subscription.Status) *subscription.Subscription {
		return &subscription.Subscription{
			Entity:     types.EntityAt(now),
			ID:         id.NewSubscriptionID(),
			CustomerID: "cust_1",
			PropertyID: "prop_1",
			Status:     status,
			Quantity:   1,
			UnitPrice:  types.USD(2500),
			TotalPrice: types.USD(2500),
		}
	}

	active := mk(subscription.StatusActive)
	canceled := mk(subscription.StatusCanceled)
	for _, sub := range []*subscription.Subscription{active, canceled} {
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	subs, err := s.ListSubscriptionsByProperty(ctx, "prop_1", subscription.ListOpts{Status: subscription.StatusActive})
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].ID != active.ID {
		t.Errorf("expected only the active subscription, got %d", len(subs))
	}

	all, err := s.ListSubscriptionsByCustomer(ctx, "cust_1", subscription.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 subscriptions, got %d", len(all))
	}
	// Creation order is preserved.
	if all[0].ID != active.ID {
		t.Error("expected oldest subscription first")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	now := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	inv := newInvoice("cust_1", now, nil, invoice.StatusDue)
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetInvoice(ctx, inv.ID)
	got.Status = invoice.StatusPaid

	again, _ := s.GetInvoice(ctx, inv.ID)
	if again.Status != invoice.StatusDue {
		t.Error("mutating a returned invoice should not affect the store")
	}
}
