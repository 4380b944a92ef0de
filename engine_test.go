package curbside_test

import (
	"context"
	"errors"
	"testing"
	"time"

	curbside "github.com/xraph/curbside"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	"github.com/xraph/curbside/store/memory"
	"github.com/xraph/curbside/subscription"
	"github.com/xraph/curbside/types"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time  { return c.now }
func (c *testClock) Set(t time.Time) { c.now = t }
func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, start time.Time) (*curbside.Engine, *testClock) {
	t.Helper()
	clk := &testClock{now: start}
	eng := curbside.New(memory.New(), curbside.WithClock(clk.Now))
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })
	return eng, clk
}

func attachCard(t *testing.T, eng *curbside.Engine, customerID, last4 string) *payment.Method {
	t.Helper()
	m, err := eng.AttachPaymentMethod(context.Background(), &payment.Method{
		CustomerID: customerID,
		Type:       payment.TypeCard,
		Brand:      "visa",
		Last4:      last4,
		ExpMonth:   12,
		ExpYear:    2030,
	})
	if err != nil {
		t.Fatalf("attach payment method: %v", err)
	}
	return m
}

func startService(t *testing.T, eng *curbside.Engine, params curbside.StartServiceParams) *subscription.Subscription {
	t.Helper()
	sub, err := eng.StartService(context.Background(), params)
	if err != nil {
		t.Fatalf("start %s: %v", params.ServiceSlug, err)
	}
	return sub
}

func invoiceKinds(t *testing.T, eng *curbside.Engine, customerID string) map[invoice.Kind]int {
	t.Helper()
	invs, err := eng.Invoices(context.Background(), customerID)
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	kinds := make(map[invoice.Kind]int)
	for _, inv := range invs {
		kinds[inv.Kind]++
	}
	return kinds
}

// ──────────────────────────────────────────────────
// Start service
// ──────────────────────────────────────────────────

func TestStartServiceFreshProperty(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC)
	may1 := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	eng, _ := newTestEngine(t, apr5)

	attachCard(t, eng, "cust_1", "4242")

	baseFee := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "base-fee",
		Quantity:    1,
	})
	if !baseFee.NextBillingDate.Equal(may1) {
		t.Errorf("base fee billing date: got %v, want %v", baseFee.NextBillingDate, may1)
	}
	if !baseFee.TotalPrice.Equal(types.USD(2900)) {
		t.Errorf("base fee total: got %v, want $29.00", baseFee.TotalPrice)
	}
	if baseFee.HasEquipment() {
		t.Error("base fee should not track equipment")
	}

	can := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "medium-trash-can",
		Quantity:    1,
	})
	if !can.NextBillingDate.Equal(may1) {
		t.Errorf("can should join the property billing date: got %v, want %v", can.NextBillingDate, may1)
	}
	if can.EquipmentType != subscription.EquipmentRental {
		t.Errorf("equipment type: got %s, want rental", can.EquipmentType)
	}
	if can.EquipmentStatus != subscription.EquipmentAtProperty {
		t.Errorf("equipment status: got %s, want at_property", can.EquipmentStatus)
	}

	invs, err := eng.Invoices(ctx, "cust_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(invs))
	}

	total := types.Zero("usd")
	for _, inv := range invs {
		total = total.Add(inv.Amount)
		if inv.Status != invoice.StatusDue {
			t.Errorf("invoice %s: got status %s, want due", inv.ID, inv.Status)
		}
	}
	// $29.00 base fee + $25.00 first month + $65.00 setup fee
	if !total.Equal(types.USD(11900)) {
		t.Errorf("invoice total: got %v, want $119.00", total)
	}

	kinds := invoiceKinds(t, eng, "cust_1")
	if kinds[invoice.KindFirstMonth] != 2 || kinds[invoice.KindSetupFee] != 1 {
		t.Errorf("unexpected invoice kinds: %v", kinds)
	}
}

func TestStartServiceStickerFee(t *testing.T) {
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, _ := newTestEngine(t, apr5)
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "small-trash-can",
		Quantity:    1,
		UseSticker:  true,
	})
	if sub.EquipmentType != subscription.EquipmentOwnCan {
		t.Errorf("equipment type: got %s, want own_can", sub.EquipmentType)
	}

	kinds := invoiceKinds(t, eng, "cust_1")
	if kinds[invoice.KindStickerFee] != 1 || kinds[invoice.KindSetupFee] != 0 {
		t.Errorf("expected a sticker fee and no setup fee, got %v", kinds)
	}

	invs, _ := eng.Invoices(context.Background(), "cust_1")
	for _, inv := range invs {
		if inv.Kind == invoice.KindStickerFee && !inv.Amount.Equal(types.USD(2500)) {
			t.Errorf("sticker fee: got %v, want $25.00", inv.Amount)
		}
	}
}

func TestStartServiceValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	tests := []struct {
		name    string
		params  curbside.StartServiceParams
		wantErr error
	}{
		{"zero quantity", curbside.StartServiceParams{CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee"}, curbside.ErrInvalidQuantity},
		{"negative quantity", curbside.StartServiceParams{CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: -1}, curbside.ErrInvalidQuantity},
		{"missing customer", curbside.StartServiceParams{PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1}, curbside.ErrInvalidInput},
		{"missing property", curbside.StartServiceParams{CustomerID: "cust_1", ServiceSlug: "base-fee", Quantity: 1}, curbside.ErrInvalidInput},
		{"unknown service", curbside.StartServiceParams{CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "gold-plated-can", Quantity: 1}, curbside.ErrServiceNotFound},
		{"no payment method", curbside.StartServiceParams{CustomerID: "cust_2", PropertyID: "prop_2", ServiceSlug: "base-fee", Quantity: 1}, curbside.ErrPaymentMethodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.StartService(ctx, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Quantity changes
// ──────────────────────────────────────────────────

func TestChangeQuantityIncreaseProrates(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, clk := newTestEngine(t, apr5)
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "medium-trash-can",
		Quantity:    1,
	})

	// Halfway through the 30-day April cycle.
	clk.Set(time.Date(2026, time.April, 16, 0, 0, 0, 0, time.UTC))

	updated, err := eng.ChangeQuantity(ctx, sub.ID, 3)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if updated.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", updated.Quantity)
	}
	if !updated.TotalPrice.Equal(types.USD(7500)) {
		t.Errorf("total: got %v, want $75.00", updated.TotalPrice)
	}

	invs, _ := eng.Invoices(ctx, "cust_1")
	var setup, proration *invoice.Invoice
	for _, inv := range invs {
		switch inv.Kind {
		case invoice.KindSetupFee:
			if inv.Date.Equal(clk.Now()) {
				setup = inv
			}
		case invoice.KindProration:
			proration = inv
		}
	}

	if setup == nil {
		t.Fatal("expected setup fee invoice for the two added cans")
	}
	if !setup.Amount.Equal(types.USD(13000)) {
		t.Errorf("setup fee: got %v, want $130.00 (2 x $65.00)", setup.Amount)
	}

	if proration == nil {
		t.Fatal("expected proration invoice")
	}
	// 2 cans x $25.00 x 15/30 days remaining = $25.00
	if !proration.Amount.Equal(types.USD(2500)) {
		t.Errorf("proration: got %v, want $25.00", proration.Amount)
	}
}

func TestChangeQuantityOnBillingDateNoProration(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, clk := newTestEngine(t, apr5)
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "medium-trash-can",
		Quantity:    1,
	})

	// On the billing date itself the next full invoice covers the new
	// quantity; only the equipment fee applies.
	clk.Set(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC))

	if _, err := eng.ChangeQuantity(ctx, sub.ID, 2); err != nil {
		t.Fatalf("change quantity: %v", err)
	}

	kinds := invoiceKinds(t, eng, "cust_1")
	if kinds[invoice.KindProration] != 0 {
		t.Errorf("expected no proration invoice, got %d", kinds[invoice.KindProration])
	}
	if kinds[invoice.KindSetupFee] != 2 {
		t.Errorf("expected 2 setup fee invoices (initial + added unit), got %d", kinds[invoice.KindSetupFee])
	}
}

func TestChangeQuantityAtCycleStartNoProration(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, clk := newTestEngine(t, apr5)
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "medium-trash-can",
		Quantity:    1,
	})

	// With the whole April cycle still ahead, the next renewal covers
	// the new quantity in full; only the equipment fee applies.
	clk.Set(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))

	if _, err := eng.ChangeQuantity(ctx, sub.ID, 2); err != nil {
		t.Fatalf("change quantity: %v", err)
	}

	kinds := invoiceKinds(t, eng, "cust_1")
	if kinds[invoice.KindProration] != 0 {
		t.Errorf("expected no proration invoice, got %d", kinds[invoice.KindProration])
	}
	if kinds[invoice.KindSetupFee] != 2 {
		t.Errorf("expected 2 setup fee invoices (initial + added unit), got %d", kinds[invoice.KindSetupFee])
	}
}

func TestChangeQuantityDecreaseNoRefund(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID:  "cust_1",
		PropertyID:  "prop_1",
		ServiceSlug: "medium-trash-can",
		Quantity:    3,
	})

	before, _ := eng.Invoices(ctx, "cust_1")

	updated, err := eng.ChangeQuantity(ctx, sub.ID, 1)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if updated.Quantity != 1 {
		t.Errorf("quantity: got %d, want 1", updated.Quantity)
	}
	if !updated.TotalPrice.Equal(types.USD(2500)) {
		t.Errorf("total: got %v, want $25.00", updated.TotalPrice)
	}

	after, _ := eng.Invoices(ctx, "cust_1")
	if len(after) != len(before) {
		t.Errorf("decrease emitted invoices: %d -> %d", len(before), len(after))
	}
}

func TestChangeQuantityToZeroCancels(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})
	can := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 1,
	})

	updated, err := eng.ChangeQuantity(ctx, can.ID, 0)
	if err != nil {
		t.Fatalf("change quantity to zero: %v", err)
	}
	if updated.Status != subscription.StatusCanceled {
		t.Errorf("status: got %s, want canceled", updated.Status)
	}
	if updated.Quantity != 0 || !updated.TotalPrice.IsZero() {
		t.Errorf("expected zeroed subscription, got qty=%d total=%v", updated.Quantity, updated.TotalPrice)
	}

	// The cascade reaches the base fee like a direct cancellation would.
	subs, _ := eng.SubscriptionsForProperty(ctx, "prop_1")
	for _, s := range subs {
		if s.Status != subscription.StatusCanceled {
			t.Errorf("subscription %s (%s) should be canceled", s.ID, s.ServiceSlug)
		}
	}
}

func TestChangeQuantityCanceledSubscription(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 1,
	})
	if err := eng.CancelSubscription(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.ChangeQuantity(ctx, sub.ID, 2); !errors.Is(err, curbside.ErrSubscriptionCanceled) {
		t.Errorf("got %v, want ErrSubscriptionCanceled", err)
	}
}

// ──────────────────────────────────────────────────
// Cancellation
// ──────────────────────────────────────────────────

func TestCancelSubscriptionCascadesBaseFee(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	baseFee := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})
	can := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 1,
	})
	backdoor := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "backdoor-service", Quantity: 1,
	})

	before, _ := eng.Invoices(ctx, "cust_1")

	if err := eng.CancelSubscription(ctx, can.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := eng.Subscription(ctx, can.ID)
	if got.Status != subscription.StatusCanceled {
		t.Errorf("can status: got %s, want canceled", got.Status)
	}
	if got.EquipmentStatus != subscription.EquipmentRetrieved {
		t.Errorf("equipment status: got %s, want retrieved", got.EquipmentStatus)
	}

	fee, _ := eng.Subscription(ctx, baseFee.ID)
	if fee.Status != subscription.StatusCanceled {
		t.Errorf("base fee should cascade: got %s", fee.Status)
	}

	bd, _ := eng.Subscription(ctx, backdoor.ID)
	if bd.Status != subscription.StatusActive {
		t.Errorf("upgrade should survive the cascade: got %s", bd.Status)
	}

	// Cancellation emits no refund or credit invoices.
	after, _ := eng.Invoices(ctx, "cust_1")
	if len(after) != len(before) {
		t.Errorf("cancel emitted invoices: %d -> %d", len(before), len(after))
	}
}

func TestCancelKeepsBaseFeeWithSiblingCan(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	baseFee := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})
	trash := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 1,
	})
	startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "recycling-can", Quantity: 1,
	})

	if err := eng.CancelSubscription(ctx, trash.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	fee, _ := eng.Subscription(ctx, baseFee.ID)
	if fee.Status != subscription.StatusActive {
		t.Errorf("base fee should survive while the recycling can is active: got %s", fee.Status)
	}
}

func TestCancelAlreadyCanceled(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})
	if err := eng.CancelSubscription(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.CancelSubscription(ctx, sub.ID); !errors.Is(err, curbside.ErrSubscriptionCanceled) {
		t.Errorf("got %v, want ErrSubscriptionCanceled", err)
	}
}

// ──────────────────────────────────────────────────
// Pause / resume
// ──────────────────────────────────────────────────

func TestPauseAndResume(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	attachCard(t, eng, "cust_1", "4242")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 2,
	})

	until := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if err := eng.PauseForProperty(ctx, "prop_1", until); err != nil {
		t.Fatalf("pause: %v", err)
	}

	paused, _ := eng.Subscription(ctx, sub.ID)
	if paused.Status != subscription.StatusPaused {
		t.Errorf("status: got %s, want paused", paused.Status)
	}
	if paused.PausedUntil == nil || !paused.PausedUntil.Equal(until) {
		t.Errorf("paused until: got %v, want %v", paused.PausedUntil, until)
	}
	// Pause is a status flip only.
	if paused.Quantity != 2 || !paused.NextBillingDate.Equal(sub.NextBillingDate) {
		t.Error("pause should not touch quantity or the billing date")
	}

	// Nothing active remains to pause.
	if err := eng.PauseForProperty(ctx, "prop_1", until); !errors.Is(err, curbside.ErrNothingToPause) {
		t.Errorf("got %v, want ErrNothingToPause", err)
	}

	if err := eng.ResumeForProperty(ctx, "prop_1"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	resumed, _ := eng.Subscription(ctx, sub.ID)
	if resumed.Status != subscription.StatusActive {
		t.Errorf("status: got %s, want active", resumed.Status)
	}
	if resumed.PausedUntil != nil {
		t.Errorf("paused until should clear, got %v", resumed.PausedUntil)
	}

	if err := eng.ResumeForProperty(ctx, "prop_1"); !errors.Is(err, curbside.ErrNothingToResume) {
		t.Errorf("got %v, want ErrNothingToResume", err)
	}
}

// ──────────────────────────────────────────────────
// Cancel all / restart all
// ──────────────────────────────────────────────────

func TestCancelAllAndRestartAll(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, clk := newTestEngine(t, apr5)
	attachCard(t, eng, "cust_1", "4242")

	startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})
	can := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "large-trash-can", Quantity: 3,
	})

	if err := eng.CancelAllForProperty(ctx, "prop_1"); err != nil {
		t.Fatalf("cancel all: %v", err)
	}
	if err := eng.CancelAllForProperty(ctx, "prop_1"); !errors.Is(err, curbside.ErrNothingToCancel) {
		t.Errorf("got %v, want ErrNothingToCancel", err)
	}

	kindsBefore := invoiceKinds(t, eng, "cust_1")

	// The customer comes back in July.
	jul10 := time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC)
	aug1 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	clk.Set(jul10)

	if err := eng.RestartAllForProperty(ctx, "prop_1"); err != nil {
		t.Fatalf("restart all: %v", err)
	}

	subs, _ := eng.SubscriptionsForProperty(ctx, "prop_1")
	for _, s := range subs {
		if s.Status != subscription.StatusActive {
			t.Errorf("%s: got status %s, want active", s.ServiceSlug, s.Status)
		}
		if s.Quantity != 1 {
			t.Errorf("%s: restart resets quantity, got %d", s.ServiceSlug, s.Quantity)
		}
		if !s.NextBillingDate.Equal(aug1) {
			t.Errorf("%s: billing date got %v, want %v", s.ServiceSlug, s.NextBillingDate, aug1)
		}
		if s.HasEquipment() && s.EquipmentStatus != subscription.EquipmentAtProperty {
			t.Errorf("%s: equipment should be redelivered, got %s", s.ServiceSlug, s.EquipmentStatus)
		}
	}

	restarted, _ := eng.Subscription(ctx, can.ID)
	if !restarted.TotalPrice.Equal(types.USD(3000)) {
		t.Errorf("restarted can total: got %v, want $30.00", restarted.TotalPrice)
	}

	// Redelivery charges the equipment fee again but no first-month
	// invoice: the first regular billing run covers August.
	kindsAfter := invoiceKinds(t, eng, "cust_1")
	if kindsAfter[invoice.KindSetupFee] != kindsBefore[invoice.KindSetupFee]+1 {
		t.Errorf("expected one redelivery setup fee, kinds: %v", kindsAfter)
	}
	if kindsAfter[invoice.KindFirstMonth] != kindsBefore[invoice.KindFirstMonth] {
		t.Errorf("restart should not emit first-month invoices, kinds: %v", kindsAfter)
	}

	if err := eng.RestartAllForProperty(ctx, "prop_1"); !errors.Is(err, curbside.ErrNothingToRestart) {
		t.Errorf("got %v, want ErrNothingToRestart", err)
	}
}

func TestRestartAllSkipsFeeWhenEquipmentStillAtProperty(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	mem := memory.New()

	// A canceled rental whose can was never picked up.
	sub := &subscription.Subscription{
		Entity:          types.EntityAt(now),
		ID:              id.NewSubscriptionID(),
		CustomerID:      "cust_1",
		PropertyID:      "prop_1",
		ServiceSlug:     "medium-trash-can",
		ServiceName:     "Medium Trash Can",
		Status:          subscription.StatusCanceled,
		UnitPrice:       types.USD(2500),
		TotalPrice:      types.Zero("usd"),
		EquipmentType:   subscription.EquipmentRental,
		EquipmentStatus: subscription.EquipmentAtProperty,
	}
	if err := mem.CreateSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}

	clk := &testClock{now: now}
	eng := curbside.New(mem, curbside.WithClock(clk.Now))

	if err := eng.RestartAllForProperty(ctx, "prop_1"); err != nil {
		t.Fatalf("restart all: %v", err)
	}

	got, err := eng.Subscription(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != subscription.StatusActive || got.Quantity != 1 {
		t.Errorf("got status=%s qty=%d, want active qty=1", got.Status, got.Quantity)
	}
	if got.EquipmentStatus != subscription.EquipmentAtProperty {
		t.Errorf("equipment status: got %s, want at_property", got.EquipmentStatus)
	}

	invs, err := eng.Invoices(ctx, "cust_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 0 {
		t.Errorf("no fee is due when the can never left the property, got %d invoices", len(invs))
	}
}

// ──────────────────────────────────────────────────
// Payment methods
// ──────────────────────────────────────────────────

func TestPrimaryPaymentMethodInvariant(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))

	a := attachCard(t, eng, "cust_1", "1111")
	if !a.IsPrimary {
		t.Error("first attached method should be primary")
	}

	b := attachCard(t, eng, "cust_1", "2222")
	if b.IsPrimary {
		t.Error("second attached method should not be primary")
	}

	if err := eng.SetPrimaryPaymentMethod(ctx, "cust_1", b.ID); err != nil {
		t.Fatalf("set primary: %v", err)
	}

	methods, _ := eng.PaymentMethods(ctx, "cust_1")
	primaries := 0
	for _, m := range methods {
		if m.IsPrimary {
			primaries++
			if m.ID != b.ID {
				t.Errorf("wrong primary: got %s, want %s", m.ID, b.ID)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("expected exactly one primary, got %d", primaries)
	}

	// Detaching the primary promotes the earliest remaining method.
	if err := eng.DetachPaymentMethod(ctx, b.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}
	methods, _ = eng.PaymentMethods(ctx, "cust_1")
	if len(methods) != 1 || !methods[0].IsPrimary {
		t.Errorf("remaining method should be promoted to primary: %+v", methods)
	}
}

func TestDetachPaymentMethodInUse(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))

	m := attachCard(t, eng, "cust_1", "4242")
	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})

	if err := eng.DetachPaymentMethod(ctx, m.ID); !errors.Is(err, curbside.ErrPaymentMethodInUse) {
		t.Errorf("got %v, want ErrPaymentMethodInUse", err)
	}

	// A canceled subscription no longer pins the method.
	if err := eng.CancelSubscription(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.DetachPaymentMethod(ctx, m.ID); err != nil {
		t.Errorf("detach after cancel: %v", err)
	}
}

func TestUpdateSubscriptionPaymentMethod(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))

	attachCard(t, eng, "cust_1", "1111")
	other := attachCard(t, eng, "cust_1", "2222")

	sub := startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})

	if err := eng.UpdateSubscriptionPaymentMethod(ctx, sub.ID, other.ID); err != nil {
		t.Fatalf("update payment method: %v", err)
	}

	got, _ := eng.Subscription(ctx, sub.ID)
	if got.PaymentMethodID != other.ID {
		t.Errorf("payment method: got %s, want %s", got.PaymentMethodID, other.ID)
	}
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

func TestPayInvoiceIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))
	m := attachCard(t, eng, "cust_1", "4242")

	startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "base-fee", Quantity: 1,
	})

	invs, _ := eng.Invoices(ctx, "cust_1")
	if len(invs) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(invs))
	}

	paid, err := eng.PayInvoice(ctx, invs[0].ID, m.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != invoice.StatusPaid || paid.PaidAt == nil {
		t.Errorf("expected paid invoice with PaidAt, got %+v", paid)
	}

	if _, err := eng.PayInvoice(ctx, invs[0].ID, m.ID); !errors.Is(err, curbside.ErrInvoicePaid) {
		t.Errorf("got %v, want ErrInvoicePaid", err)
	}
}

func TestManualInvoice(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))

	inv, err := eng.CreateInvoice(ctx, "cust_1", "prop_1", 75.50, "Replacement lid")
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if inv.Kind != invoice.KindManual {
		t.Errorf("kind: got %s, want manual", inv.Kind)
	}
	if !inv.Amount.Equal(types.USD(7550)) {
		t.Errorf("amount: got %v, want $75.50", inv.Amount)
	}
	if !inv.SubscriptionID.IsNil() {
		t.Errorf("manual invoice should not reference a subscription")
	}

	if _, err := eng.CreateInvoice(ctx, "cust_1", "prop_1", -5, "bad"); !errors.Is(err, curbside.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestIdempotentInvoiceCreation(t *testing.T) {
	ctx := curbside.WithIdempotencyKey(context.Background(), "webhook-evt-42")
	eng, _ := newTestEngine(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC))

	if _, err := eng.CreateInvoice(ctx, "cust_1", "prop_1", 20, "Bulk pickup"); err != nil {
		t.Fatal(err)
	}
	// A retried delivery of the same event must not double-bill.
	if _, err := eng.CreateInvoice(ctx, "cust_1", "prop_1", 20, "Bulk pickup"); err != nil {
		t.Fatal(err)
	}

	invs, _ := eng.Invoices(ctx, "cust_1")
	if len(invs) != 1 {
		t.Errorf("expected 1 invoice after retry, got %d", len(invs))
	}
}

func TestSweepOverdue(t *testing.T) {
	ctx := context.Background()
	apr5 := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	eng, clk := newTestEngine(t, apr5)
	m := attachCard(t, eng, "cust_1", "4242")

	startService(t, eng, curbside.StartServiceParams{
		CustomerID: "cust_1", PropertyID: "prop_1", ServiceSlug: "medium-trash-can", Quantity: 1,
	})

	invs, _ := eng.Invoices(ctx, "cust_1")
	if len(invs) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(invs))
	}

	// Pay one before the due date passes.
	if _, err := eng.PayInvoice(ctx, invs[0].ID, m.ID); err != nil {
		t.Fatal(err)
	}

	// Past the 15-day due window.
	clk.Set(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC))

	count, err := eng.SweepOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Errorf("swept: got %d, want 1", count)
	}

	after, _ := eng.Invoices(ctx, "cust_1")
	statuses := make(map[invoice.Status]int)
	for _, inv := range after {
		statuses[inv.Status]++
	}
	if statuses[invoice.StatusPaid] != 1 || statuses[invoice.StatusOverdue] != 1 {
		t.Errorf("unexpected statuses: %v", statuses)
	}

	// A second sweep finds nothing new.
	count, err = eng.SweepOverdue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("second sweep: got %d, want 0", count)
	}
}
