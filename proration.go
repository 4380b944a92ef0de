package curbside

import (
	"time"

	"github.com/xraph/curbside/types"
)

// firstOfNextMonth returns midnight on the first day of the month after t,
// in t's location. Fresh properties anchor their billing cycle here so
// every charge on the property renews on the same date.
func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
}

// daysBetween returns the number of whole days from a to b, or 0 when b
// is not after a.
func daysBetween(a, b time.Time) int64 {
	if !b.After(a) {
		return 0
	}
	return int64(b.Sub(a) / (24 * time.Hour))
}

// prorate computes the partial-period charge for delta additional units
// added at now, against a cycle ending at nextBilling. The charge is
// unitPrice × delta scaled by daysRemaining/daysInCycle, with the
// multiply performed before the divide so a half cycle yields exactly
// half the price. Returns zero when no days remain or when the full
// cycle remains (the regular renewal covers a change made on the
// billing date itself).
func prorate(unitPrice types.Money, delta int64, now, nextBilling time.Time) types.Money {
	cycleStart := nextBilling.AddDate(0, -1, 0)
	daysInCycle := daysBetween(cycleStart, nextBilling)
	daysRemaining := daysBetween(now, nextBilling)
	if daysRemaining > daysInCycle {
		daysRemaining = daysInCycle
	}

	if daysInCycle <= 0 || daysRemaining <= 0 || daysRemaining >= daysInCycle {
		return types.Zero(unitPrice.Currency)
	}

	return unitPrice.Multiply(delta).Prorate(daysRemaining, daysInCycle)
}
