// Package curbside provides a composable subscription and billing engine for
// waste-collection businesses.
//
// Curbside is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - A seeded catalog of purchasable services (base fee, can sizes,
//     recycling, upgrades, one-time jobs)
//   - Per-property subscription lifecycle: start, quantity change, pause,
//     resume, cancel, restart
//   - Mid-cycle proration with exact integer arithmetic
//   - Cascading cancellation between a property's base fee and its
//     equipment subscriptions
//   - Physical equipment tracking (rental vs. own-can, delivery and
//     retrieval state)
//   - An append-only invoice ledger with due/paid/overdue lifecycle
//   - A per-customer payment method store with a single-primary invariant
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/curbside"
//	    "github.com/xraph/curbside/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	eng := curbside.New(store)
//
//	// Start the engine (migrates and begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// The catalog is immutable and seeded at startup; subscriptions snapshot
// catalog prices at creation time:
//
//	sub, err := eng.StartService(ctx, curbside.StartServiceParams{
//	    CustomerID:  "cust-42",
//	    PropertyID:  "prop-7",
//	    ServiceSlug: "medium-trash-can",
//	    Quantity:    1,
//	})
//
// Starting a service emits the first-month invoice immediately, plus a
// one-time setup fee (company can) or sticker fee (customer's own can) for
// equipment services. All of a property's subscriptions share one billing
// date; a fresh property anchors to the first of the next month.
//
// Quantity increases are prorated against the days remaining in the
// current cycle; decreases and cancellations never emit refunds. Canceling
// the last active equipment subscription on a property cancels the
// property's base fee in the same commit.
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit; major-currency decimals exist only at the API boundary.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	svc_01h2xcejqtf2nbrexx3vqjhp41  // Service ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41  // Subscription ID
//	inv_01h455vb4pex5vsknk084sn02q  // Invoice ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package curbside
