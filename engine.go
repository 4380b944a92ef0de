package curbside

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/plugin"
	"github.com/xraph/curbside/store"
)

// Engine is the subscription and billing lifecycle engine.
type Engine struct {
	store   store.Store
	catalog *catalog.Catalog
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Per-property serialization. Cascading cancellation and proration
	// read the full sibling set, so every mutation of a property's
	// subscriptions runs inside that property's critical section.
	lockMu    sync.Mutex
	propLocks map[string]*sync.Mutex

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	sweepInterval time.Duration
	invoiceDueIn  time.Duration
	currency      string
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		catalog:       catalog.Default(),
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		clock:         time.Now,
		propLocks:     make(map[string]*sync.Mutex),
		stopChan:      make(chan struct{}),
		sweepInterval: time.Hour,
		invoiceDueIn:  15 * 24 * time.Hour,
		currency:      "usd",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCatalog replaces the default service catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithClock injects a time source. Billing dates, invoice dates, and
// timestamps all flow through it; tests pin it to fixed instants.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithOverdueSweep configures how often the engine scans for due
// invoices that have passed their due date.
func WithOverdueSweep(interval time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
	}
}

// WithInvoiceDueIn sets how long after issue an invoice stays due
// before the sweep flips it to overdue.
func WithInvoiceDueIn(d time.Duration) Option {
	return func(e *Engine) {
		e.invoiceDueIn = d
	}
}

// WithCurrency sets the currency for manually created invoices.
// Catalog-driven invoices always carry the service's currency.
func WithCurrency(currency string) Option {
	return func(e *Engine) {
		e.currency = currency
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start overdue sweep worker
	e.wg.Add(1)
	go e.overdueSweepWorker(ctx)

	e.logger.Info("curbside engine started",
		"services", e.catalog.Len(),
		"sweep_interval", e.sweepInterval,
		"invoice_due_in", e.invoiceDueIn,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// overdueSweepWorker flips due invoices past their due date to overdue.
func (e *Engine) overdueSweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweepOverdue(ctx)
		}
	}
}

func (e *Engine) sweepOverdue(ctx context.Context) {
	start := time.Now()

	count, err := e.store.MarkInvoicesOverdue(ctx, e.clock())
	if err != nil {
		e.logger.Error("overdue sweep failed",
			"error", err,
		)
		return
	}
	if count == 0 {
		return
	}

	e.plugins.EmitInvoicesOverdue(ctx, count)

	e.logger.Info("overdue sweep complete",
		"flipped", count,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// SweepOverdue runs one overdue pass immediately and returns the number
// of invoices flipped. The background worker calls the same path on its
// ticker.
func (e *Engine) SweepOverdue(ctx context.Context) (int64, error) {
	count, err := e.store.MarkInvoicesOverdue(ctx, e.clock())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.plugins.EmitInvoicesOverdue(ctx, count)
	}
	return count, nil
}

// propertyLock returns the mutex serializing mutations on a property.
func (e *Engine) propertyLock(propertyID string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	mu, ok := e.propLocks[propertyID]
	if !ok {
		mu = &sync.Mutex{}
		e.propLocks[propertyID] = mu
	}
	return mu
}

// ──────────────────────────────────────────────────
// Idempotency
// ──────────────────────────────────────────────────

type contextKey string

const idempotencyKeyContextKey contextKey = "curbside.idempotency_key"

// WithIdempotencyKey attaches a client-supplied idempotency key to the
// context. The engine stamps the key on every invoice the mutation
// emits, and stores skip inserts whose key they have already seen, so
// retrying a failed mutation with the same key cannot double-bill.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyContextKey, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	if v := ctx.Value(idempotencyKeyContextKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
