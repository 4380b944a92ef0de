package extension

import (
	"time"

	curbside "github.com/xraph/curbside"
	"github.com/xraph/curbside/plugin"
	"github.com/xraph/curbside/store"
)

// Option configures the Curbside Forge extension.
type Option func(*Extension)

// WithStore sets the store for the curbside engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a curbside.Option through to the underlying engine.
func WithEngineOption(opt curbside.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a curbside plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, curbside.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithCurrency sets the ISO currency code used for invoices.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithOverdueSweepInterval sets how frequently due invoices past their
// due date are flipped to overdue.
func WithOverdueSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.OverdueSweepInterval = d }
}

// WithInvoiceDueIn sets how long after issue an invoice becomes due.
func WithInvoiceDueIn(d time.Duration) Option {
	return func(e *Extension) { e.config.InvoiceDueIn = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
