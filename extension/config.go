package extension

import "time"

// Config holds the Curbside extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.curbside" or "curbside" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the ISO currency code used for invoices (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// OverdueSweepInterval is how frequently due invoices past their due
	// date are flipped to overdue (default: 1h).
	OverdueSweepInterval time.Duration `json:"overdue_sweep_interval" mapstructure:"overdue_sweep_interval" yaml:"overdue_sweep_interval"`

	// InvoiceDueIn is how long after issue an invoice becomes due
	// (default: 360h, i.e. 15 days).
	InvoiceDueIn time.Duration `json:"invoice_due_in" mapstructure:"invoice_due_in" yaml:"invoice_due_in"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:             "usd",
		OverdueSweepInterval: time.Hour,
		InvoiceDueIn:         15 * 24 * time.Hour,
	}
}
