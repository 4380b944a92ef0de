package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	curbside "github.com/xraph/curbside"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	curbstore "github.com/xraph/curbside/store"
	"github.com/xraph/curbside/subscription"
)

// compile-time interface check
var _ curbstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("curbside/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("curbside/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Payment Method Store ====================

func (s *Store) CreatePaymentMethod(ctx context.Context, m *payment.Method) error {
	model := toPaymentMethodModel(m)
	_, err := s.pg.NewInsert(model).Exec(ctx)
	return err
}

func (s *Store) GetPaymentMethod(ctx context.Context, pmID id.PaymentMethodID) (*payment.Method, error) {
	m := new(paymentMethodModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", pmID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, curbside.ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return fromPaymentMethodModel(m)
}

func (s *Store) ListPaymentMethods(ctx context.Context, customerID string) ([]*payment.Method, error) {
	var models []paymentMethodModel
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*payment.Method, len(models))
	for i := range models {
		m, err := fromPaymentMethodModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = m
	}
	return result, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, m *payment.Method) error {
	model := toPaymentMethodModel(m)
	model.UpdatedAt = now()
	res, err := s.pg.NewUpdate(model).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return curbside.ErrPaymentMethodNotFound
	}
	return nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, pmID id.PaymentMethodID) error {
	res, err := s.pg.NewDelete((*paymentMethodModel)(nil)).
		Where("id = $1", pmID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return curbside.ErrPaymentMethodNotFound
	}
	return nil
}

func (s *Store) SetPrimaryPaymentMethod(ctx context.Context, customerID string, pmID id.PaymentMethodID) error {
	t := now()

	// Flip the target first so a concurrent reader never observes a
	// customer with methods but no primary.
	res, err := s.pg.NewUpdate((*paymentMethodModel)(nil)).
		Set("is_primary = $1", true).
		Set("updated_at = $2", t).
		Where("id = $3", pmID.String()).
		Where("customer_id = $4", customerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return curbside.ErrPaymentMethodNotFound
	}

	_, err = s.pg.NewUpdate((*paymentMethodModel)(nil)).
		Set("is_primary = $1", false).
		Set("updated_at = $2", t).
		Where("customer_id = $3", customerID).
		Where("id != $4", pmID.String()).
		Exec(ctx)
	return err
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, curbside.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptionsByCustomer(ctx context.Context, customerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return s.listSubscriptions(ctx, "customer_id", customerID, opts)
}

func (s *Store) ListSubscriptionsByProperty(ctx context.Context, propertyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return s.listSubscriptions(ctx, "property_id", propertyID, opts)
}

func (s *Store) listSubscriptions(ctx context.Context, column, value string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).Where(column+" = $1", value)

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return curbside.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.pg.NewInsert(m).
		OnConflict("(idempotency_key) WHERE idempotency_key != '' DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, curbside.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoicesByCustomer(ctx context.Context, customerID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, "customer_id", customerID, opts)
}

func (s *Store) ListInvoicesByProperty(ctx context.Context, propertyID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, "property_id", propertyID, opts)
}

func (s *Store) listInvoices(ctx context.Context, column, value string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.pg.NewSelect(&models).Where(column+" = $1", value)

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date <= $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// Ledger reads are most-recent-first.
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time, pmID id.PaymentMethodID) error {
	t := now()
	q := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("status = $1", string(invoice.StatusPaid)).
		Set("paid_at = $2", paidAt).
		Set("updated_at = $3", t)
	argIdx := 3
	if !pmID.IsNil() {
		// A Nil method keeps the invoice's existing reference.
		argIdx++
		q = q.Set(fmt.Sprintf("payment_method_id = $%d", argIdx), pmID.String())
	}
	res, err := q.
		Where(fmt.Sprintf("id = $%d", argIdx+1), invID.String()).
		Where(fmt.Sprintf("status != $%d", argIdx+2), string(invoice.StatusPaid)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either unknown or already paid; distinguish for the caller.
		if _, err := s.GetInvoice(ctx, invID); err != nil {
			return err
		}
		return curbside.ErrInvoicePaid
	}
	return nil
}

func (s *Store) MarkInvoicesOverdue(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("status = $1", string(invoice.StatusOverdue)).
		Set("updated_at = $2", now()).
		Where("status = $3", string(invoice.StatusDue)).
		Where("due_date IS NOT NULL AND due_date < $4", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ==================== Change commit ====================

// CommitChange applies a lifecycle command's writes. Postgres enforces
// the invoice idempotency key with a partial unique index, so a retried
// commit re-applies the subscription writes (an idempotent outcome) and
// skips the already-inserted invoices.
func (s *Store) CommitChange(ctx context.Context, change *curbstore.Change) error {
	if change == nil || change.Empty() {
		return nil
	}

	for _, sub := range change.CreateSubscriptions {
		if err := s.CreateSubscription(ctx, sub); err != nil {
			return err
		}
	}
	for _, sub := range change.UpdateSubscriptions {
		if err := s.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
	}
	for _, inv := range change.CreateInvoices {
		if err := s.CreateInvoice(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
