// Package mongo provides a MongoDB-backed store for Curbside using the
// Grove ORM mongodriver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	curbside "github.com/xraph/curbside"
	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/invoice"
	"github.com/xraph/curbside/payment"
	curbstore "github.com/xraph/curbside/store"
	"github.com/xraph/curbside/subscription"
)

// Collection name constants.
const (
	colPaymentMethods = "curbside_payment_methods"
	colSubscriptions  = "curbside_subscriptions"
	colInvoices       = "curbside_invoices"
)

// compile-time interface check
var _ curbstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all curbside collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("curbside/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: create payment method: %w", err)
	}
	return nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, pmID id.PaymentMethodID) (*payment.Method, error) {
	var m paymentMethodModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pmID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, curbside.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("curbside/mongo: get payment method: %w", err)
	}
	return fromPaymentMethodModel(&m)
}

func (s *Store) ListPaymentMethods(ctx context.Context, customerID string) ([]*payment.Method, error) {
	var models []paymentMethodModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("curbside/mongo: list payment methods: %w", err)
	}

	result := make([]*payment.Method, len(models))
	for i := range models {
		pm, err := fromPaymentMethodModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = pm
	}
	return result, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, m *payment.Method) error {
	model := toPaymentMethodModel(m)
	model.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(model).
		Filter(bson.M{"_id": model.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: update payment method: %w", err)
	}
	if res.MatchedCount() == 0 {
		return curbside.ErrPaymentMethodNotFound
	}
	return nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, pmID id.PaymentMethodID) error {
	res, err := s.mdb.NewDelete((*paymentMethodModel)(nil)).
		Filter(bson.M{"_id": pmID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: delete payment method: %w", err)
	}
	if res.DeletedCount() == 0 {
		return curbside.ErrPaymentMethodNotFound
	}
	return nil
}

func (s *Store) SetPrimaryPaymentMethod(ctx context.Context, customerID string, pmID id.PaymentMethodID) error {
	t := now()

	// Flip the target first so a concurrent reader never observes a
	// customer with methods but no primary.
	res, err := s.mdb.NewUpdate((*paymentMethodModel)(nil)).
		Filter(bson.M{"_id": pmID.String(), "customer_id": customerID}).
		Set("is_primary", true).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: set primary payment method: %w", err)
	}
	if res.MatchedCount() == 0 {
		return curbside.ErrPaymentMethodNotFound
	}

	_, err = s.mdb.Collection(colPaymentMethods).UpdateMany(ctx,
		bson.M{"customer_id": customerID, "_id": bson.M{"$ne": pmID.String()}},
		bson.M{"$set": bson.M{"is_primary": false, "updated_at": t}},
	)
	if err != nil {
		return fmt.Errorf("curbside/mongo: clear primary payment methods: %w", err)
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, curbside.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("curbside/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptionsByCustomer(ctx context.Context, customerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return s.listSubscriptions(ctx, bson.M{"customer_id": customerID}, opts)
}

func (s *Store) ListSubscriptionsByProperty(ctx context.Context, propertyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return s.listSubscriptions(ctx, bson.M{"property_id": propertyID}, opts)
}

func (s *Store) listSubscriptions(ctx context.Context, filter bson.M, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("curbside/mongo: list subscriptions: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return curbside.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// The partial unique index on idempotency_key turns a replayed
		// keyed invoice into a duplicate-key error; swallow it so
		// retried commits stay idempotent.
		if m.IdempotencyKey != "" && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("curbside/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, curbside.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("curbside/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoicesByCustomer(ctx context.Context, customerID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, bson.M{"customer_id": customerID}, opts)
}

func (s *Store) ListInvoicesByProperty(ctx context.Context, propertyID string, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, bson.M{"property_id": propertyID}, opts)
}

func (s *Store) listInvoices(ctx context.Context, filter bson.M, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.Start.IsZero() {
		filter["date"] = bson.M{"$gte": opts.Start}
	}
	if !opts.End.IsZero() {
		if d, ok := filter["date"].(bson.M); ok {
			d["$lte"] = opts.End
		} else {
			filter["date"] = bson.M{"$lte": opts.End}
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("curbside/mongo: list invoices: %w", err)
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
	q := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{
			"_id":    invID.String(),
			"status": bson.M{"$ne": string(invoice.StatusPaid)},
		}).
		Set("status", string(invoice.StatusPaid)).
		Set("paid_at", paidAt).
		Set("updated_at", t)
	if !pmID.IsNil() {
		// A Nil method keeps the invoice's existing reference.
		q = q.Set("payment_method_id", pmID.String())
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("curbside/mongo: mark invoice paid: %w", err)
	}
	if res.MatchedCount() == 0 {
		// Either unknown or already paid; distinguish for the caller.
		if _, err := s.GetInvoice(ctx, invID); err != nil {
			return err
		}
		return curbside.ErrInvoicePaid
	}
	return nil
}

func (s *Store) MarkInvoicesOverdue(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.Collection(colInvoices).UpdateMany(ctx,
		bson.M{
			"status":   string(invoice.StatusDue),
			"due_date": bson.M{"$lt": before},
		},
		bson.M{"$set": bson.M{
			"status":     string(invoice.StatusOverdue),
			"updated_at": now(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("curbside/mongo: mark invoices overdue: %w", err)
	}
	return res.ModifiedCount, nil
}

// ==================== Change commit ====================

// CommitChange applies a lifecycle command's writes. Mongo enforces the
// invoice idempotency key with a partial unique index, so a retried
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

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all curbside collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPaymentMethods: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "is_primary", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "payment_method_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
			{
				Keys: bson.D{{Key: "idempotency_key", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "idempotency_key", Value: bson.D{{Key: "$gt", Value: ""}}}}),
			},
		},
	}
}
