package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const idempotencyConstraint = "orders_idempotency_key_key"

type Repository interface {
	// FindByIdempotencyKey returns nil, nil when no order exists for key.
	FindByIdempotencyKey(ctx context.Context, key string) (*Ref, error)
	// Create inserts the order and its items atomically. A second order with
	// the same idempotency key fails with ErrDuplicateOrder.
	Create(ctx context.Context, o *Order) error
	FlagForReconciliation(ctx context.Context, r Reconciliation) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const (
	insertOrderSQL = `INSERT INTO orders (id, order_number, idempotency_key, source_event_id, email, customer_name,
         needs_review, status, currency, total_minor_units, shipping_address, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	insertItemSQL = `INSERT INTO order_items (id, order_id, position, product_id, slug, name, variant, quantity, unit_price)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	findByKeySQL = `SELECT id, order_number, idempotency_key FROM orders WHERE idempotency_key = $1`

	selectOrderSQL = `SELECT id, order_number, idempotency_key, source_event_id, email, customer_name,
         needs_review, status, currency, total_minor_units, shipping_address, created_at
         FROM orders WHERE order_number = $1`

	selectItemsSQL = `SELECT product_id, slug, name, variant, quantity, unit_price
         FROM order_items WHERE order_id = $1 ORDER BY position`

	flagSQL = `INSERT INTO order_reconciliation (idempotency_key, source_event_id, reason, metadata)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (idempotency_key) DO UPDATE
         SET source_event_id = EXCLUDED.source_event_id, reason = EXCLUDED.reason,
             last_seen_at = NOW(), occurrences = order_reconciliation.occurrences + 1`
)

func (r *repo) FindByIdempotencyKey(ctx context.Context, key string) (*Ref, error) {
	var ref Ref
	err := r.db.QueryRowContext(ctx, findByKeySQL, key).Scan(&ref.ID, &ref.OrderNumber, &ref.IdempotencyKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order by idempotency key: %w", err)
	}
	return &ref, nil
}

func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.IdempotencyKey, o.SourceEventID, o.Email, o.Name,
		o.NeedsReview, string(o.Status), o.Currency, o.TotalMinorUnits, addr, o.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		_, err = tx.ExecContext(ctx, insertItemSQL,
			uuid.NewString(), o.ID, i, it.ProductID, it.Slug, it.Name, it.Variant, it.Quantity, it.UnitPriceMinorUnits,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) FlagForReconciliation(ctx context.Context, rec Reconciliation) error {
	md, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, flagSQL, rec.IdempotencyKey, rec.SourceEventID, rec.Reason, md); err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

func (r *repo) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var (
		o      Order
		status string
		addr   []byte
	)
	err := r.db.QueryRowContext(ctx, selectOrderSQL, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &o.IdempotencyKey, &o.SourceEventID, &o.Email, &o.Name,
		&o.NeedsReview, &status, &o.Currency, &o.TotalMinorUnits, &addr, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Status = Status(status)
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, selectItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Slug, &it.Name, &it.Variant, &it.Quantity, &it.UnitPriceMinorUnits); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == idempotencyConstraint
}
