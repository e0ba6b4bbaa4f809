package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
)

// UnknownEmail is stored when a paid session carries no customer email.
const UnknownEmail = "unknown@invalid"

const notifyTimeout = 5 * time.Second

// Notifier is a best-effort side effect run after an order is committed.
type Notifier interface {
	Notify(ctx context.Context, o *Order) error
}

type Materializer struct {
	repo      Repository
	notifiers []Notifier
	log       *slog.Logger
	now       func() time.Time
}

func NewMaterializer(repo Repository, log *slog.Logger, notifiers ...Notifier) *Materializer {
	if log == nil {
		log = slog.Default()
	}
	return &Materializer{
		repo:      repo,
		notifiers: notifiers,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Materialize creates the order for a completed session at most once per
// idempotency key. Corrupt metadata is recorded for reconciliation and returned
// as an error wrapping checkout.ErrCorruptMetadata; storage failures come back
// as *PersistenceError.
func (m *Materializer) Materialize(ctx context.Context, ev Event) (Ref, error) {
	key := ev.Session.ID
	if key == "" {
		key = ev.ID
	}
	if key == "" {
		return Ref{}, errors.New("event has neither session id nor event id")
	}
	log := m.log.With("event_id", ev.ID, "idempotency_key", key)

	existing, err := m.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return Ref{}, &PersistenceError{Op: "lookup", Err: err}
	}
	if existing != nil {
		log.Info("order already materialized", "order_number", existing.OrderNumber)
		return *existing, nil
	}

	lines, err := checkout.DecodeMetadata(ev.Session.Metadata)
	if err != nil {
		log.Error("paid session has corrupt metadata, flagging for reconciliation", "error", err)
		ferr := m.repo.FlagForReconciliation(ctx, Reconciliation{
			IdempotencyKey: key,
			SourceEventID:  ev.ID,
			Reason:         err.Error(),
			Metadata:       ev.Session.Metadata,
		})
		if ferr != nil {
			return Ref{}, &PersistenceError{Op: "flag reconciliation", Err: ferr}
		}
		return Ref{}, err
	}

	o := m.buildOrder(key, ev, lines)
	if o.NeedsReview {
		log.Warn("order needs review", "email", o.Email, "payment_status", ev.Session.PaymentStatus)
	}

	if err := m.repo.Create(ctx, o); err != nil {
		if !errors.Is(err, ErrDuplicateOrder) {
			return Ref{}, &PersistenceError{Op: "create", Err: err}
		}
		winner, ferr := m.repo.FindByIdempotencyKey(ctx, key)
		if ferr != nil {
			return Ref{}, &PersistenceError{Op: "lookup after conflict", Err: ferr}
		}
		if winner == nil {
			return Ref{}, &PersistenceError{Op: "lookup after conflict", Err: err}
		}
		log.Info("concurrent delivery lost the race", "order_number", winner.OrderNumber)
		return *winner, nil
	}

	log.Info("order materialized", "order_id", o.ID, "order_number", o.OrderNumber,
		"items", len(o.Items), "total", o.TotalMinorUnits)
	m.notify(ctx, o, log)

	return Ref{ID: o.ID, OrderNumber: o.OrderNumber, IdempotencyKey: key, Created: true}, nil
}

func (m *Materializer) buildOrder(key string, ev Event, lines []checkout.LineItem) *Order {
	s := ev.Session
	id := uuid.New()
	createdAt := m.now()

	o := &Order{
		ID:              id.String(),
		OrderNumber:     OrderNumber(id, createdAt),
		IdempotencyKey:  key,
		SourceEventID:   ev.ID,
		Email:           strings.TrimSpace(s.CustomerEmail),
		Name:            s.CustomerName,
		Status:          StatusPaid,
		Currency:        strings.ToLower(s.Currency),
		ShippingAddress: s.Shipping,
		Items:           make([]Item, 0, len(lines)),
		CreatedAt:       createdAt,
	}
	if o.Email == "" {
		o.Email = UnknownEmail
		o.NeedsReview = true
	}
	if s.PaymentStatus != "" && s.PaymentStatus != "paid" {
		o.NeedsReview = true
	}

	var sum int64
	for _, l := range lines {
		o.Items = append(o.Items, Item{
			ProductID:           l.ProductID,
			Slug:                l.Slug,
			Name:                l.Name,
			Variant:             l.Variant,
			Quantity:            l.Quantity,
			UnitPriceMinorUnits: l.UnitPriceMinorUnits,
		})
		sum += int64(l.Quantity) * l.UnitPriceMinorUnits
	}
	o.TotalMinorUnits = s.AmountTotal
	if o.TotalMinorUnits <= 0 {
		o.TotalMinorUnits = sum
	}
	return o
}

// notify runs every notifier even if the request context is already done.
func (m *Materializer) notify(ctx context.Context, o *Order, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, o); err != nil {
			log.Warn("order side effect failed", "error", err, "notifier", fmt.Sprintf("%T", n))
		}
	}
}

// OrderNumber formats ORD-YYYYMMDD-XXXXXXXX from the order id and creation date.
func OrderNumber(id uuid.UUID, at time.Time) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(hex[:8]))
}
