package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
	"github.com/opiegroup/atomictawk-sub002/internal/order"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Materializer interface {
	Materialize(ctx context.Context, ev order.Event) (order.Ref, error)
}

// Ack is what the receiver reports back for an accepted delivery.
type Ack struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Handled   bool   `json:"handled"`

	// State is the checkout state the event moved the session into, if any.
	State    order.CheckoutState `json:"state,omitempty"`
	OrderRef *order.Ref          `json:"orderRef,omitempty"`
}

type Receiver struct {
	secret       string
	materializer Materializer
	log          *slog.Logger
}

func NewReceiver(secret string, materializer Materializer, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{secret: secret, materializer: materializer, log: log}
}

// Handle verifies the signature before reading anything from the body. A
// returned error other than ErrInvalidSignature means the delivery should be
// retried by the provider.
func (r *Receiver) Handle(ctx context.Context, payload []byte, signature string) (Ack, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signature, r.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		r.log.Error("webhook signature verification failed",
			"security_event", true, "error", err, "signature_present", signature != "")
		return Ack{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ack := Ack{EventID: event.ID, EventType: string(event.Type)}
	log := r.log.With("event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return r.handleCompleted(ctx, event, ack, log)

	case stripe.EventTypePaymentIntentSucceeded:
		log.Info("payment intent succeeded")
		ack.Handled = true

	case stripe.EventTypePaymentIntentPaymentFailed:
		ack.State = transition(ctx, log, slog.LevelWarn, "payment failed", order.StateSessionCreated, order.StatePaymentFailed)
		ack.Handled = true

	case stripe.EventTypeCheckoutSessionExpired:
		ack.State = transition(ctx, log, slog.LevelInfo, "checkout session expired", order.StateSessionCreated, order.StateAbandoned)
		ack.Handled = true

	default:
		log.Debug("ignoring webhook event")
	}
	return ack, nil
}

func (r *Receiver) handleCompleted(ctx context.Context, event stripe.Event, ack Ack, log *slog.Logger) (Ack, error) {
	if event.Data == nil {
		log.Error("checkout.session.completed without data object")
		return ack, nil
	}
	sess, err := decodeSession(event.Data.Raw)
	if err != nil {
		log.Error("unreadable checkout session in verified event", "error", err)
		return ack, nil
	}
	log = log.With("session_id", sess.ID)
	ack.State = transition(ctx, log, slog.LevelInfo, "checkout payment completed", order.StateSessionCreated, order.StatePaymentCompletedPending)

	ref, err := r.materializer.Materialize(ctx, order.Event{ID: event.ID, Session: sess})
	switch {
	case err == nil:
		ack.Handled = true
		ack.OrderRef = &ref
		if ref.Created {
			ack.State = transition(ctx, log, slog.LevelInfo, "order materialized", ack.State, order.StateOrderMaterialized,
				"order_number", ref.OrderNumber)
		} else {
			ack.State = order.StateOrderMaterialized
		}
		return ack, nil

	case errors.Is(err, checkout.ErrCorruptMetadata):
		// Redelivery carries the same metadata, so acknowledge and leave it to reconciliation.
		log.Error("order not created, awaiting manual reconciliation", "error", err)
		return ack, nil

	default:
		log.Error("order materialization failed, provider will retry", "error", err)
		return Ack{}, fmt.Errorf("materialize %s: %w", event.ID, err)
	}
}

// transition logs a checkout state change and returns the new state. A change
// the checkout lifecycle does not allow is logged as an error and leaves the
// state at from.
func transition(ctx context.Context, log *slog.Logger, level slog.Level, msg string, from, to order.CheckoutState, args ...any) order.CheckoutState {
	if !from.CanTransitionTo(to) {
		log.Error("invalid checkout state transition", "from", from, "to", to)
		return from
	}
	attrs := append([]any{"from", from, "checkout_state", to, "terminal", to.Terminal()}, args...)
	log.Log(ctx, level, msg, attrs...)
	return to
}
