package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/opiegroup/atomictawk-sub002/internal/middleware"
	"github.com/opiegroup/atomictawk-sub002/internal/order"
)

var ErrNoRecipient = errors.New("order has no deliverable email address")

type Publisher struct {
	ch       channel
	producer string
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch channel) (*Publisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &Publisher{
		ch:       ch,
		producer: producerName,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func metaFor(ctx context.Context, o *order.Order) EventMeta {
	return EventMeta{
		CorrelationID: middleware.GetCorrelationID(ctx),
		CausationID:   o.SourceEventID,
	}
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	ev := newOrderCreatedEvent(metaFor(ctx, o), p.producer, o, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderCreated: %w", err)
	}
	return p.publishJSON(ctx, OrderCreatedRoutingKey, ev.EventID, body)
}

func (p *Publisher) PublishEmailRequested(ctx context.Context, o *order.Order) error {
	if o.Email == "" || o.Email == order.UnknownEmail {
		return ErrNoRecipient
	}
	ev := newEmailRequestedEvent(metaFor(ctx, o), p.producer, o, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal EmailRequested: %w", err)
	}
	return p.publishJSON(ctx, EmailRequestedRoutingKey, ev.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

// OrderCreatedNotifier publishes order.created.v1 after an order commits.
type OrderCreatedNotifier struct{ P *Publisher }

func (n OrderCreatedNotifier) Notify(ctx context.Context, o *order.Order) error {
	return n.P.PublishOrderCreated(ctx, o)
}

// ConfirmationEmailNotifier asks the mailer to send the order confirmation.
type ConfirmationEmailNotifier struct{ P *Publisher }

func (n ConfirmationEmailNotifier) Notify(ctx context.Context, o *order.Order) error {
	return n.P.PublishEmailRequested(ctx, o)
}
