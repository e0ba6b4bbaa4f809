package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/opiegroup/atomictawk-sub002/internal/order"
)

const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeEmailRequested = "EmailRequested"

	OrderConfirmationTemplate = "order_confirmation"
)

type OrderLine struct {
	ProductID           string `json:"productId"`
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	Variant             string `json:"variant,omitempty"`
	Quantity            int    `json:"quantity"`
	UnitPriceMinorUnits int64  `json:"unitPriceMinorUnits"`
}

type OrderCreatedPayload struct {
	OrderID         string        `json:"orderId"`
	OrderNumber     string        `json:"orderNumber"`
	CheckoutSession string        `json:"checkoutSessionId"`
	Email           string        `json:"email"`
	NeedsReview     bool          `json:"needsReview"`
	Currency        string        `json:"currency"`
	TotalMinorUnits int64         `json:"totalMinorUnits"`
	ShippingAddress order.Address `json:"shippingAddress"`
	Items           []OrderLine   `json:"items"`
	CreatedAt       time.Time     `json:"createdAt"`
}

type EmailRequestedPayload struct {
	Template        string      `json:"template"`
	To              string      `json:"to"`
	Name            string      `json:"name,omitempty"`
	OrderNumber     string      `json:"orderNumber"`
	Currency        string      `json:"currency"`
	TotalMinorUnits int64       `json:"totalMinorUnits"`
	Items           []OrderLine `json:"items"`
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
}

func orderLines(o *order.Order) []OrderLine {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLine{
			ProductID:           it.ProductID,
			Slug:                it.Slug,
			Name:                it.Name,
			Variant:             it.Variant,
			Quantity:            it.Quantity,
			UnitPriceMinorUnits: it.UnitPriceMinorUnits,
		})
	}
	return lines
}

func newOrderCreatedEvent(meta EventMeta, producer string, o *order.Order, now time.Time) EventEnvelope[OrderCreatedPayload] {
	return EventEnvelope[OrderCreatedPayload]{
		EventName:     EventTypeOrderCreated,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  o.ID,
		OccurredAt:    now,
		Schema:        "storefront://events/OrderCreated/v1",
		Payload: OrderCreatedPayload{
			OrderID:         o.ID,
			OrderNumber:     o.OrderNumber,
			CheckoutSession: o.IdempotencyKey,
			Email:           o.Email,
			NeedsReview:     o.NeedsReview,
			Currency:        o.Currency,
			TotalMinorUnits: o.TotalMinorUnits,
			ShippingAddress: o.ShippingAddress,
			Items:           orderLines(o),
			CreatedAt:       o.CreatedAt,
		},
	}
}

func newEmailRequestedEvent(meta EventMeta, producer string, o *order.Order, now time.Time) EventEnvelope[EmailRequestedPayload] {
	return EventEnvelope[EmailRequestedPayload]{
		EventName:     EventTypeEmailRequested,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  o.ID,
		OccurredAt:    now,
		Schema:        "storefront://events/EmailRequested/v1",
		Payload: EmailRequestedPayload{
			Template:        OrderConfirmationTemplate,
			To:              o.Email,
			Name:            o.Name,
			OrderNumber:     o.OrderNumber,
			Currency:        o.Currency,
			TotalMinorUnits: o.TotalMinorUnits,
			Items:           orderLines(o),
		},
	}
}
