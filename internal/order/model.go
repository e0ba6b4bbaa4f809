package order

import "time"

type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Item struct {
	ProductID           string `json:"productId"`
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	Variant             string `json:"variant,omitempty"`
	Quantity            int    `json:"quantity"`
	UnitPriceMinorUnits int64  `json:"unitPriceMinorUnits"`
}

type Order struct {
	ID              string    `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	IdempotencyKey  string    `json:"-"`
	SourceEventID   string    `json:"-"`
	Email           string    `json:"email"`
	Name            string    `json:"name,omitempty"`
	NeedsReview     bool      `json:"needsReview"`
	Status          Status    `json:"status"`
	Currency        string    `json:"currency"`
	TotalMinorUnits int64     `json:"totalMinorUnits"`
	ShippingAddress Address   `json:"shippingAddress"`
	Items           []Item    `json:"items"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Ref identifies a materialized order. Created is false when the order already
// existed before this call.
type Ref struct {
	ID             string `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	IdempotencyKey string `json:"idempotencyKey"`
	Created        bool   `json:"created"`
}

// Session is the part of a completed checkout session needed to build an order.
type Session struct {
	ID            string
	Metadata      map[string]string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	Shipping      Address
}

// Event is a verified payment-completed notification.
type Event struct {
	ID      string
	Session Session
}

// Reconciliation records a paid session whose contents could not be decoded.
type Reconciliation struct {
	IdempotencyKey string
	SourceEventID  string
	Reason         string
	Metadata       map[string]string
}
