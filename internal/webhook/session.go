package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/opiegroup/atomictawk-sub002/internal/order"
)

// checkoutSession holds the fields read from a checkout.session.* event object.
// Both the legacy top-level shipping_details and collected_information are read.
type checkoutSession struct {
	ID              string            `json:"id"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	PaymentStatus   string            `json:"payment_status"`
	CustomerDetails *struct {
		Email   string          `json:"email"`
		Name    string          `json:"name"`
		Address *addressPayload `json:"address"`
	} `json:"customer_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingPayload `json:"shipping_details"`
	} `json:"collected_information"`
	ShippingDetails *shippingPayload `json:"shipping_details"`
}

type shippingPayload struct {
	Name    string          `json:"name"`
	Address *addressPayload `json:"address"`
}

type addressPayload struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func decodeSession(raw json.RawMessage) (order.Session, error) {
	var cs checkoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return order.Session{}, fmt.Errorf("decode checkout session: %w", err)
	}

	s := order.Session{
		ID:            cs.ID,
		Metadata:      cs.Metadata,
		CustomerEmail: cs.CustomerEmail,
		AmountTotal:   cs.AmountTotal,
		Currency:      cs.Currency,
		PaymentStatus: cs.PaymentStatus,
	}
	if cs.CustomerDetails != nil {
		if cs.CustomerDetails.Email != "" {
			s.CustomerEmail = cs.CustomerDetails.Email
		}
		s.CustomerName = cs.CustomerDetails.Name
	}

	var ship *shippingPayload
	switch {
	case cs.CollectedInformation != nil && cs.CollectedInformation.ShippingDetails != nil:
		ship = cs.CollectedInformation.ShippingDetails
	case cs.ShippingDetails != nil:
		ship = cs.ShippingDetails
	case cs.CustomerDetails != nil && cs.CustomerDetails.Address != nil:
		ship = &shippingPayload{Name: cs.CustomerDetails.Name, Address: cs.CustomerDetails.Address}
	}
	if ship != nil {
		s.Shipping.Name = ship.Name
		if a := ship.Address; a != nil {
			s.Shipping.Line1 = a.Line1
			s.Shipping.Line2 = a.Line2
			s.Shipping.City = a.City
			s.Shipping.State = a.State
			s.Shipping.PostalCode = a.PostalCode
			s.Shipping.Country = a.Country
		}
		if s.CustomerName == "" {
			s.CustomerName = ship.Name
		}
	}
	return s, nil
}
