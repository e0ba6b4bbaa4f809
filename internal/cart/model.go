package cart

import (
	"errors"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrMissingProduct  = errors.New("productId is required")
	ErrItemNotFound    = errors.New("item not in cart")
)

// Item is one cart line. ProductID plus Variant identifies the line, so the same
// product in two sizes is two lines.
type Item struct {
	ProductID         string `json:"productId"`
	Variant           string `json:"variant,omitempty"`
	Quantity          int    `json:"quantity"`
	UnitPriceSnapshot int64  `json:"unitPriceSnapshot"`
}

type Cart struct {
	ID        string    `json:"cartId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Cart) indexOf(productID, variant string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Variant == variant {
			return i
		}
	}
	return -1
}

// Add increments an existing line or appends a new one. The price snapshot is
// display-only and refreshed on every add.
func (c *Cart) Add(it Item) error {
	if it.ProductID == "" {
		return ErrMissingProduct
	}
	if it.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i := c.indexOf(it.ProductID, it.Variant); i >= 0 {
		c.Items[i].Quantity += it.Quantity
		c.Items[i].UnitPriceSnapshot = it.UnitPriceSnapshot
	} else {
		c.Items = append(c.Items, it)
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Update sets the quantity of a line. Zero removes it.
func (c *Cart) Update(productID, variant string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	i := c.indexOf(productID, variant)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) Remove(productID, variant string) error {
	return c.Update(productID, variant, 0)
}

func (c *Cart) Clear() {
	c.Items = []Item{}
	c.UpdatedAt = time.Now().UTC()
}

// Subtotal uses the price snapshots and is for display only; checkout reprices
// from the catalog.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, it := range c.Items {
		total += int64(it.Quantity) * it.UnitPriceSnapshot
	}
	return total
}
