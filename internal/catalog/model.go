package catalog

type ProductStatus string

const (
	StatusDraft     ProductStatus = "draft"
	StatusPublished ProductStatus = "published"
)

type Product struct {
	ID              string        `json:"id"`
	Slug            string        `json:"slug"`
	Name            string        `json:"name"`
	PriceMinorUnits int64         `json:"priceMinorUnits"`
	StockQty        int           `json:"stockQty"`
	InStock         bool          `json:"inStock"`
	Status          ProductStatus `json:"status"`
	Images          []string      `json:"images"`
}

// RequestItem is what the shopper sends. It carries no price.
type RequestItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

type CheckoutRequest []RequestItem

// PricedLineItem is a request entry resolved against the catalog.
type PricedLineItem struct {
	ProductID           string
	Slug                string
	Name                string
	Variant             string
	Quantity            int
	UnitPriceMinorUnits int64
	Image               string
}
