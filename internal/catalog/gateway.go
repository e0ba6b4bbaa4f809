package catalog

import (
	"context"
	"log/slog"
)

// Gateway turns a client checkout request into authoritative line items.
// It only reads; stock is checked but never reserved.
type Gateway struct {
	repo     Repository
	maxItems int
	log      *slog.Logger
}

// NewGateway caps requests at maxItems line entries; zero means no cap.
func NewGateway(repo Repository, maxItems int, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{repo: repo, maxItems: maxItems, log: log}
}

func (g *Gateway) Validate(ctx context.Context, req CheckoutRequest) ([]PricedLineItem, error) {
	if len(req) == 0 {
		return nil, invalid(ErrEmptyRequest, "")
	}
	if g.maxItems > 0 && len(req) > g.maxItems {
		return nil, invalid(ErrTooManyItems, "")
	}

	requested := make(map[string]int, len(req))
	for _, it := range req {
		if it.Quantity <= 0 {
			return nil, invalid(ErrInvalidQuantity, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}

	products := make(map[string]*Product, len(requested))
	out := make([]PricedLineItem, 0, len(req))
	for _, it := range req {
		p, ok := products[it.ProductID]
		if !ok {
			var err error
			p, err = g.repo.GetProduct(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, invalid(ErrProductNotFound, it.ProductID)
			}
			if p.Status != StatusPublished {
				return nil, invalid(ErrProductUnavailable, it.ProductID)
			}
			if p.Slug == "" || p.Name == "" {
				g.log.Warn("published product has no slug or name", "product_id", p.ID)
				return nil, invalid(ErrProductUnavailable, it.ProductID)
			}
			if !p.InStock || p.StockQty < requested[it.ProductID] {
				g.log.Info("checkout rejected: insufficient stock",
					"product_id", it.ProductID, "requested", requested[it.ProductID], "available", p.StockQty)
				return nil, invalid(ErrInsufficientStock, it.ProductID)
			}
			products[it.ProductID] = p
		}

		line := PricedLineItem{
			ProductID:           p.ID,
			Slug:                p.Slug,
			Name:                p.Name,
			Variant:             it.Variant,
			Quantity:            it.Quantity,
			UnitPriceMinorUnits: p.PriceMinorUnits,
		}
		if len(p.Images) > 0 {
			line.Image = p.Images[0]
		}
		out = append(out, line)
	}
	return out, nil
}
