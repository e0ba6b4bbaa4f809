package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opiegroup/atomictawk-sub002/internal/order"
)

// orderStatusResponse is the public view of an order. The order number is
// the only key, so it carries no customer email, name or address.
type orderStatusResponse struct {
	OrderNumber     string       `json:"orderNumber"`
	Status          order.Status `json:"status"`
	Currency        string       `json:"currency"`
	TotalMinorUnits int64        `json:"totalMinorUnits"`
	Items           []order.Item `json:"items"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func toOrderStatusResponse(o *order.Order) orderStatusResponse {
	items := o.Items
	if items == nil {
		items = []order.Item{}
	}
	return orderStatusResponse{
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Currency:        o.Currency,
		TotalMinorUnits: o.TotalMinorUnits,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")
	if number == "" {
		writeError(w, http.StatusBadRequest, "missing orderNumber")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.GetByOrderNumber(ctx, number)
	if err != nil {
		h.log.Error("load order failed", "error", err, "order_number", number)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, toOrderStatusResponse(o))
}
