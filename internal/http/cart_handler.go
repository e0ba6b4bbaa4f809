package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opiegroup/atomictawk-sub002/internal/cart"
	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant"`
}

type updateItemRequest struct {
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant"`
}

type cartResponse struct {
	*cart.Cart
	Subtotal int64 `json:"subtotal"`
}

func writeCart(w http.ResponseWriter, status int, c *cart.Cart) {
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	if c.ID != "" {
		w.Header().Set(HeaderCartID, c.ID)
	}
	writeJSON(w, status, cartResponse{Cart: c, Subtotal: c.Subtotal()})
}

// loadCart returns an empty cart for unknown ids.
func (h *Handler) loadCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	if cartID == "" {
		return &cart.Cart{Items: []cart.Item{}}, nil
	}
	c, err := h.carts.Get(ctx, cartID)
	if errors.Is(err, cart.ErrNotFound) {
		return &cart.Cart{ID: cartID, Items: []cart.Item{}}, nil
	}
	return c, err
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.loadCart(ctx, r.Header.Get(HeaderCartID))
	if err != nil {
		h.log.Error("load cart failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be greater than zero")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		h.log.Error("load product failed", "error", err, "product_id", req.ProductID)
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if p.Status != catalog.StatusPublished {
		writeError(w, http.StatusBadRequest, "product not available")
		return
	}

	cartID := r.Header.Get(HeaderCartID)
	c, err := h.loadCart(ctx, cartID)
	if err != nil {
		h.log.Error("load cart failed", "error", err, "cart_id", cartID)
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if err := c.Add(cart.Item{
		ProductID:         p.ID,
		Variant:           req.Variant,
		Quantity:          req.Quantity,
		UnitPriceSnapshot: p.PriceMinorUnits,
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.carts.Save(ctx, c); err != nil {
		h.log.Error("save cart failed", "error", err, "cart_id", c.ID)
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.changeItem(w, r, req.Variant, req.Quantity)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, r.URL.Query().Get("variant"), 0)
}

func (h *Handler) changeItem(w http.ResponseWriter, r *http.Request, variant string, quantity int) {
	cartID := r.Header.Get(HeaderCartID)
	if cartID == "" {
		writeError(w, http.StatusBadRequest, "missing "+HeaderCartID)
		return
	}
	productID := chi.URLParam(r, "productId")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.Get(ctx, cartID)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	if err != nil {
		h.log.Error("load cart failed", "error", err, "cart_id", cartID)
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	if err := c.Update(productID, variant, quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	if err := h.carts.Save(ctx, c); err != nil {
		h.log.Error("save cart failed", "error", err, "cart_id", cartID)
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID := r.Header.Get(HeaderCartID)
	if cartID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Delete(ctx, cartID); err != nil {
		h.log.Error("clear cart failed", "error", err, "cart_id", cartID)
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
