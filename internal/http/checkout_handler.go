package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opiegroup/atomictawk-sub002/internal/cart"
	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
)

type checkoutRequest struct {
	Items []catalog.RequestItem `json:"items"`
}

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	SessionID   string `json:"sessionId"`
}

// CreateCheckout prices the posted items, or the stored cart when the body has
// none, and returns the hosted payment page URL.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items := catalog.CheckoutRequest(req.Items)
	if len(items) == 0 {
		if cartID := r.Header.Get(HeaderCartID); cartID != "" {
			c, err := h.carts.Get(ctx, cartID)
			if err != nil && !errors.Is(err, cart.ErrNotFound) {
				h.log.Error("load cart for checkout failed", "error", err, "cart_id", cartID)
				writeError(w, http.StatusInternalServerError, "failed to load cart")
				return
			}
			if c != nil {
				items = requestFromCart(c)
			}
		}
	}

	priced, err := h.validate.Validate(ctx, items)
	if err != nil {
		var verr *catalog.ValidationError
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("validate checkout failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to validate cart")
		}
		return
	}

	session, err := h.sessions.CreateSession(ctx, priced, checkout.DefaultReturnURLs(h.cfg.BaseURL))
	if err != nil {
		var perr *checkout.ProviderError
		if errors.As(err, &perr) {
			writeError(w, http.StatusInternalServerError, "payment provider unavailable, please try again")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{RedirectURL: session.RedirectURL, SessionID: session.ID})
}

func requestFromCart(c *cart.Cart) catalog.CheckoutRequest {
	req := make(catalog.CheckoutRequest, 0, len(c.Items))
	for _, it := range c.Items {
		req = append(req, catalog.RequestItem{ProductID: it.ProductID, Quantity: it.Quantity, Variant: it.Variant})
	}
	return req
}

// CheckoutSuccess is where the provider redirects the shopper. The cart is
// cleared once the order exists or the provider confirms the session is paid;
// the order itself may still be in flight.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session_id")
		return
	}
	cartID := r.Header.Get(HeaderCartID)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ref, err := h.orders.FindByIdempotencyKey(ctx, sessionID)
	if err != nil {
		h.log.Error("lookup order for session failed", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if ref != nil {
		h.clearCart(ctx, cartID, sessionID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "paid", "orderNumber": ref.OrderNumber})
		return
	}

	if cartID != "" {
		paid, err := h.sessions.SessionPaid(ctx, sessionID)
		switch {
		case err != nil:
			h.log.Warn("could not confirm checkout session, keeping cart", "error", err, "session_id", sessionID, "cart_id", cartID)
		case paid:
			h.clearCart(ctx, cartID, sessionID)
			h.log.Info("cart cleared while order is pending", "session_id", sessionID, "cart_id", cartID)
		default:
			h.log.Info("checkout session not paid, keeping cart", "session_id", sessionID, "cart_id", cartID)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func (h *Handler) clearCart(ctx context.Context, cartID, sessionID string) {
	if cartID == "" {
		return
	}
	if err := h.carts.Delete(ctx, cartID); err != nil {
		h.log.Warn("clear cart after checkout failed", "error", err, "cart_id", cartID, "session_id", sessionID)
	}
}
