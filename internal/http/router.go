package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/opiegroup/atomictawk-sub002/internal/cart"
	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
	"github.com/opiegroup/atomictawk-sub002/internal/config"
	"github.com/opiegroup/atomictawk-sub002/internal/middleware"
	"github.com/opiegroup/atomictawk-sub002/internal/order"
	"github.com/opiegroup/atomictawk-sub002/internal/webhook"
)

const HeaderCartID = "X-Cart-Id"

type Validator interface {
	Validate(ctx context.Context, req catalog.CheckoutRequest) ([]catalog.PricedLineItem, error)
}

type CheckoutSessions interface {
	CreateSession(ctx context.Context, items []catalog.PricedLineItem, urls checkout.ReturnURLs) (checkout.Session, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}

type WebhookReceiver interface {
	Handle(ctx context.Context, payload []byte, signature string) (webhook.Ack, error)
}

type Deps struct {
	Logger *slog.Logger
	Cfg    config.Config

	Carts     cart.Store
	Products  catalog.Repository
	Validator Validator
	Sessions  CheckoutSessions
	Webhooks  WebhookReceiver
	Orders    order.Repository
}

type Handler struct {
	log      *slog.Logger
	cfg      config.Config
	carts    cart.Store
	products catalog.Repository
	validate Validator
	sessions CheckoutSessions
	webhooks WebhookReceiver
	orders   order.Repository
	timeout  time.Duration
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := d.Cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		log:      log,
		cfg:      d.Cfg,
		carts:    d.Carts,
		products: d.Products,
		validate: d.Validator,
		sessions: d.Sessions,
		webhooks: d.Webhooks,
		orders:   d.Orders,
		timeout:  timeout,
	}
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d)

	origins := d.Cfg.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limit := d.Cfg.CheckoutRateLimit
	if limit <= 0 {
		limit = 1
	}
	limiter := middleware.NewRateLimiter(limit, 5)
	orderLimiter := middleware.NewRateLimiter(limit, 5)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(h.log))
	r.Use(middleware.RequestLogger(h.log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderCartID, middleware.HeaderCorrelationID},
		ExposedHeaders: []string{HeaderCartID, middleware.HeaderCorrelationID},
	}).Handler)

	r.Get("/health", h.Health)

	r.With(limiter.Limit).Post("/checkout", h.CreateCheckout)
	r.Get("/checkout/success", h.CheckoutSuccess)
	r.Post("/webhook", h.Webhook)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Patch("/items/{productId}", h.UpdateCartItem)
		r.Delete("/items/{productId}", h.RemoveCartItem)
	})

	r.With(orderLimiter.Limit).Get("/orders/{orderNumber}", h.GetOrder)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
