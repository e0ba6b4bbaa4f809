package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opiegroup/atomictawk-sub002/internal/cart"
	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
	"github.com/opiegroup/atomictawk-sub002/internal/checkout"
	"github.com/opiegroup/atomictawk-sub002/internal/config"
	"github.com/opiegroup/atomictawk-sub002/internal/db"
	"github.com/opiegroup/atomictawk-sub002/internal/events"
	httpapi "github.com/opiegroup/atomictawk-sub002/internal/http"
	"github.com/opiegroup/atomictawk-sub002/internal/order"
	"github.com/opiegroup/atomictawk-sub002/internal/webhook"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	database, err := db.Open(startCtx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	pool, err := db.NewPool(startCtx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open catalog pool: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(startCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	notifiers, closeEvents := dialNotifiers(cfg, logger)
	defer closeEvents()

	products := catalog.NewPostgresRepository(pool)
	orders := order.NewRepository(database)
	materializer := order.NewMaterializer(orders, logger.With("component", "materializer"), notifiers...)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:    logger,
		Cfg:       cfg,
		Carts:     cart.NewRedisStore(rdb, cfg.CartTTL),
		Products:  products,
		Validator: catalog.NewGateway(products, checkout.MaxItems, logger.With("component", "catalog")),
		Sessions:  checkout.NewBuilder(checkout.NewStripeProvider(cfg.StripeSecretKey), cfg, logger.With("component", "checkout")),
		Webhooks:  webhook.NewReceiver(cfg.StripeWebhookSecret, materializer, logger.With("component", "webhook")),
		Orders:    orders,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// dialNotifiers connects to RabbitMQ when events are enabled. Order creation
// never depends on the broker, so a failed dial only disables notifications.
func dialNotifiers(cfg config.Config, logger *slog.Logger) ([]order.Notifier, func()) {
	if !cfg.EventsEnabled {
		return nil, func() {}
	}

	conn, err := amqp.DialConfig(cfg.RabbitURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		logger.Warn("rabbitmq unavailable, order events disabled", "error", err)
		return nil, func() {}
	}
	pub, err := events.NewPublisher(conn)
	if err != nil {
		_ = conn.Close()
		logger.Warn("rabbitmq publisher setup failed, order events disabled", "error", err)
		return nil, func() {}
	}

	return []order.Notifier{
			events.OrderCreatedNotifier{P: pub},
			events.ConfirmationEmailNotifier{P: pub},
		}, func() {
			_ = pub.Close()
			_ = conn.Close()
		}
}
