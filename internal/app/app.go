// Package app assembles the services shared by the api and cron-worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/neline/marketplace-backend/internal/cart"
	"github.com/neline/marketplace-backend/internal/coupons"
	"github.com/neline/marketplace-backend/internal/inventory"
	"github.com/neline/marketplace-backend/internal/notifications"
	"github.com/neline/marketplace-backend/internal/reservation"
	"github.com/neline/marketplace-backend/internal/transactions"
	"github.com/neline/marketplace-backend/internal/users"
	fintocwebhook "github.com/neline/marketplace-backend/internal/webhooks/fintoc"
	"github.com/neline/marketplace-backend/pkg/config"
	"github.com/neline/marketplace-backend/pkg/db"
	"github.com/neline/marketplace-backend/pkg/fintoc"
	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/metrics"
)

type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Registry prometheus.Registerer
}

// Container holds the wired domain services. Close releases the notifier.
type Container struct {
	Transactions *transactions.Service
	Coupons      coupons.Service
	Cart         cart.Service
	Webhooks     *fintocwebhook.Service
	// Verifier is nil outside production when no webhook secret is configured.
	Verifier *fintoc.Verifier
	Notifier *notifications.Dispatcher
}

func Build(ctx context.Context, params Params) (*Container, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	cfg, logg, conn := params.Config, params.Logger, params.DB.DB()

	publisher, err := newPublisher(ctx, cfg.Notifications, logg)
	if err != nil {
		return nil, err
	}
	notifier, err := notifications.NewDispatcher(publisher, cfg.Notifications.Workers, cfg.Notifications.QueueSize, logg)
	if err != nil {
		return nil, fmt.Errorf("notifications dispatcher: %w", err)
	}

	gateway, err := fintoc.NewClient(cfg.Gateway, nil)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("payment gateway: %w", err), notifier.Close())
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), params.DB, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("coupons service: %w", err), notifier.Close())
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, cartRepo)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("cart service: %w", err), notifier.Close())
	}

	inventoryRepo := inventory.NewRepository(conn)
	builder, err := reservation.NewBuilder(inventoryRepo)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("reservation builder: %w", err), notifier.Close())
	}

	txnSvc, err := transactions.NewService(transactions.Params{
		TxRunner:                params.DB,
		Repo:                    transactions.NewRepository(conn),
		Inventory:               inventoryRepo,
		Builder:                 builder,
		Gateway:                 gateway,
		Coupons:                 couponSvc,
		Cart:                    cartSvc,
		Users:                   users.NewRepository(conn),
		Notifier:                notifier,
		Metrics:                 metrics.NewTransactionMetrics(params.Registry),
		Logger:                  logg,
		ReleaseOnPaymentFailure: cfg.FeatureFlags.ReleaseOnPaymentFailure,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("transactions service: %w", err), notifier.Close())
	}

	webhookSvc, err := fintocwebhook.NewService(txnSvc, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("webhook service: %w", err), notifier.Close())
	}

	verifier, err := newVerifier(ctx, cfg, logg)
	if err != nil {
		return nil, multierr.Append(err, notifier.Close())
	}

	return &Container{
		Transactions: txnSvc,
		Coupons:      couponSvc,
		Cart:         cartSvc,
		Webhooks:     webhookSvc,
		Verifier:     verifier,
		Notifier:     notifier,
	}, nil
}

func (c *Container) Close() error {
	if c == nil || c.Notifier == nil {
		return nil
	}
	return c.Notifier.Close()
}

func newPublisher(ctx context.Context, cfg config.NotificationsConfig, logg *logger.Logger) (notifications.Publisher, error) {
	if !cfg.Enabled() {
		logg.Warn(ctx, "notifications.broker_disabled")
		return notifications.NewLogPublisher(logg), nil
	}
	publisher, err := notifications.NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return publisher, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*fintoc.Verifier, error) {
	if cfg.Gateway.WebhookSecret == "" {
		if cfg.App.IsProd() {
			return nil, fmt.Errorf("%s is required in production", config.EnvGatewayWebhookSecret)
		}
		logg.Warn(ctx, "webhook.verifier_disabled")
		return nil, nil
	}
	verifier, err := fintoc.NewVerifier(cfg.Gateway.WebhookSecret, cfg.Gateway.WebhookTolerance)
	if err != nil {
		return nil, fmt.Errorf("webhook verifier: %w", err)
	}
	return verifier, nil
}
