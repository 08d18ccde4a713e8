package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/controllers"
	"github.com/neline/marketplace-backend/api/middleware"
	"github.com/neline/marketplace-backend/internal/cart"
	"github.com/neline/marketplace-backend/internal/coupons"
	"github.com/neline/marketplace-backend/internal/transactions"
	fintocwebhook "github.com/neline/marketplace-backend/internal/webhooks/fintoc"
	"github.com/neline/marketplace-backend/pkg/config"
	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/metrics"
	pkgredis "github.com/neline/marketplace-backend/pkg/redis"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisStore backs idempotency replays and guest rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type TransactionService interface {
	Checkout(ctx context.Context, input transactions.CheckoutInput) (*transactions.CheckoutResult, error)
	ConfirmRequest(ctx context.Context, paymentID string, callerID *uuid.UUID) (*models.Transaction, error)
	Cancel(ctx context.Context, paymentID string) (*models.Transaction, error)
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error)
	ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error)
}

type PaymentEventHandler interface {
	HandleEvent(ctx context.Context, event fintocwebhook.Event) error
}

type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

type Dependencies struct {
	DB             Pinger
	Redis          RedisStore
	Transactions   TransactionService
	PaymentEvents  PaymentEventHandler
	Verifier       SignatureVerifier
	Coupons        coupons.Service
	Cart           cart.Service
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	var redisPinger Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idempotencyStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, redisPinger, logg))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	guestPolicy := middleware.NewRateLimitPolicy(
		"guest_checkout",
		cfg.RateLimit.GuestCheckoutWindow,
		cfg.RateLimit.GuestCheckoutIPLimit,
		cfg.RateLimit.GuestCheckoutEmailLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.With(
				middleware.RateLimit(guestPolicy, deps.Redis, logg),
				middleware.Idempotency(idempotencyStore, middleware.CheckoutReplayTTL, logg),
			).Post("/checkout/guest", controllers.GuestCheckout(deps.Transactions, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.With(middleware.Idempotency(idempotencyStore, middleware.CheckoutReplayTTL, logg)).
					Post("/checkout", controllers.Checkout(deps.Transactions, logg))
				r.Get("/purchases", controllers.Purchases(deps.Transactions, logg))
				r.Get("/sales", controllers.Sales(deps.Transactions, logg))
			})
		})

		r.Route("/transaction-confirmation", func(r chi.Router) {
			r.Post("/resolved", controllers.PaymentResolved(deps.Verifier, deps.PaymentEvents, logg))
			r.With(middleware.OptionalAuth(cfg.JWT, logg)).
				Patch("/confirm-request/{paymentId}", controllers.ConfirmRequest(deps.Transactions, logg))
			r.Patch("/cancel/{paymentId}", controllers.CancelTransaction(deps.Transactions, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/validate/{code}", controllers.ValidateCoupon(deps.Coupons, logg))

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.Auth(cfg.JWT, logg),
					middleware.RequireRole(logg, enums.SystemRoleAdmin),
					middleware.Idempotency(idempotencyStore, middleware.DefaultReplayTTL, logg),
				)
				r.Get("/", controllers.ListCoupons(deps.Coupons, logg))
				r.Post("/", controllers.CreateCoupon(deps.Coupons, logg))
				r.Post("/mass", controllers.MassCreateCoupons(deps.Coupons, logg))
				r.Patch("/{id}/activate", controllers.ActivateCoupon(deps.Coupons, logg))
				r.Patch("/{id}/deactivate", controllers.DeactivateCoupon(deps.Coupons, logg))
				r.Delete("/{id}", controllers.DeleteCoupon(deps.Coupons, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(idempotencyStore, middleware.DefaultReplayTTL, logg),
			)
			r.Get("/", controllers.CartList(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Put("/{publicationItemId}", controllers.CartPut(deps.Cart, logg))
			r.Delete("/{publicationItemId}", controllers.CartRemove(deps.Cart, logg))
		})
	})

	return r
}
