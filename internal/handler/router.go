package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"core-banking-api/internal/model"
	"core-banking-api/internal/observability"
)

// BasePath prefixes every versioned API route.
const BasePath = "/api/v1/corebanking"

// RouterConfig aggregates everything NewRouter wires together.
type RouterConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics // nil disables /metrics

	Customers *CustomerHandler
	Accounts  *AccountHandler
	Ledger    *LedgerHandler
	Health    http.Handler

	RequestTimeout     time.Duration
	RateLimitPerMinute int // 0 disables rate limiting
}

// NewRouter builds the HTTP handler for the API server.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	})

	timeout := 15 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(cfg.Logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		secureMiddleware.Handler,
	)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeErrorResponse(w, http.StatusTooManyRequests, "Too many requests", model.ErrCodeRateLimited)
			}),
		))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "Route not found", model.ErrCodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
	})

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/healthz", cfg.Health)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route(BasePath, func(r chi.Router) {
		r.Use(apiVersion)

		r.Get("/customers", cfg.Customers.ListCustomers)
		r.Post("/customers", cfg.Customers.CreateCustomer)

		r.Get("/accounts", cfg.Accounts.ListAccounts)
		r.Post("/accounts", cfg.Accounts.CreateAccount)
		r.Get("/accounts/{id}", cfg.Accounts.GetAccount)

		r.Get("/accounts/{id}/transactions", cfg.Ledger.ListTransactions)
		r.Put("/accounts/{id}/deposit", cfg.Ledger.Deposit)
		r.Put("/accounts/{id}/withdraw", cfg.Ledger.Withdraw)
		r.Put("/accounts/{id}/transfer", cfg.Ledger.Transfer)
	})

	return r
}
