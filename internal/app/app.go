// Package app wires configuration, storage, clients, and the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/assets"
	"github.com/flyerapp/fulfillment/internal/checkout"
	"github.com/flyerapp/fulfillment/internal/email"
	"github.com/flyerapp/fulfillment/internal/fulfillment"
	"github.com/flyerapp/fulfillment/internal/handler"
	"github.com/flyerapp/fulfillment/internal/orderapi"
	"github.com/flyerapp/fulfillment/internal/payment"
	"github.com/flyerapp/fulfillment/internal/sideeffect"
	"github.com/flyerapp/fulfillment/internal/storage/postgres"
	"github.com/flyerapp/fulfillment/pkg/health"
	"github.com/flyerapp/fulfillment/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// External clients.
	provider := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.MaxRetries)
	orderClient := orderapi.New(cfg.OrderAPI.BaseURL, cfg.OrderAPI.Timeout, cfg.OrderAPI.MaxRetries)

	store, err := assets.NewStore(cfg.TempDir)
	if err != nil {
		return errors.Wrap(err, "create asset store")
	}

	var sender email.Sender = email.Nop{}
	if cfg.Email.From != "" {
		sender, err = email.NewSESSender(ctx, cfg.Email.From)
		if err != nil {
			return errors.Wrap(err, "create email sender")
		}
	} else {
		lg.Info("Email sender disabled, confirmations will be skipped")
	}

	// Domain services.
	fulfillmentRepo := postgres.NewFulfillmentRepository(pool)
	effects := sideeffect.New(sender, orderClient)
	builder := checkout.NewBuilder(provider)

	meter := m.MeterProvider().Meter("flyerapp.fulfillment")
	fulfilled, err := meter.Int64Counter("checkout.fulfillments")
	if err != nil {
		return errors.Wrap(err, "create fulfillment counter")
	}
	orchestrator := fulfillment.NewOrchestrator(
		provider, orderClient, fulfillmentRepo, store, effects, fulfilled)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{PublicBaseURL: cfg.PublicBaseURL},
		builder,
		orchestrator,
		store,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	api := otelhttp.NewHandler(mux, "flyer-fulfillment",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(api,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
