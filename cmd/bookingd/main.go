// Command bookingd serves the booking engine over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/booking"
	"github.com/xraph/booking/api"
	audithook "github.com/xraph/booking/audit_hook"
	"github.com/xraph/booking/notify"
	"github.com/xraph/booking/notify/amqp"
	"github.com/xraph/booking/observability"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/payment/hmac"
	"github.com/xraph/booking/payment/stripe"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/store/memory"
	"github.com/xraph/booking/store/postgres"
	"github.com/xraph/booking/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bookingd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []booking.Option{
		booking.WithLogger(logger),
		booking.WithMigrate(!cfg.DisableMigrate),
		booking.WithMaxTxRetries(cfg.MaxTxRetries),
		booking.WithExpirySweepInterval(cfg.ExpirySweepInterval),
		booking.WithExpiryBatchSize(cfg.ExpiryBatchSize),
		booking.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	}
	if len(cfg.StripeWebhookSecrets) > 0 {
		opts = append(opts, booking.WithPaymentProvider(stripe.New(payment.StaticSecrets(cfg.StripeWebhookSecrets))))
	}
	if len(cfg.GatewayWebhookSecrets) > 0 {
		opts = append(opts, booking.WithPaymentProvider(hmac.New(cfg.GatewayName, payment.StaticSecrets(cfg.GatewayWebhookSecrets))))
	}
	if cfg.AuditLog {
		opts = append(opts, booking.WithPlugin(audithook.New(auditLogger(logger), audithook.WithLogger(logger))))
	}

	var publisher *amqp.Notifier
	if cfg.RabbitURL != "" {
		publisher, err = amqp.Dial(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return err
		}
		defer publisher.Close() //nolint:errcheck // best-effort on exit
		opts = append(opts, booking.WithPlugin(notify.NewDispatcher(publisher, notify.WithLogger(logger))))
	} else {
		opts = append(opts, booking.WithPlugin(notify.NewDispatcher(notify.LogNotifier{Logger: logger}, notify.WithLogger(logger))))
	}

	engine := booking.New(st, opts...)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Error("engine stop failed", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := api.New(engine, api.WithLogger(logger)).Router()
	router.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("bookingd listening", "addr", cfg.HTTPAddr, "providers", engine.Providers())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	switch {
	case dsn == "":
		slog.Warn("no database configured, using the in-memory store")
		return memory.New(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(ctx, dsn)
	default:
		return nil, errors.New("unsupported database url scheme")
	}
}

func auditLogger(logger *slog.Logger) audithook.RecorderFunc {
	return func(ctx context.Context, ev *audithook.AuditEvent) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("action", ev.Action),
			slog.String("tenant_id", ev.TenantID),
			slog.String("resource", ev.Resource),
			slog.String("resource_id", ev.ResourceID),
			slog.String("outcome", ev.Outcome),
			slog.String("severity", ev.Severity),
		)
		return nil
	}
}
