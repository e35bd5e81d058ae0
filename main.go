package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appInvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/application/invoice"
	appPayment "github.com/Zhima-Mochi/minishop-invoicing/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/config"
	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-invoicing/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-invoicing/internal/presentation/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := zaplogger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	zap.ReplaceGlobals(appLogger.Zap())

	systemLogger := logging.WithSystemTrace(appLogger.Zap())

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	counters, histograms := infraobs.Instruments(prometrics.New("", "", prometheus.DefaultRegisterer))
	tel := infraobs.New(oteltrace.New("invoicing"), appLogger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		systemLogger.Fatal("store_init_failed",
			zap.String("driver", string(cfg.StoreDriver)),
			zap.Error(err),
		)
	}
	defer func() { _ = closeStore.Close() }()
	systemLogger.Info("store_ready", zap.String("driver", string(cfg.StoreDriver)))

	// In-memory event bus feeding the asynchronous payment worker
	bus := outbox.NewBus(appLogger, outbox.Config{})

	evaluator := appPayment.NewEvaluatePaymentUseCase(repo, bus, tel)
	invoices := appInvoice.NewService(repo, appLogger)

	workerpresentation.NewPaymentWorker(bus, evaluator, tel).Start()
	bus.Start(ctx)

	handler := httppresentation.NewHandler(evaluator, invoices, bus, tel)
	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}

	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Warn("event_bus_stop_timeout", zap.Error(err))
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openRepository selects the invoice store backend named by cfg.StoreDriver.
func openRepository(ctx context.Context, cfg config.AppConfig) (dominvoice.Repository, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		rdb, err := redis.NewClient(ctx, redis.ConnectionInfo{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			DialTimeout: cfg.Redis.DialTimeout,
			Timeout:     cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return redis.NewInvoiceStore(rdb, cfg.Redis.Prefix), rdb, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.ConnectionInfo{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Username: cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres: migrate: %w", err)
		}
		return postgres.NewInvoiceStore(db), db, nil

	default:
		return memory.NewInvoiceRepository(), closerFunc(func() error { return nil }), nil
	}
}
