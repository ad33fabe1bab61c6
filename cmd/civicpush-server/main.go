// Package main provides the civicpush server executable with HTTP API and
// background activation worker.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/adapters/memory"
	"github.com/coregx/civicpush/adapters/redis"
	"github.com/coregx/civicpush/adapters/relica"
	"github.com/coregx/civicpush/cmd/civicpush-server/internal/api"
	"github.com/coregx/civicpush/cmd/civicpush-server/internal/config"
	"github.com/coregx/civicpush/cmd/civicpush-server/internal/logging"
	"github.com/coregx/civicpush/cmd/civicpush-server/internal/metrics"
	"github.com/coregx/civicpush/retry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	zl, err := logging.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}
}

// stores is the set of repositories selected by configuration.
type stores struct {
	devices     civicpush.DeviceRepository
	messages    civicpush.MessageRepository
	activations civicpush.ActivationRepository
	closers     []func() error
}

func (s *stores) Close() {
	for _, closeFn := range s.closers {
		_ = closeFn()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger civicpush.Logger) (*stores, error) {
	s := &stores{}
	mem := memory.NewRepositories()
	s.devices, s.messages, s.activations = mem.Device, mem.Message, mem.Activation

	if cfg.UsesSQL() {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.closers = append(s.closers, db.Close)

		if cfg.Database.Driver == "sqlite3" {
			db.SetMaxOpenConns(1)
		}
		if err := db.PingContext(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		logger.Infof("Database connection established: driver=%s", cfg.Database.Driver)

		if cfg.Database.AutoMigrate {
			if err := civicpush.ApplyMigrations(ctx, db, cfg.Database.Driver); err != nil {
				s.Close()
				return nil, err
			}
			logger.Info("Database schema up to date")
		}

		repos := relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
		if cfg.Store == config.StoreSQL {
			s.messages, s.activations = repos.Message, repos.Activation
		}
		if cfg.EffectiveDeviceStore() == config.StoreSQL {
			s.devices = repos.Device
		}
	}

	if cfg.EffectiveDeviceStore() == config.StoreRedis {
		client := redis.NewClient(cfg.Redis.Addr)
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.devices = redis.NewDeviceRepositoryWithPrefix(client, cfg.Redis.Prefix)
		logger.Infof("Redis connection established: addr=%s", cfg.Redis.Addr)
	}

	logger.Infof("Stores initialized: messages=%s, devices=%s", cfg.Store, cfg.EffectiveDeviceStore())
	return s, nil
}

func run(cfg *config.Config, zl *zap.Logger) error {
	logger := logging.NewLogger(zl)
	logger.Infof("Starting civicpush server v%s", api.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var next civicpush.NotificationService = &civicpush.NoOpNotificationService{}
	if cfg.Worker.EnableNotifications {
		next = civicpush.NewLoggingNotificationService(logger)
	}
	notifications := metrics.NewNotificationService(m, next)

	// No push transport credentials are configured; pushes are logged.
	dispatcher, err := civicpush.NewDispatcher(
		civicpush.WithDeliveryProvider(civicpush.NewLoggingProvider(logger)),
		civicpush.WithDispatcherDevices(st.devices),
		civicpush.WithDispatcherLogger(logger),
		civicpush.WithDispatcherNotifications(notifications),
	)
	if err != nil {
		return err
	}

	strategy := retry.DefaultStrategy()
	strategy.MaxAttempts = cfg.Worker.MaxAttempts

	worker, err := civicpush.NewActivationWorker(
		civicpush.WithWorkerRepositories(st.messages, st.activations),
		civicpush.WithWorkerDispatcher(dispatcher),
		civicpush.WithWorkerLogger(logger),
		civicpush.WithRetryStrategy(strategy),
		civicpush.WithBatchSize(cfg.Worker.BatchSize),
		civicpush.WithWorkerNotifications(notifications),
	)
	if err != nil {
		return err
	}
	logger.Debugf("%s", worker.RetrySchedule())

	deviceRegistry, err := civicpush.NewDeviceRegistry(
		civicpush.WithRegistryDevices(st.devices),
		civicpush.WithRegistryLogger(logger),
		civicpush.WithRegistryNotifications(notifications),
	)
	if err != nil {
		return err
	}

	inbox, err := civicpush.NewInbox(
		civicpush.WithInboxMessages(st.messages),
		civicpush.WithInboxLogger(logger),
	)
	if err != nil {
		return err
	}

	publisher, err := civicpush.NewPublisher(
		civicpush.WithPublisherMessages(st.messages),
		civicpush.WithActivationHandler(worker),
		civicpush.WithPublisherLogger(logger),
	)
	if err != nil {
		return err
	}

	go worker.Run(ctx, cfg.Worker.Interval)

	handler := api.NewHandler(inbox, deviceRegistry, publisher, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(m.Middleware)
	r.Use(requestLogger(logger))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	cancel() // Stop worker
	logger.Info("Server stopped gracefully")
	return nil
}

// requestLogger logs HTTP requests.
func requestLogger(logger civicpush.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debugf("%s %s - %v (request_id=%s)", r.Method, r.URL.Path, time.Since(start), middleware.GetReqID(r.Context()))
		})
	}
}
