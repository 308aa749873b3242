package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cupoftea4/pos-mysql/internal/auth"
	"github.com/cupoftea4/pos-mysql/internal/catalog"
	"github.com/cupoftea4/pos-mysql/internal/config"
	"github.com/cupoftea4/pos-mysql/internal/httpapi"
	"github.com/cupoftea4/pos-mysql/internal/logging"
	"github.com/cupoftea4/pos-mysql/internal/orders"
	"github.com/cupoftea4/pos-mysql/internal/ratelimit"
	"github.com/cupoftea4/pos-mysql/internal/receipt"
	"github.com/cupoftea4/pos-mysql/internal/reports"
	"github.com/cupoftea4/pos-mysql/internal/store"
	"github.com/cupoftea4/pos-mysql/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information and exit")
	configPath := flag.String("config", os.Getenv("POS_CONFIG"), "Path to YAML config file")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("pos-server %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("pos-server stopped")
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("tracer shutdown")
		}
	}()

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.DSN(), store.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	}, log.WithField("component", "store"))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if _, err := db.Migrate(); err != nil {
			return err
		}
	}

	limiter := ratelimit.Nop()
	if cfg.Redis.URL != "" {
		client, err := ratelimit.Dial(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.Redis.LoginLimit, cfg.LoginWindow())
		log.WithField("limit", cfg.Redis.LoginLimit).Info("auth rate limiting enabled")
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL())
	router := httpapi.NewRouter(httpapi.Services{
		Auth:     auth.NewService(db, tokens, cfg.Auth.BcryptCost, log.WithField("component", "auth")),
		Catalog:  catalog.NewService(db, log.WithField("component", "catalog")),
		Orders:   orders.NewEngine(orders.NewStoreLedger(db), db, log.WithField("component", "orders")),
		Reports:  reports.NewAggregator(db),
		Receipts: receipt.NewRenderer(cfg.Receipt, time.Local),
		Limiter:  limiter,
		Health:   db.Ping,
	}, httpapi.Options{
		TokenHeader: cfg.Auth.Header,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log.WithField("component", "http"),
	})

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.ListenAddr,
			"driver":  cfg.Database.Driver,
			"version": version,
		}).Info("pos-server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
