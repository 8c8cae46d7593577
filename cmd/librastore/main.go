// cmd/librastore/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"librastore/internal/accounts"
	"librastore/internal/api"
	"librastore/internal/cart"
	"librastore/internal/catalog"
	"librastore/internal/checkout"
	"librastore/internal/config"
	"librastore/internal/journal"
	"librastore/internal/store"
	"librastore/internal/store/filestore"
	"librastore/internal/store/mongostore"
	"librastore/internal/telemetry"
)

const serviceName = "librastore"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("librastore stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, serviceName, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	j, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	books := catalog.NewService(st, j, logger)
	users := accounts.NewService(st, j, logger)
	carts := cart.NewService(st, logger)
	invoices := checkout.NewService(st, j, logger)

	if cfg.Seed {
		if err := seed(ctx, st, books, users, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(api.Deps{
			Store:         st,
			Catalog:       books,
			Accounts:      users,
			Cart:          carts,
			Checkout:      invoices,
			Logger:        logger,
			AuthRateLimit: cfg.AuthRateLimit,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", server.Addr),
			zap.String("backend", cfg.StoreBackend),
			zap.String("env", cfg.Env),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return st, nil
	default:
		st, err := filestore.Open(cfg.DataFile, logger)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		return st, nil
	}
}

// openJournal returns the PostgreSQL journal when a DSN is configured and a
// no-op journal otherwise.
func openJournal(ctx context.Context, cfg config.Config, logger *zap.Logger) (journal.Journal, func(), error) {
	if cfg.JournalDSN == "" {
		logger.Info("journal disabled")
		return journal.Nop{}, func() {}, nil
	}
	pg, err := journal.OpenPostgres(ctx, cfg.JournalDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			logger.Warn("journal close failed", zap.Error(err))
		}
	}, nil
}
