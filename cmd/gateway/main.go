package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	cartapp "github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	carthttp "github.com/dwikikusuma/storefront-gateway/internal/cart/httpapi"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/infra/memory"
	cartpg "github.com/dwikikusuma/storefront-gateway/internal/cart/infra/postgres"

	catalogapp "github.com/dwikikusuma/storefront-gateway/internal/catalog/app"
	cataloghttp "github.com/dwikikusuma/storefront-gateway/internal/catalog/httpapi"
	catalogadapter "github.com/dwikikusuma/storefront-gateway/internal/catalog/infra/adapter"

	checkoutapp "github.com/dwikikusuma/storefront-gateway/internal/checkout/app"
	checkouthttp "github.com/dwikikusuma/storefront-gateway/internal/checkout/httpapi"
	checkoutadapter "github.com/dwikikusuma/storefront-gateway/internal/checkout/infra/adapter"

	"github.com/dwikikusuma/storefront-gateway/internal/commerce"
	"github.com/dwikikusuma/storefront-gateway/internal/server"
	"github.com/dwikikusuma/storefront-gateway/pkg/config"
	"github.com/dwikikusuma/storefront-gateway/pkg/logger"
	"github.com/dwikikusuma/storefront-gateway/pkg/postgres"
	"github.com/dwikikusuma/storefront-gateway/pkg/shutdown"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "gateway",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, closeStore, err := openCartStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := commerce.New(commerce.Config{
		BaseURL:     cfg.Commerce.BaseURL,
		AccessToken: cfg.Commerce.AccessToken,
		Timeout:     cfg.Commerce.Timeout,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	// Cart
	cartSvc := cartapp.NewService(store, client, cartapp.NewBroadcaster(), log)

	// Catalog
	catalogSvc := catalogapp.NewService(catalogadapter.NewCommerceSource(client))

	// Checkout (adapters)
	cartReader := checkoutadapter.NewCartServiceReader(cartSvc)
	gateway := checkoutadapter.NewCommerceGateway(client)
	checkoutSvc := checkoutapp.NewService(cartReader, gateway, client, cfg.QuoteConcurrency, log)

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Options{
		Logger:      log,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Ready:       cartSvc.Ping,
	},
		carthttp.NewHandler(cartSvc),
		checkouthttp.NewHandler(checkoutSvc),
		cataloghttp.NewHandler(catalogSvc),
	)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Cart event streams stay open; no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	grpcServer, health := server.NewGRPCServer()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("grpc starting", slog.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		health.Shutdown()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()

		if err := httpServer.Shutdown(stopCtx); err != nil {
			log.Error("http shutdown error", slog.Any("err", err))
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopCtx.Done():
			log.Warn("graceful stop timeout, forcing stop")
			grpcServer.Stop()
		case <-stopped:
		}
		return nil
	})

	return g.Wait()
}

// openCartStore returns the configured cart store and a func releasing it.
func openCartStore(ctx context.Context, cfg config.Config, log *slog.Logger) (cartapp.CartStore, func(), error) {
	if cfg.CartStore != config.StorePostgres {
		log.Info("using in-memory cart store")
		return memory.NewCartStore(), func() {}, nil
	}

	db, err := postgres.Open(postgres.Config{
		Host:    cfg.Postgres.Host,
		Port:    cfg.Postgres.Port,
		User:    cfg.Postgres.User,
		Pass:    cfg.Postgres.Pass,
		DB:      cfg.Postgres.DB,
		SSLMode: cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}

	repo := cartpg.NewCartRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migrate: %w", err)
	}

	log.Info("using postgres cart store", slog.String("host", cfg.Postgres.Host), slog.String("db", cfg.Postgres.DB))
	return repo, closeDB(db, log), nil
}

func closeDB(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Error("db close error", slog.Any("err", err))
		}
	}
}
