package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/catalog-service/internal/adapter/handler"
	"github.com/rl1809/catalog-service/internal/adapter/inventory"
	"github.com/rl1809/catalog-service/internal/adapter/messaging"
	"github.com/rl1809/catalog-service/internal/adapter/storage"
	"github.com/rl1809/catalog-service/internal/config"
	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
	"github.com/rl1809/catalog-service/internal/observability"
	"github.com/rl1809/catalog-service/internal/port"
)

const serviceVersion = "1.0.0"

func newServeCmd(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers and the inventory event consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, err := observability.NewLogger(cfg.LogLevel, domain.ServiceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName:    domain.ServiceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.Otel.Endpoint,
		Insecure:       cfg.Otel.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// Initialize store
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.close()
	if migrate {
		if err := store.migrate(ctx); err != nil {
			return err
		}
	}
	logger.Info("catalog store ready", zap.String("driver", cfg.Store.Driver))

	// Initialize inventory client
	inv, err := inventory.Dial(cfg.Inventory.Addr)
	if err != nil {
		return err
	}
	defer inv.Close()

	// Initialize services
	resolver := service.NewCategoryResolver(store.repo, logger)
	saga := service.NewProductSaga(store.repo, resolver, inv, logger, cfg.Inventory.Timeout)
	aggregator := service.NewInventoryAggregator(inv, logger, cfg.Inventory.Timeout)
	products := service.NewProductService(store.repo, saga, resolver, aggregator, logger)
	categories := service.NewCategoryService(store.repo, logger)
	deactivation := service.NewDeactivationHandler(store.repo, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	// Start inventory event consumer
	var rdb *redis.Client
	if len(cfg.Kafka.Brokers) > 0 {
		var idem port.CacheRepository
		if cfg.Redis.Addr != "" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, PoolSize: 20})
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			idem = storage.NewRedisAdapter(rdb)
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		}

		reader := messaging.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group)
		consumer := messaging.NewConsumer(logger.Named("consumer"), reader, deactivation, idem)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("consuming inventory deletions", zap.String("topic", cfg.Kafka.Topic))
			if err := consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("consumer: %w", err)
			}
		}()
	}

	// Start gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer = handler.NewGRPCServer(handler.NewGRPCHandler(products, deactivation, logger))
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	// Start HTTP server
	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler.NewHTTPHandler(products, categories, logger).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("component failed", zap.Error(runErr))
	}

	logger.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", zap.Error(err))
		}
		logger.Info("HTTP server stopped")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
	}

	// The consumer only exits once ctx is cancelled.
	cancel()
	wg.Wait()

	if rdb != nil {
		rdb.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	logger.Info("connections closed")
	return runErr
}
