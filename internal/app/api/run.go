package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	ordershttp "github.com/Apurer/photo-orders/internal/domains/orders/adapters/http"
	ordersmemory "github.com/Apurer/photo-orders/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/photo-orders/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/Apurer/photo-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersstripe "github.com/Apurer/photo-orders/internal/domains/orders/adapters/payments/stripe"
	orderss3 "github.com/Apurer/photo-orders/internal/domains/orders/adapters/storage/s3"
	ordersworkflows "github.com/Apurer/photo-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/photo-orders/internal/domains/orders/application"
	ordersports "github.com/Apurer/photo-orders/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/photo-orders/internal/platform/observability"
	platformpostgres "github.com/Apurer/photo-orders/internal/platform/postgres"
)

// Run boots the photo orders HTTP API with observability, repositories,
// payments, and workflows wired.
func Run(ctx context.Context) error {
	const serviceName = "photo-orders-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	repo, cleanupRepo := buildOrderRepository(ctx, cfg, logger)
	defer cleanupRepo()

	blobs := buildBlobStore(ctx, cfg, logger)

	gateway, err := ordersstripe.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.SuccessURL, cfg.CancelURL)
	if err != nil {
		return fmt.Errorf("failed to configure payment gateway: %w", err)
	}

	coreService, err := ordersapp.NewService(repo, blobs, gateway, cfg.Prices)
	if err != nil {
		return fmt.Errorf("failed to build orders service: %w", err)
	}
	orderService := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	var orderWorkflows ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, running intake inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orderWorkflows = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	reconciler := ordersapp.NewReconciler(repo, gateway, logger)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	ordershttp.NewHandlers(orderService, orderWorkflows, reconciler).Register(router)

	addr := ":" + cfg.Port
	logger.Info("photo orders API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("photo orders API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func buildOrderRepository(ctx context.Context, cfg Config, logger *slog.Logger) (ordersports.Repository, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory order repository")
		return ordersmemory.NewRepository(), func() {}
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return ordersmemory.NewRepository(), func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to unwrap postgres connection, falling back to memory", slog.String("error", err.Error()))
		return ordersmemory.NewRepository(), func() {}
	}
	logger.Info("order repository configured with postgres")
	return orderspostgres.NewRepository(db), func() { _ = sqlDB.Close() }
}

func buildBlobStore(ctx context.Context, cfg Config, logger *slog.Logger) ordersports.BlobStore {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, falling back to in-memory blob store")
		return ordersmemory.NewBlobStore()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn("failed to load AWS configuration, falling back to in-memory blob store", slog.String("error", err.Error()))
		return ordersmemory.NewBlobStore()
	}
	store, err := orderss3.NewBlobStore(awss3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.AWSRegion)
	if err != nil {
		logger.Warn("failed to configure S3 blob store, falling back to in-memory blob store", slog.String("error", err.Error()))
		return ordersmemory.NewBlobStore()
	}
	logger.Info("blob store configured with S3", slog.String("bucket", cfg.S3Bucket), slog.String("region", cfg.AWSRegion))
	return store
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	logger := workerlog.NewStructuredLogger(effectiveLogger(instruments))
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger,
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
