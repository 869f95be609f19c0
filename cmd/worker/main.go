package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/photo-orders/internal/app/api"
	ordersmemory "github.com/Apurer/photo-orders/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/photo-orders/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/Apurer/photo-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersstripe "github.com/Apurer/photo-orders/internal/domains/orders/adapters/payments/stripe"
	orderss3 "github.com/Apurer/photo-orders/internal/domains/orders/adapters/storage/s3"
	ordersapp "github.com/Apurer/photo-orders/internal/domains/orders/application"
	ordersports "github.com/Apurer/photo-orders/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/photo-orders/internal/durable/temporal/activities/orders"
	orderworkflows "github.com/Apurer/photo-orders/internal/durable/temporal/workflows/orders"
	platformobservability "github.com/Apurer/photo-orders/internal/platform/observability"
	platformpostgres "github.com/Apurer/photo-orders/internal/platform/postgres"
)

func main() {
	ctx := context.Background()
	const serviceName = "photo-orders-worker"

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
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
		logger.Error("failed to configure payment gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}
	coreService, err := ordersapp.NewService(repo, blobs, gateway, cfg.Prices)
	if err != nil {
		logger.Error("failed to build orders service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	orderService := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	activities := orderactivities.NewActivities(orderService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderCreationTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderCreationWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderCreationWorkflowName})
	w.RegisterActivityWithOptions(activities.CreateOrder, activity.RegisterOptions{Name: orderactivities.CreateOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderCreationTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildOrderRepository(ctx context.Context, cfg api.Config, logger *slog.Logger) (ordersports.Repository, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory order repository")
		return ordersmemory.NewRepository(), func() {}
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("worker failed to connect to postgres (falling back to memory)", slog.String("error", err.Error()))
		return ordersmemory.NewRepository(), func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("worker failed to unwrap postgres connection (falling back to memory)", slog.String("error", err.Error()))
		return ordersmemory.NewRepository(), func() {}
	}
	logger.Info("worker order repository configured with postgres")
	return orderspostgres.NewRepository(db), func() { _ = sqlDB.Close() }
}

func buildBlobStore(ctx context.Context, cfg api.Config, logger *slog.Logger) ordersports.BlobStore {
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
	logger.Info("worker blob store configured with S3", slog.String("bucket", cfg.S3Bucket))
	return store
}
