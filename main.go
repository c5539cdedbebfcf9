package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"inventory/internal/config"
	"inventory/internal/database"
	"inventory/internal/handlers"
	"inventory/internal/middleware"
	"inventory/internal/repositories"
	"inventory/internal/services"
	"inventory/pkg/logger"
	"inventory/pkg/rabbitmq"
	"inventory/pkg/tracing"
)

// AppDeps are the collaborators the HTTP app is built from.
type AppDeps struct {
	Service        *services.InventoryService
	DB             handlers.Pinger
	Metrics        *middleware.Metrics
	TracerProvider trace.TracerProvider
}

// NewApp assembles the Fiber app: middleware, informational endpoints and
// the product API under /api.
func NewApp(deps AppDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Inventory Service",
		ErrorHandler: handlers.ErrorHandler,
		// Path and query values end up in span attributes that outlive the request.
		Immutable: true,
	})

	app.Use(requestid.New())
	app.Use(middleware.Tracing(deps.TracerProvider))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}
	app.Use(middleware.RequestLogger())
	app.Use(recover.New())
	app.Use(cors.New())

	handlers.NewHomeHandler(deps.DB).RegisterRoutes(app)
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	api := app.Group("/api")
	handlers.NewProductHandler(deps.Service).RegisterRoutes(api)

	return app
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logger.Init("inventory-service", true)
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	var tracerOpts []sdktrace.TracerProviderOption
	if cfg.Tracing.OTLPEndpoint != "" {
		exporter, err := tracing.NewOTLPExporter(context.Background(), cfg.Tracing.OTLPEndpoint)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create trace exporter")
		}
		tracerOpts = append(tracerOpts, sdktrace.WithBatcher(exporter))
		logger.Logger.Info().Str("endpoint", cfg.Tracing.OTLPEndpoint).Msg("Exporting spans over OTLP")
	}
	tp := tracing.InitTracer(cfg.ServiceName, tracerOpts...)

	// --- Storage ---
	var (
		db     *gorm.DB
		pinger handlers.Pinger
		repo   repositories.ProductRepository
	)
	if cfg.Database.Driver == config.DriverMemory {
		repo = repositories.NewMemoryProductRepository()
	} else {
		db, err = database.Open(cfg.Database)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if cfg.Database.RunMigrations {
			if err := database.Migrate(context.Background(), db, cfg.Database); err != nil {
				logger.Logger.Fatal().Err(err).Msg("Failed to migrate database")
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to get database handle")
		}
		pinger = sqlDB
		repo = repositories.NewGORMProductRepository(db)
	}
	repo = repositories.NewTracingProductRepository(repo, tp)

	// --- Messaging ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled() {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize RabbitMQ client")
		}
		publisher = mqClient

		if cfg.RabbitMQ.Consume {
			err := mqClient.Consume(func(msg amqp.Delivery) error {
				return services.AuditProductEvent(context.Background(), msg.Body)
			})
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to start RabbitMQ consumer")
			}
		}
	}

	// --- HTTP ---
	service := services.NewInventoryService(repo, publisher)
	app := NewApp(AppDeps{
		Service:        service,
		DB:             pinger,
		Metrics:        middleware.NewMetrics(prometheus.NewRegistry()),
		TracerProvider: tp,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", cfg.AppPort).Msg("Starting server")
		serverErr <- app.Listen(cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Logger.Error().Err(err).Msg("Server stopped")
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Logger.Error().Err(err).Msg("Error during Fiber shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := tracing.Shutdown(ctx, tp); err != nil {
		logger.Logger.Error().Err(err).Msg("Error shutting down tracer")
	}
	if mqClient != nil {
		if err := mqClient.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ client")
		}
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing database")
		}
	}

	logger.Logger.Info().Msg("Server gracefully stopped")
}
