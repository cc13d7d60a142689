package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Mehrads/Brands-Relationships/config"
	"github.com/Mehrads/Brands-Relationships/internal/repositories/reviewitem"
	"github.com/Mehrads/Brands-Relationships/pkg/database"
	"github.com/Mehrads/Brands-Relationships/pkg/discovery"
	"github.com/Mehrads/Brands-Relationships/pkg/events"
	"github.com/Mehrads/Brands-Relationships/pkg/extraction"
	"github.com/Mehrads/Brands-Relationships/pkg/graph"
	"github.com/Mehrads/Brands-Relationships/pkg/inference"
	"github.com/Mehrads/Brands-Relationships/pkg/kafka"
	"github.com/Mehrads/Brands-Relationships/pkg/logger"
	"github.com/Mehrads/Brands-Relationships/pkg/middleware"
	"github.com/Mehrads/Brands-Relationships/pkg/resolver"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/analysis"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/brand"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/graphview"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/health"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/review"
	"github.com/Mehrads/Brands-Relationships/pkg/startup"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, flush := logger.New(cfg.LogLevel, cfg.PrettyLogs)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingOTLPEndpoint,
		Protocol:    cfg.TracingOTLPProtocol,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down tracing")
		}
	}()

	graphClient, err := graph.NewClient(graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
		Timeout:  cfg.GraphDBTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create graph client: %w", err)
	}

	var db *sqlx.DB
	var producer *kafka.Producer

	boot := startup.NewStartup(log, cfg.StartupMaxAttempts)
	boot.AddDependency(&startup.Dependency{
		Name: "graph",
		StartFunc: func(ctx context.Context) error {
			if err := graphClient.VerifyConnectivity(ctx); err != nil {
				return err
			}
			return graphClient.EnsureConstraints(ctx)
		},
		StopFunc: graphClient.Close,
	})

	if cfg.DatabaseEnabled() {
		boot.AddDependency(&startup.Dependency{
			Name: "database",
			StartFunc: func(ctx context.Context) error {
				conn, err := database.Connect(database.Config{
					Driver:          cfg.DatabaseDriver,
					Host:            cfg.DatabaseHost,
					Port:            cfg.DatabasePort,
					UserName:        cfg.DatabaseUserName,
					Password:        cfg.DatabasePassword,
					Name:            cfg.DatabaseName,
					SSLMode:         cfg.DatabaseSSLMode,
					MaxOpenConns:    cfg.DatabaseMaxOpenConns,
					MaxIdleConns:    cfg.DatabaseMaxIdleConns,
					ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
				}, log)
				if err != nil {
					return err
				}
				db = conn

				migrations := database.NewMigrationService(log, &database.MigrationConfig{
					MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
					Version:             uint(cfg.DatabaseMigrationVersion),
					Force:               cfg.DatabaseMigrationForce,
				})
				return migrations.Migrate(cfg.DatabaseName, db)
			},
			StopFunc: func(ctx context.Context) error {
				if db == nil {
					return nil
				}
				return db.Close()
			},
		})
	}

	if cfg.KafkaEnabled() {
		boot.AddDependency(&startup.Dependency{
			Name: "kafka",
			StartFunc: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, log)
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
	}

	if err := boot.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := boot.Stop(stopCtx); err != nil {
			log.WithError(err).Error("Failed to stop dependencies")
		}
	}()

	searcher := discovery.NewTavilyClient(discovery.TavilyConfig{
		APIKey:  cfg.TavilyAPIKey,
		BaseURL: cfg.TavilyBaseURL,
		Timeout: cfg.DiscoveryTimeout,
	}, log)

	classifier := inference.NewOpenRouterClassifier(inference.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.InferenceModel,
		Timeout: cfg.InferenceTimeout,
	}, log)

	extractor := extraction.NewLLMExtractor(extraction.LLMConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.InferenceModel,
		Timeout: cfg.InferenceTimeout,
	}, log)

	store := graph.NewStore(graphClient, log)
	engine := resolver.NewResolver(store, searcher, classifier, extractor, log, resolver.Config{
		ConfidenceThreshold:    cfg.ConfidenceThreshold,
		LowConfidenceThreshold: cfg.LowConfidenceThreshold,
		WorkerCount:            cfg.ResolverWorkerCount,
		MaxSearchResults:       cfg.MaxSearchResults,
		WriteRetries:           cfg.GraphDBWriteRetries,
	})

	emitter := events.NewEmitter(producer, log)

	var reviews *reviewitem.Repository
	if db != nil && cfg.ReviewQueueEnabled {
		reviews = reviewitem.NewRepository(db, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(log)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(log))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(graphClient, db, version)
	checker.RegisterRoutes(e)

	entities := graph.NewEntityService(graphClient, log)
	relationships := graph.NewRelationshipService(graphClient, log)
	queries := graph.NewQueryService(graphClient, log)

	api := e.Group("/api/v1")
	analysis.NewHandler(engine, reviews, emitter, log).RegisterRoutes(api)
	brand.NewHandler(entities, relationships, log).RegisterRoutes(api)
	graphview.NewHandler(queries, relationships, log).RegisterRoutes(api)
	if reviews != nil {
		review.NewHandler(reviews, emitter, log).RegisterRoutes(api)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
