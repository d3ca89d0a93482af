package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/labflow/sanidad/config"
	"github.com/labflow/sanidad/internal/handlers"
	customerrepo "github.com/labflow/sanidad/internal/repositories/customer"
	jornadarepo "github.com/labflow/sanidad/internal/repositories/jornada"
	poolrepo "github.com/labflow/sanidad/internal/repositories/pool"
	techniquerepo "github.com/labflow/sanidad/internal/repositories/technique"
	temperaturerepo "github.com/labflow/sanidad/internal/repositories/temperature"
	troparepo "github.com/labflow/sanidad/internal/repositories/tropa"
	jornadasvc "github.com/labflow/sanidad/internal/services/jornada"
	poolsvc "github.com/labflow/sanidad/internal/services/pool"
	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/events"
	"github.com/labflow/sanidad/pkg/health"
	"github.com/labflow/sanidad/pkg/kafka"
	"github.com/labflow/sanidad/pkg/middleware"
	"github.com/labflow/sanidad/pkg/pooling"
	"github.com/labflow/sanidad/pkg/startup"
	"github.com/labflow/sanidad/pkg/tracing"
	"github.com/labflow/sanidad/pkg/tracing/exporters"
)

var version = "dev"

// dependency adapts a start/stop pair to the startup graph
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.WithField("version", version).Infof("Starting %s", cfg.AppName)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to shut down tracer provider")
			}
		}()
	}

	var db database.DB
	var sqlxDB *sqlx.DB
	var producer *kafka.Producer
	var checker *health.Checker

	e := newEcho(cfg, logger)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)
			conn, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			sqlxDB = conn
			db = database.NewDatabaseInstance(conn, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})

	boot.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
	})

	boot.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			if !cfg.KafkaEnabled {
				logger.Info("Kafka disabled, lifecycle events will not be published")
				return nil
			}
			producerConfig := kafka.DefaultProducerConfig()
			producerConfig.Brokers = cfg.KafkaBrokers
			producerConfig.Topic = cfg.KafkaOutputTopic
			producerConfig.BatchSize = cfg.KafkaBatchSize
			producerConfig.BatchTimeout = time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond
			producerConfig.RequiredAcks = cfg.KafkaRequiredAcks
			producerConfig.Compression = cfg.KafkaCompression

			p, err := kafka.NewProducer(producerConfig, logger)
			if err != nil {
				return err
			}
			producer = p
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer == nil {
				return nil
			}
			return producer.Close()
		},
	})

	boot.AddDependency(&dependency{
		name:      "http-server",
		dependsOn: []string{"database", "migrations", "kafka"},
		start: func(ctx context.Context) error {
			checker = health.NewChecker(db, version)
			registerRoutes(e, cfg, db, producer, checker, logger)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
			}

			go func() {
				if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
					cancel()
				}
			}()

			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newEcho(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomw.Recover())

	return e
}

func registerRoutes(
	e *echo.Echo,
	cfg config.Config,
	db database.DB,
	producer *kafka.Producer,
	checker *health.Checker,
	logger ectologger.Logger,
) {
	jornadas := jornadarepo.NewRepository(db, logger)
	tropas := troparepo.NewRepository(db, logger)
	pools := poolrepo.NewRepository(db, logger)
	temperatures := temperaturerepo.NewRepository(db, logger)
	customers := customerrepo.NewRepository(db, logger)
	techniques := techniquerepo.NewRepository(db, logger)

	emitter := events.NewEmitter(producer, logger)

	allocator := pooling.NewAllocator()
	allocator.SampleWeightGrams = cfg.SampleWeightGrams
	allocator.MinLastPoolSamples = cfg.MinLastPoolSamples

	jornadaService := jornadasvc.NewService(db, jornadas, tropas, pools, temperatures, allocator, emitter, logger)
	jornadaService.BathTempMin = cfg.BathTempMinCelsius
	jornadaService.BathTempMax = cfg.BathTempMaxCelsius
	jornadaService.PoolSizeNormal = cfg.PoolSizeNormal
	jornadaService.PoolSizeSuspect = cfg.PoolSizeSuspect

	poolService := poolsvc.NewService(pools, jornadas, emitter, logger)

	api := e.Group("/api/v1")
	handlers.NewJornadaHandler(jornadaService, logger).Register(api.Group("/jornadas"))
	handlers.NewTropaHandler(jornadaService, logger).Register(api.Group("/tropas"))
	handlers.NewPoolHandler(poolService, logger).Register(api.Group("/pools"))
	handlers.NewCustomerHandler(customers).Register(api.Group("/customers"))
	handlers.NewTechniqueHandler(techniques).Register(api.Group("/techniques"))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.TracingOTLPEndpoint == "" {
		exporter = exporters.NewConsoleExporter()
	} else {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}
