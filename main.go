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
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/sage/config"
	alertcaserepo "github.com/Ramsey-B/sage/internal/repositories/alertcase"
	commentrepo "github.com/Ramsey-B/sage/internal/repositories/comment"
	evidencerepo "github.com/Ramsey-B/sage/internal/repositories/evidence"
	installationrepo "github.com/Ramsey-B/sage/internal/repositories/installation"
	limitrepo "github.com/Ramsey-B/sage/internal/repositories/limit"
	measurementrepo "github.com/Ramsey-B/sage/internal/repositories/measurement"
	quarantinerepo "github.com/Ramsey-B/sage/internal/repositories/quarantine"
	reviewrepo "github.com/Ramsey-B/sage/internal/repositories/review"
	techniquerepo "github.com/Ramsey-B/sage/internal/repositories/technique"
	techniquealertrepo "github.com/Ramsey-B/sage/internal/repositories/techniquealert"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/evidence"
	"github.com/Ramsey-B/sage/pkg/grouping"
	"github.com/Ramsey-B/sage/pkg/ingest"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/processor"
	"github.com/Ramsey-B/sage/pkg/registry"
	"github.com/Ramsey-B/sage/pkg/review"
	alertroutes "github.com/Ramsey-B/sage/pkg/routes/alert"
	alertcaseroutes "github.com/Ramsey-B/sage/pkg/routes/alertcase"
	commentroutes "github.com/Ramsey-B/sage/pkg/routes/comment"
	healthroutes "github.com/Ramsey-B/sage/pkg/routes/health"
	ingestroutes "github.com/Ramsey-B/sage/pkg/routes/ingest"
	installationroutes "github.com/Ramsey-B/sage/pkg/routes/installation"
	limitroutes "github.com/Ramsey-B/sage/pkg/routes/limit"
	measurementroutes "github.com/Ramsey-B/sage/pkg/routes/measurement"
	quarantineroutes "github.com/Ramsey-B/sage/pkg/routes/quarantine"
	reviewroutes "github.com/Ramsey-B/sage/pkg/routes/review"
	techniqueroutes "github.com/Ramsey-B/sage/pkg/routes/technique"
	"github.com/Ramsey-B/sage/pkg/scope"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	sqlxDB, err := connectDatabase(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer sqlxDB.Close()

	db := database.NewDatabaseInstance(sqlxDB, logger)

	// Repositories
	techniqueRepo := techniquerepo.NewRepository(db, logger)
	limitRepo := limitrepo.NewRepository(db, logger)
	installationRepo := installationrepo.NewRepository(db, logger)
	measurementRepo := measurementrepo.NewRepository(db, logger)
	alertRepo := techniquealertrepo.NewRepository(db, logger)
	caseRepo := alertcaserepo.NewRepository(db, logger)
	commentRepo := commentrepo.NewRepository(db, logger)
	evidenceRepo := evidencerepo.NewRepository(db, logger)
	reviewRepo := reviewrepo.NewRepository(db, logger)
	quarantineRepo := quarantinerepo.NewRepository(db, logger)

	// Event emission
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()
	emitter := events.NewEmitter(producer, logger)

	// Services
	registrySvc := registry.NewService(techniqueRepo, limitRepo, logger)
	scopeResolver := scope.NewResolver(installationRepo, logger)
	ingestSvc := ingest.NewService(registrySvc, scopeResolver, measurementRepo, quarantineRepo, cfg.IngestBatchSize, logger)
	groupingSvc := grouping.NewService(alertRepo, caseRepo, emitter, grouping.WindowPolicy{
		Window:      cfg.CaseWindow,
		CalendarDay: cfg.CaseWindowCalendarDay,
	}, logger)
	evidenceSvc := evidence.NewService(commentRepo, evidenceRepo, caseRepo, alertRepo, measurementRepo, emitter, logger)
	reviewSvc := review.NewService(reviewRepo, commentRepo, emitter, logger)

	if err := registerDependencies(logger,
		techniqueRepo, limitRepo, installationRepo, measurementRepo, alertRepo,
		caseRepo, commentRepo, evidenceRepo, reviewRepo, quarantineRepo,
		registrySvc, scopeResolver, ingestSvc, groupingSvc, evidenceSvc, reviewSvc,
	); err != nil {
		logger.WithError(err).Error("failed to build DI container")
		os.Exit(1)
	}

	rowProcessor := processor.NewRowProcessor(ingestSvc, evidenceSvc, quarantineRepo, logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(cfg, logger, rowProcessor.ProcessMessage)
	}

	// Migrations and the consumer come up through the startup sequence so a
	// slow database delays the consumer instead of failing it
	boot := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&startup.FuncDependency{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			if err := sqlxDB.PingContext(ctx); err != nil {
				return err
			}
			return runMigrations(cfg, logger, sqlxDB)
		},
	})
	if consumer != nil {
		boot.AddDependency(&startup.FuncDependency{
			Name:  "kafka-consumer",
			Needs: []string{"database"},
			StartFunc: func(ctx context.Context) error {
				return consumer.Start(ctx)
			},
			StopFunc: func(ctx context.Context) error {
				return consumer.Stop()
			},
		})
	}

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	e := buildServer(cfg, logger)

	checker := healthroutes.NewChecker(sqlxDB, healthConsumer(consumer), version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.WithField("port", cfg.Port).Infof("%s listening on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server stopped")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	checker.SetReady(false)
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down server")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to stop dependencies")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.TracingOTLPProtocol == "console" {
		// Local development sink; spans are batched but go nowhere
		exporter = &exporters.ConsoleExporter{}
	} else {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}

func connectDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	svc := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return svc.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(
	logger ectologger.Logger,
	techniqueRepo *techniquerepo.Repository,
	limitRepo *limitrepo.Repository,
	installationRepo *installationrepo.Repository,
	measurementRepo *measurementrepo.Repository,
	alertRepo *techniquealertrepo.Repository,
	caseRepo *alertcaserepo.Repository,
	commentRepo *commentrepo.Repository,
	evidenceRepo *evidencerepo.Repository,
	reviewRepo *reviewrepo.Repository,
	quarantineRepo *quarantinerepo.Repository,
	registrySvc *registry.Service,
	scopeResolver *scope.Resolver,
	ingestSvc *ingest.Service,
	groupingSvc *grouping.Service,
	evidenceSvc *evidence.Service,
	reviewSvc *review.Service,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*techniquerepo.Repository](container, techniqueRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*limitrepo.Repository](container, limitRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*installationrepo.Repository](container, installationRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*measurementrepo.Repository](container, measurementRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*techniquealertrepo.Repository](container, alertRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*alertcaserepo.Repository](container, caseRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*commentrepo.Repository](container, commentRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*evidencerepo.Repository](container, evidenceRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reviewrepo.Repository](container, reviewRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*quarantinerepo.Repository](container, quarantineRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*registry.Service](container, registrySvc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*scope.Resolver](container, scopeResolver); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ingest.Service](container, ingestSvc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*grouping.Service](container, groupingSvc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*evidence.Service](container, evidenceSvc); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*review.Service](container, reviewSvc)
}

func buildServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	api := e.Group("/api/v1")
	techniqueroutes.Register(api.Group("/techniques"))
	limitroutes.Register(api.Group("/limits"))
	installationroutes.Register(api.Group("/installations"))
	ingestroutes.Register(api.Group("/ingest"))
	measurementroutes.Register(api.Group("/measurements"))
	alertroutes.Register(api.Group("/alerts"))
	alertcaseroutes.Register(api.Group("/cases"))
	commentroutes.Register(api.Group("/comments"))
	reviewroutes.Register(api.Group("/reviews"))
	reviewroutes.RegisterReviewers(api.Group("/reviewers"))
	reviewroutes.RegisterDimensions(api.Group("/dimensions"))
	quarantineroutes.Register(api.Group("/quarantine"))

	return e
}

// healthConsumer avoids handing the checker a typed nil
func healthConsumer(c *kafka.Consumer) interface{ Health() bool } {
	if c == nil {
		return nil
	}
	return c
}
