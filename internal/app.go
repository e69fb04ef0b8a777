package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	logger_adapter "reid-service/internal/adapters/logger"
	postgres_adapter "reid-service/internal/adapters/postgres"
	rabbitmq_adapter "reid-service/internal/adapters/rabbitmq"
	"reid-service/internal/adapters/rest"
	"reid-service/internal/configs"
	"reid-service/internal/constants"
	"reid-service/internal/core/port"
	"reid-service/internal/core/usecase"

	"reid-service/pkg/fluentlogger"
	"reid-service/pkg/postgres"
	"reid-service/pkg/rabbitmq/rabbitmq_common"
	"reid-service/pkg/rabbitmq/rabbitmq_consumer"
	"reid-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	scrapedRecordsListener port.EventListenerPort
	outcomeProducer        *rabbitmq_producer.Publisher
}

// NewApp is the composition root: every dependency is created and wired here.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.FluentBit.TagPrefix,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Postgres.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	listingStorage, err := postgres_adapter.NewListingStorageAdapter(dbPool, constants.SourceCodes)
	if err != nil {
		appLogger.Error("Failed to create listing storage adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create listing storage adapter: %w", err)
	}

	queueStorage, err := postgres_adapter.NewQueueStorageAdapter(dbPool)
	if err != nil {
		appLogger.Error("Failed to create queue storage adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create queue storage adapter: %w", err)
	}

	rawCaptureStorage, err := postgres_adapter.NewRawCaptureAdapter(dbPool)
	if err != nil {
		appLogger.Error("Failed to create raw capture adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create raw capture adapter: %w", err)
	}

	errorLog, err := postgres_adapter.NewErrorLogAdapter(dbPool)
	if err != nil {
		appLogger.Error("Failed to create error log adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create error log adapter: %w", err)
	}

	appLogger.Info("Postgres storage adapters initialized.", nil)

	producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
	pkgLoggerBridge := rabbitmq_adapter.NewPkgLoggerBridge(producerLogger)

	connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger)
	connManager, err := rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
	if err != nil {
		appLogger.Error("Failed to create connection manager", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

	producerCfg := rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		ExchangeName:             constants.ReidExchange,
		ExchangeType:             "direct",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,

		Logger: pkgLoggerBridge,
	}
	eventProducer, err := rabbitmq_producer.NewPublisher(producerCfg, connManager)
	if err != nil {
		appLogger.Error("Failed to create event producer", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	appLogger.Info("RabbitMQ Event Producer initialized.", nil)

	outcomeReporter, err := rabbitmq_adapter.NewOutcomeReporterAdapter(eventProducer, constants.RoutingKeyReconcileResult)
	if err != nil {
		appLogger.Error("Failed to create outcome reporter adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create outcome reporter adapter: %w", err)
	}
	appLogger.Info("All outgoing adapters initialized.", nil)

	reconcileUseCase := usecase.NewReconcileRecordUseCase(listingStorage, rawCaptureStorage, errorLog, outcomeReporter)
	enqueueUseCase := usecase.NewEnqueueURLsUseCase(queueStorage, constants.BlacklistDomains)
	syncUseCase := usecase.NewSyncQueueUseCase(queueStorage, listingStorage)

	appLogger.Info("All use cases initialized.", nil)

	scrapedConsumerCfg := rabbitmq_consumer.ConsumerConfig{
		Config:              rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		QueueName:           constants.QueueScrapedRecords,
		DurableQueue:        true,
		ExchangeNameForBind: constants.ReidExchange,
		RoutingKeyForBind:   constants.RoutingKeyScrapedRecords,
		PrefetchCount:       appConfig.Consumer.PrefetchCount,
		ConsumerTag:         "scraped-record-reconciler",
		DeclareQueue:        true,

		EnableRetryMechanism: true,
		RetryExchange:        constants.QueueScrapedRecords + "_retry_ex",
		RetryQueue:           constants.QueueScrapedRecords + "_retry_wait",
		RetryTTL:             appConfig.Consumer.RetryTTL,

		FinalDLXExchange:   constants.FinalDLXExchange,
		FinalDLQ:           constants.FinalDLQ,
		FinalDLQRoutingKey: constants.FinalDLQRoutingKey,

		MaxRetries: appConfig.Consumer.MaxRetries,
	}
	scrapedListener, err := rabbitmq_adapter.NewScrapedRecordConsumerAdapter(scrapedConsumerCfg, reconcileUseCase, rawCaptureStorage, baseLogger, connManager)
	if err != nil {
		appLogger.Error("Failed to create Scraped Records listener", err, nil)
		dbPool.Close()
		return nil, err
	}
	appLogger.Info("Scraped Records Listener initialized.", nil)

	reconcileHandlers := rest.NewReconcileHandlers(reconcileUseCase, errorLog)
	queueHandlers := rest.NewQueueHandlers(enqueueUseCase, syncUseCase, queueStorage)

	apiServer := rest.NewServer(appConfig.Rest.Port, reconcileHandlers, queueHandlers, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	application := &App{
		config:                 appConfig,
		dbPool:                 dbPool,
		apiServer:              apiServer,
		scrapedRecordsListener: scrapedListener,
		outcomeProducer:        eventProducer,

		fluentClient: fluentClient,
		logger:       appLogger,
	}

	return application, nil
}

// Run starts all application components and manages their lifecycle.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		if a.apiServer != nil {
			if err := a.apiServer.Stop(context.Background()); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}

		if a.scrapedRecordsListener != nil {
			if err := a.scrapedRecordsListener.Close(); err != nil {
				a.logger.Error("Error closing scraped records listener", err, nil)
			}
		}

		if a.outcomeProducer != nil {
			if err := a.outcomeProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				// stdout only, fluent may already be unreachable
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 1)

	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener_name": name})
		listenerLogger.Info("Starting listener...", nil)

		if err := listener.Start(appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			errorsCh <- fmt.Errorf("%s error: %w", name, err)
		} else {
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}
	}

	wg.Add(1)
	go startListener("Scraped Records Listener", a.scrapedRecordsListener)

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.Port})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down...", nil)
	}

	cancelApp()

	return nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
