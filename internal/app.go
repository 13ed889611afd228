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
	"time"

	"catalog-service/internal/adapters/filestore"
	logger_adapter "catalog-service/internal/adapters/logger"
	"catalog-service/internal/adapters/memory"
	postgres_adapter "catalog-service/internal/adapters/postgres"
	rabbitmq_adapter "catalog-service/internal/adapters/rabbitmq"
	"catalog-service/internal/adapters/rest"
	"catalog-service/internal/configs"
	"catalog-service/internal/constants"
	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"
	"catalog-service/internal/core/usecase"
	"catalog-service/internal/renderer"
	"catalog-service/internal/schema"
	fluentlogger "catalog-service/pkg/fluent_logger"
	"catalog-service/pkg/postgres"
	"catalog-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-service/pkg/rabbitmq/rabbitmq_consumer"
	"catalog-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the catalog service process.
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort
	pages        *page.Registry

	connManager           *rabbitmq_common.ConnectionManager
	filterEventsProducer  *rabbitmq_producer.Publisher
	listingEventsListener port.EventListenerPort
}

// NewApp is the composition root: every adapter and use case is created and wired here.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- loggers ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   appConfig.StdoutLogger.IsJSON,
		UseColor: !appConfig.StdoutLogger.IsJSON,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
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
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	application := &App{
		config:       appConfig,
		fluentClient: fluentClient,
		logger:       appLogger,
	}
	// Undo whatever was opened so far when a later step fails.
	ok := false
	defer func() {
		if !ok {
			application.release()
			if fluentClient != nil {
				fluentClient.Close()
			}
		}
	}()

	// --- core ---
	schemas, err := schema.NewRegistry()
	if err != nil {
		appLogger.Error("Failed to load filter schemas", err, nil)
		return nil, fmt.Errorf("failed to load filter schemas: %w", err)
	}
	pages := page.NewRegistry(baseLogger, nil)
	application.pages = pages
	appLogger.Info("Filter schemas loaded.", port.Fields{"categories": len(schemas.Categories())})

	// --- storage ---
	var (
		listings     port.ListingRepositoryPort
		savedFilters port.SavedFilterRepositoryPort
		seedMemory   bool
	)
	if appConfig.Database.URL != "" {
		dbPool, err := postgres.NewClient(context.Background(), postgres.Config{
			DatabaseURL: appConfig.Database.URL,
			MaxConns:    int32(appConfig.Database.MaxConns),
		})
		if err != nil {
			appLogger.Error("Failed to connect to PostgreSQL", err, nil)
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		application.dbPool = dbPool
		appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

		if err := postgres_adapter.Migrate(context.Background(), dbPool); err != nil {
			appLogger.Error("Failed to migrate PostgreSQL schema", err, nil)
			return nil, err
		}
		listingRepo, err := postgres_adapter.NewListingRepository(dbPool)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres listing repository: %w", err)
		}
		savedRepo, err := postgres_adapter.NewSavedFilterRepository(dbPool)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres saved filter repository: %w", err)
		}
		listings, savedFilters = listingRepo, savedRepo
		appLogger.Info("Postgres storage adapters initialized.", nil)
	} else {
		store, err := filestore.NewSavedFilterStore(appConfig.Pages.SavedFiltersPath)
		if err != nil {
			appLogger.Error("Failed to open saved filter store", err, port.Fields{"path": appConfig.Pages.SavedFiltersPath})
			return nil, err
		}
		listings, savedFilters = memory.NewListingRepository(), store
		seedMemory = true
		appLogger.Info("In-memory listing storage initialized.", port.Fields{"saved_filters_path": appConfig.Pages.SavedFiltersPath})
	}

	// --- outgoing events ---
	var filterEvents port.FilterEventPublisherPort
	if appConfig.RabbitMQ.URL != "" {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL}, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		application.connManager = connManager
		appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

		producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.FilterEventsExchange,
			ExchangeType:             "topic",
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
		}, connManager)
		if err != nil {
			appLogger.Error("Failed to create filter events producer", err, nil)
			return nil, fmt.Errorf("failed to create filter events producer: %w", err)
		}
		application.filterEventsProducer = producer

		adapter, err := rabbitmq_adapter.NewFilterEventsAdapter(producer)
		if err != nil {
			return nil, err
		}
		filterEvents = adapter
		appLogger.Info("RabbitMQ filter events producer initialized.", nil)
	} else {
		appLogger.Warn("RABBITMQ_URL is not set, filter events are not published and listings are not consumed", nil)
	}

	// --- use cases ---
	pageSize := appConfig.Pages.DefaultPageSize
	listCategoriesUseCase := usecase.NewListCategoriesUseCase(schemas)
	getFilterSchemaUseCase := usecase.NewGetFilterSchemaUseCase(schemas)
	getFilterOptionsUseCase := usecase.NewGetFilterOptionsUseCase(schemas, listings)
	ingestListingUseCase := usecase.NewIngestListingUseCase(schemas, listings, pages)

	openPageUseCase := usecase.NewOpenPageUseCase(schemas, listings, savedFilters, pages, pageSize)
	setFilterUseCase := usecase.NewSetFilterUseCase(schemas, pages, filterEvents, pageSize)
	resetFiltersUseCase := usecase.NewResetFiltersUseCase(pages, filterEvents, pageSize)
	getPageViewUseCase := usecase.NewGetPageViewUseCase(pages)
	getActiveFiltersUseCase := usecase.NewGetActiveFiltersUseCase(pages)
	closePageUseCase := usecase.NewClosePageUseCase(pages)

	saveFiltersUseCase := usecase.NewSaveFiltersUseCase(pages, savedFilters, filterEvents)
	listSavedFiltersUseCase := usecase.NewListSavedFiltersUseCase(schemas, savedFilters)
	appLogger.Info("All use cases initialized.", nil)

	if seedMemory {
		if err := seedCatalog(baseLogger, ingestListingUseCase); err != nil {
			appLogger.Error("Failed to seed the in-memory catalog", err, nil)
			return nil, err
		}
	}

	// --- incoming events ---
	if application.connManager != nil {
		listingConsumerCfg := rabbitmq_consumer.ConsumerConfig{
			Config:                 rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			QueueName:              constants.ListingPublishedQueue,
			DeclareQueue:           true,
			DurableQueue:           true,
			ExchangeNameForBind:    constants.ListingsExchange,
			DeclareExchangeForBind: true,
			ExchangeTypeForBind:    "direct",
			DurableExchangeForBind: true,
			RoutingKeyForBind:      constants.ListingPublishedRoutingKey,
			PrefetchCount:          1,
			ConsumerTag:            "catalog-listing-ingest",

			EnableRetryMechanism: true,
			RetryExchange:        constants.ListingsRetryExchange,
			RetryQueue:           constants.ListingsRetryQueue,
			RetryTTL:             int(appConfig.RabbitMQ.RetryTTL.Milliseconds()),
			FinalDLXExchange:     constants.ListingsFinalDLX,
			FinalDLQ:             constants.ListingsFinalDLQ,
			FinalDLQRoutingKey:   constants.ListingPublishedRoutingKey,
			MaxRetries:           appConfig.RabbitMQ.MaxRetries,
		}
		listener, err := rabbitmq_adapter.NewListingConsumerAdapter(
			listingConsumerCfg,
			ingestListingUseCase,
			baseLogger,
			appConfig.RabbitMQ.ListingBatchSize,
			appConfig.RabbitMQ.ListingBatchTimeout,
			application.connManager,
		)
		if err != nil {
			appLogger.Error("Failed to create listing events listener", err, nil)
			return nil, err
		}
		application.listingEventsListener = listener
		appLogger.Info("Listing Events Listener initialized.", port.Fields{"batch_size": appConfig.RabbitMQ.ListingBatchSize})
	}

	// --- REST API ---
	catalogHandlers := rest.NewCatalogHandler(listCategoriesUseCase, getFilterSchemaUseCase, getFilterOptionsUseCase, listSavedFiltersUseCase, ingestListingUseCase)
	pageHandlers := rest.NewPageHandler(openPageUseCase, setFilterUseCase, resetFiltersUseCase, getPageViewUseCase, getActiveFiltersUseCase, closePageUseCase, saveFiltersUseCase, pageSize)
	htmlHandlers := rest.NewHTMLHandler(openPageUseCase, setFilterUseCase, resetFiltersUseCase, getFilterOptionsUseCase, renderer.New())

	router := rest.NewRouter(appConfig.Rest.CORSAllowedOrigins, catalogHandlers, pageHandlers, htmlHandlers, baseLogger)
	application.apiServer = rest.NewServer(appConfig.Rest.PORT, router, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	ok = true
	return application, nil
}

// seedCatalog loads the embedded demo catalog through the ingest use case so
// derived attributes such as geo_cell are computed the same way as for live listings.
func seedCatalog(logger port.LoggerPort, ingest *usecase.IngestListingUseCase) error {
	seed, err := memory.SeedCatalog()
	if err != nil {
		return err
	}
	ctx := contextkeys.ContextWithLogger(context.Background(), logger.WithFields(port.Fields{"component": "seed"}))
	stored, err := ingest.ExecuteBatch(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	logger.Info("Catalog seeded", port.Fields{"listings": stored})
	return nil
}

// Run starts every component and blocks until a signal or a component failure.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		if a.apiServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := a.apiServer.Stop(shutdownCtx); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
			cancel()
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		a.release()
		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 2)

	if a.listingEventsListener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listenerLogger := a.logger.WithFields(port.Fields{"listener_name": "Listing Events Listener"})
			listenerLogger.Info("Starting listener...", nil)

			if err := a.listingEventsListener.Start(appCtx); err != nil {
				listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
				errorsCh <- fmt.Errorf("listing events listener error: %w", err)
			} else {
				listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.evictIdlePages(appCtx)
	}()

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case runErr = <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", runErr, nil)
	}

	cancelApp()
	return runErr
}

// evictIdlePages closes pages nobody touched within the configured idle TTL.
func (a *App) evictIdlePages(ctx context.Context) {
	ttl := a.config.Pages.IdleTTL
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pages.EvictIdle(ttl)
		}
	}
}

// release closes the resources in reverse order of creation.
func (a *App) release() {
	if a.listingEventsListener != nil {
		if err := a.listingEventsListener.Close(); err != nil {
			a.logger.Error("Error closing listing events listener", err, nil)
		}
	}
	if a.filterEventsProducer != nil {
		if err := a.filterEventsProducer.Close(); err != nil {
			a.logger.Error("Error closing filter events producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.pages != nil {
		a.pages.CloseAll()
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}
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
