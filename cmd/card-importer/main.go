// Command card-importer scrapes video cards from an HTML page and stores them
// in the catalog database, or publishes them as listing-published events.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/adapters/cardimport"
	logger_adapter "catalog-service/internal/adapters/logger"
	postgres_adapter "catalog-service/internal/adapters/postgres"
	rabbitmq_adapter "catalog-service/internal/adapters/rabbitmq"
	"catalog-service/internal/configs"
	"catalog-service/internal/constants"
	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"
	"catalog-service/internal/core/usecase"
	"catalog-service/internal/schema"
	"catalog-service/pkg/postgres"
	"catalog-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-service/pkg/rabbitmq/rabbitmq_producer"
)

func main() {
	var (
		pageURL  string
		category string
		dryRun   bool
		delay    time.Duration
	)
	flag.StringVar(&pageURL, "url", "", "page with .video-card elements (required)")
	flag.StringVar(&category, "category", "", "category for cards without data-category")
	flag.BoolVar(&dryRun, "dry-run", false, "print the listings as JSON instead of publishing them")
	flag.DurationVar(&delay, "delay", 500*time.Millisecond, "delay between requests to the same host")
	flag.Parse()
	if pageURL == "" && flag.NArg() > 0 {
		pageURL = flag.Arg(0)
	}

	logger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Writer:   os.Stderr,
		Level:    slog.LevelInfo,
		UseColor: true,
	}).WithFields(port.Fields{"service_name": "card-importer"})

	if pageURL == "" {
		logger.Error("Missing page URL", fmt.Errorf("pass -url URL or a positional URL"), nil)
		os.Exit(2)
	}
	if err := run(logger, pageURL, category, dryRun, delay); err != nil {
		logger.Error("Import failed", err, port.Fields{"url": pageURL})
		os.Exit(1)
	}
}

func run(logger port.LoggerPort, pageURL, category string, dryRun bool, delay time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = contextkeys.ContextWithLogger(ctx, logger)

	schemas, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	importer, err := cardimport.NewImporter(schemas, delay)
	if err != nil {
		return err
	}
	listings, err := importer.Import(ctx, pageURL, category)
	if err != nil {
		return err
	}
	logger.Info("Cards imported", port.Fields{"url": pageURL, "listings": len(listings)})

	if dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	}

	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	switch {
	case cfg.Database.URL != "":
		return store(ctx, logger, cfg, schemas, listings)
	case cfg.RabbitMQ.URL != "":
		return publish(ctx, logger, cfg, listings)
	default:
		return fmt.Errorf("DATABASE_URL or RABBITMQ_URL is required unless -dry-run is set")
	}
}

// store writes the listings straight into the catalog database.
func store(ctx context.Context, logger port.LoggerPort, cfg *configs.AppConfig, schemas *schema.Registry, listings []domain.Listing) error {
	pool, err := postgres.NewClient(ctx, postgres.Config{DatabaseURL: cfg.Database.URL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres_adapter.Migrate(ctx, pool); err != nil {
		return err
	}
	repo, err := postgres_adapter.NewListingRepository(pool)
	if err != nil {
		return err
	}
	ingest := usecase.NewIngestListingUseCase(schemas, repo, page.NewRegistry(logger, nil))
	stored, err := ingest.ExecuteBatch(ctx, listings)
	if err != nil {
		return err
	}
	logger.Info("Listings stored", port.Fields{"stored": stored, "total": len(listings)})
	return nil
}

// publish hands the listings to running catalog services as listing-published events.
func publish(ctx context.Context, logger port.LoggerPort, cfg *configs.AppConfig, listings []domain.Listing) error {
	bridge := rabbitmq_adapter.NewPkgLoggerBridge(logger.WithFields(port.Fields{"component": "rabbitmq"}))
	connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: cfg.RabbitMQ.URL}, bridge)
	if err != nil {
		return err
	}
	defer connManager.Close()

	producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
		ExchangeName:             constants.ListingsExchange,
		ExchangeType:             "direct",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   bridge,
	}, connManager)
	if err != nil {
		return err
	}
	defer producer.Close()

	publisher, err := rabbitmq_adapter.NewListingEventsAdapter(producer)
	if err != nil {
		return err
	}
	published := 0
	for _, l := range listings {
		if err := publisher.PublishListing(ctx, l); err != nil {
			logger.Warn("Listing not published", port.Fields{"title": l.Title, "error": err.Error()})
			continue
		}
		published++
	}
	logger.Info("Listings published", port.Fields{"published": published, "total": len(listings)})
	return nil
}
