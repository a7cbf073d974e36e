package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/natserract/sfmapper/internal/model"
	"github.com/natserract/sfmapper/pkg/config"
	"github.com/natserract/sfmapper/pkg/export"
	"github.com/natserract/sfmapper/pkg/mapper"
	"github.com/natserract/sfmapper/pkg/salesforce"
	"github.com/natserract/sfmapper/pkg/schema/postgres"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: sfexport <SObject> [limit]\n")
	fmt.Fprintf(os.Stderr, "Supported objects: User, Account, Contact, Task, AccountContactRole\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sobject := os.Args[1]

	limit := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 0 {
			usage()
			os.Exit(2)
		}
		limit = n
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sobject, limit, logger); err != nil {
		logger.Error("Export failed", zap.String("sobject", sobject), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sobject string, limit int, logger *zap.Logger) error {
	client := salesforce.NewSalesforce(cfg.Salesforce, logger)

	m := mapper.New(client, logger)
	if err := model.Register(m); err != nil {
		return fmt.Errorf("failed to register models: %w", err)
	}

	it, err := mapper.FindBy[any](ctx, m, sobject, mapper.Query{Limit: limit})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d records\n", sobject, it.Count())

	first, err := it.First()
	if err != nil {
		return err
	}
	if obj, ok := first.Get(); ok {
		b, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode first record: %w", err)
		}
		fmt.Printf("First record:\n%s\n", b)
	}

	db, err := postgres.New(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	metrics, err := export.NewService(db.Pool(), cfg.ExportWorkers, logger).Export(ctx, sobject, it)
	if err != nil {
		return err
	}

	fmt.Printf("Export %s:\n", metrics.JobID)
	fmt.Printf("  Succeeded: %d\n", metrics.Succeeded)
	fmt.Printf("  Failed: %d\n", metrics.Failed)
	fmt.Printf("  Duration: %s\n", metrics.Duration)
	return nil
}
