// Command importer ingests one spreadsheet export into the portfolio store.
//
// Usage:
//
//	importer -file trades.xlsx -owner 6a1f... -wallet "Broker A" [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/portfolio-importer/internal/classifier"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/pipeline"
	"github.com/FACorreiaa/portfolio-importer/pkg/config"
	"github.com/FACorreiaa/portfolio-importer/pkg/db"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

// assetAnswerTTL bounds how long a positive asset classification is reused.
const assetAnswerTTL = 15 * time.Minute

func main() {
	var (
		file       = flag.String("file", "", "path to the export file (.csv, .txt, .xls, .xlsx)")
		owner      = flag.String("owner", "", "owner id (uuid)")
		wallet     = flag.String("wallet", "default", "wallet name to import into")
		dryRun     = flag.Bool("dry-run", false, "run against an in-memory store, persist nothing")
		recordsCSV = flag.String("records-csv", "", "write imported records to this CSV file")
		errorsCSV  = flag.String("errors-csv", "", "write rejected rows to this CSV file")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *file, *owner, *wallet, *dryRun, *recordsCSV, *errorsCSV); err != nil {
		logger.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, file, rawOwner, wallet string, dryRun bool, recordsCSV, errorsCSV string) error {
	if file == "" {
		return fmt.Errorf("-file is required")
	}
	ownerID, err := uuid.Parse(rawOwner)
	if err != nil {
		return fmt.Errorf("-owner must be a uuid: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	var st store.Store
	if dryRun {
		st = store.NewMemory()
		logger.Info("dry run, using in-memory store")
	} else {
		database, err := db.New(db.Config{
			DSN:             cfg.Database.DSN(),
			MaxConns:        5,
			MaxConnLifetime: 5 * time.Minute,
		}, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.RunMigrations(); err != nil {
			return err
		}
		st = store.NewPostgres(database.Pool)
	}

	var cl classifier.Classifier
	if cfg.Gemini.APIKey != "" {
		gemini, err := classifier.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			return fmt.Errorf("creating classifier: %w", err)
		}
		cl = classifier.NewCachedAssets(gemini, assetAnswerTTL)
	} else {
		logger.Info("no Gemini key configured, mapping with heuristics only")
	}

	p := pipeline.New(st, cl, pipeline.Options{
		DefaultCurrency:        cfg.Import.DefaultCurrency,
		DefaultTransactionKind: cfg.Import.DefaultTransactionKind,
		MaxRowsToScan:          cfg.Import.MaxRowsToScan,
		TolerateMalformedLines: cfg.Import.TolerateMalformedLines,
	}, logger)

	result, err := p.Run(ctx, file, ownerID, wallet)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := p.SaveRecords(ctx, result.Records); err != nil {
			return err
		}
		if err := p.SaveErrors(ctx, ownerID.String(), result.Errors); err != nil {
			return err
		}
	}

	if recordsCSV != "" {
		if err := writeCSV(recordsCSV, func(f *os.File) error {
			return pipeline.WriteRecordsCSV(f, result.Records)
		}); err != nil {
			return fmt.Errorf("writing %s: %w", recordsCSV, err)
		}
	}
	if errorsCSV != "" && len(result.Errors) > 0 {
		if err := writeCSV(errorsCSV, func(f *os.File) error {
			return pipeline.WriteErrorsCSV(f, result.Errors)
		}); err != nil {
			return fmt.Errorf("writing %s: %w", errorsCSV, err)
		}
	}

	fmt.Printf("%d rows: %d succeeded, %d failed\n",
		result.RowsTotal, len(result.Records), len(result.Errors))
	for kind, n := range errorKinds(result.Errors) {
		fmt.Printf("  %s: %d\n", kind, n)
	}
	return nil
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func errorKinds(errs []pipeline.ErrorRecord) map[string]int {
	kinds := make(map[string]int)
	for _, e := range errs {
		kinds[e.ErrorKind]++
	}
	return kinds
}
