// Package pipeline orchestrates a whole import run: load the file, find the
// header, map the columns, reconcile values, validate each row and resolve the
// entities it references. Structural problems (unreadable file, unmappable
// schema) abort the run; per-row problems are collected into the result and
// never stop the remaining rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/portfolio-importer/internal/classifier"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/detector"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/loader"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/mapper"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/reconciler"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/resolver"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

// ErrEmptyTable means the file materialized into a table with no data rows.
var ErrEmptyTable = errors.New("no data rows found")

// Options carries the import run configuration.
type Options struct {
	// DefaultCurrency fills rows whose source has no currency column.
	DefaultCurrency string
	// DefaultTransactionKind fills rows whose source has no type column.
	DefaultTransactionKind string
	// MaxRowsToScan bounds the header search. <= 0 selects the default.
	MaxRowsToScan int
	// TolerateMalformedLines skips unparseable text lines instead of failing.
	TolerateMalformedLines bool
}

// Result is the outcome of one import run.
type Result struct {
	Records   []ImportRecord
	Errors    []ErrorRecord
	RowsTotal int
}

// Pipeline wires the ingestion stages around a shared store and classifier.
type Pipeline struct {
	store      store.Store
	classifier classifier.Classifier // nil: heuristics only throughout
	opts       Options
	logger     *slog.Logger
}

// New creates a pipeline. cl may be nil; every classification then falls back
// to the heuristic tiers.
func New(st store.Store, cl classifier.Classifier, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{store: st, classifier: cl, opts: opts, logger: logger}
}

// Run imports one file for the given owner into the named wallet.
func (p *Pipeline) Run(ctx context.Context, path string, owner uuid.UUID, wallet string) (*Result, error) {
	ld, err := loader.ForPath(path, loader.Options{
		TolerateMalformedLines: p.opts.TolerateMalformedLines,
	})
	if err != nil {
		return nil, err
	}

	det := detector.New(p.opts.MaxRowsToScan)

	probe, err := ld.ReadRows(path, det.ProbeRows())
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", filepath.Base(path), err)
	}
	headerRow := det.DetectHeaderRow(probe)

	tbl, err := ld.Materialize(path, headerRow)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if len(tbl.Columns) == 0 || len(tbl.Rows) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyTable, filepath.Base(path))
	}

	p.logger.Info("table detected",
		slog.Int("header_row", headerRow),
		slog.Int("columns", len(tbl.Columns)),
		slog.Int("rows", len(tbl.Rows)),
	)

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	m := mapper.New(p.store, p.classifier, p.logger)
	mapping, err := m.MapColumns(ctx, owner, tbl, fileType)
	if err != nil {
		return nil, err
	}

	mapped, err := mapper.ApplyMapping(tbl, mapping, nil)
	if err != nil {
		return nil, err
	}

	rec := reconciler.New(reconciler.Defaults{
		Currency:        p.opts.DefaultCurrency,
		TransactionType: p.opts.DefaultTransactionKind,
	})
	reconciled := rec.Reconcile(mapped)

	res := resolver.New(p.store, p.classifier, p.logger)
	walletID, err := res.ResolveWallet(ctx, owner, wallet)
	if err != nil {
		return nil, err
	}

	result := &Result{RowsTotal: len(reconciled.Rows)}
	for i, row := range reconciled.Rows {
		v, rowErr := validateRow(row)
		if rowErr != nil {
			result.Errors = append(result.Errors, ErrorRecord{
				RowIndex:     i,
				ErrorKind:    rowErr.kind,
				ErrorMessage: rowErr.msg,
				RawData:      rowJSON(row),
			})
			rowsFailed.Inc()
			continue
		}

		assetID, err := res.ResolveAsset(ctx, v.assetName, "")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		result.Records = append(result.Records, ImportRecord{
			OwnerID:         owner.String(),
			WalletID:        walletID.String(),
			AssetID:         assetID.String(),
			AssetName:       v.assetName,
			Date:            v.date,
			AssetPrice:      v.assetPrice,
			Volume:          v.volume,
			Amount:          v.amount,
			Fee:             v.fee,
			Currency:        v.currency,
			TransactionType: v.transactionType,
		})
		rowsImported.Inc()
	}

	p.logger.Info("import run finished",
		slog.Int("imported", len(result.Records)),
		slog.Int("failed", len(result.Errors)),
	)
	return result, nil
}
