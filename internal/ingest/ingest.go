// Package ingest performs the one-time load of the source CSV dataset into
// the backing database file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/storage"
	duckdbstore "github.com/datachat/datachat/internal/store/duckdb"
)

type Loader struct {
	DatasetDir string
	// Fetcher, when set, supplies dataset files that are missing locally.
	Fetcher storage.ObjectStore
	Logger  *slog.Logger
}

type Summary struct {
	AlreadyLoaded bool
	Loaded        []string
	Skipped       []string
}

// Run loads every manifest dataset into the database file at dbPath. The
// load only happens when the file does not exist yet. A dataset that fails
// to load is logged and skipped; the remaining datasets still load.
func (l *Loader) Run(ctx context.Context, dbPath string, manifest Manifest) (Summary, error) {
	if strings.TrimSpace(dbPath) == "" {
		return Summary{}, fmt.Errorf("database path is required")
	}
	if _, err := os.Stat(dbPath); err == nil {
		return Summary{AlreadyLoaded: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Summary{}, fmt.Errorf("stat database file: %w", err)
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := duckdbstore.OpenWritable(dbPath)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = db.Close() }()

	var summary Summary
	for _, dataset := range manifest.Datasets {
		localPath := filepath.Join(l.DatasetDir, dataset.File)
		if err := l.ensureLocalFile(ctx, localPath, dataset.File); err != nil {
			l.log().WarnContext(ctx, "dataset file unavailable, skipping table",
				slog.String("table", dataset.Table),
				slog.String("file", dataset.File),
				slog.Any("error", err),
			)
			summary.Skipped = append(summary.Skipped, dataset.Table)
			continue
		}

		loadSQL := fmt.Sprintf(
			`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s)`,
			quoteIdent(dataset.Table),
			quoteStringLiteral(localPath),
		)
		if _, err := db.ExecContext(ctx, loadSQL); err != nil {
			l.log().WarnContext(ctx, "dataset load failed, skipping table",
				slog.String("table", dataset.Table),
				slog.String("file", dataset.File),
				slog.Any("error", err),
			)
			summary.Skipped = append(summary.Skipped, dataset.Table)
			continue
		}

		l.log().InfoContext(ctx, "dataset table loaded",
			slog.String("table", dataset.Table),
			slog.String("file", dataset.File),
		)
		summary.Loaded = append(summary.Loaded, dataset.Table)
	}

	observability.ObserveIngestTables(len(summary.Loaded), len(summary.Skipped))
	return summary, nil
}

func (l *Loader) ensureLocalFile(ctx context.Context, localPath, key string) error {
	if _, err := os.Stat(localPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat dataset file: %w", err)
	}
	if l.Fetcher == nil {
		return fmt.Errorf("dataset file %q not found", localPath)
	}

	reader, err := l.Fetcher.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch dataset object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset dir: %w", err)
		}
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		_ = os.Remove(localPath)
		return fmt.Errorf("download dataset file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close dataset file: %w", err)
	}
	return nil
}

func (l *Loader) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
