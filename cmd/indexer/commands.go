package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/drhp-retrieval/internal/bootstrap"
	"github.com/kirillkom/drhp-retrieval/internal/config"
	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/usecase"
	"github.com/kirillkom/drhp-retrieval/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Index DRHP prospectus PDFs and inspect the chunk index",
		SilenceUsage: true,
	}
	root.AddCommand(newIndexCmd(), newStatsCmd())
	return root
}

func newIndexCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every PDF in a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, logger, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := indexDir(cmd.Context(), app.IngestUC, app.IndexUC, dir, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed=%d skipped=%d unindexable=%d failed=%d\n",
				summary.Indexed, summary.Skipped, summary.Unindexable, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Total())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data/drhp", "directory containing prospectus PDFs")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print chunk index statistics for one document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(id) == "" {
				return fmt.Errorf("--id is required")
			}
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.RetrieveUC.Stats(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "document id")
	return cmd
}

func openApp(ctx context.Context) (*bootstrap.App, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "indexer", cfg.LogLevel)
	slog.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, WithoutQueue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, logger, nil
}

type registrar interface {
	Register(ctx context.Context, id, name string, body io.Reader) (*domain.Document, error)
}

type processor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.IndexReport, error)
}

type indexSummary struct {
	Indexed     int
	Skipped     int
	Unindexable int
	Failed      int
}

func (s indexSummary) Total() int {
	return s.Indexed + s.Skipped + s.Unindexable + s.Failed
}

// indexDir processes PDFs in name order. One document failing never stops
// the batch.
func indexDir(ctx context.Context, reg registrar, proc processor, dir string, logger *slog.Logger) (indexSummary, error) {
	var summary indexSummary
	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	if len(files) == 0 {
		logger.Warn("no_pdfs_found", "dir", dir)
		return summary, nil
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		id := usecase.DocumentIDFromFilename(name)
		if id == "" {
			logger.Warn("pdf_skipped", "file", name, "reason", "no usable id in file name")
			summary.Failed++
			continue
		}

		report, err := indexFile(ctx, reg, proc, filepath.Join(dir, name), id)
		switch {
		case err != nil:
			summary.Failed++
			logger.Error("document_index_failed", "document_id", id, "file", name, "error", err)
		case report.Skipped:
			summary.Skipped++
			logger.Info("document_already_indexed", "document_id", id, "chunks", report.ChunksStored)
		case report.Status == domain.StatusUnindexable:
			summary.Unindexable++
		default:
			summary.Indexed++
		}
	}
	return summary, nil
}

func indexFile(ctx context.Context, reg registrar, proc processor, path, id string) (*domain.IndexReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if _, err := reg.Register(ctx, id, filepath.Base(path), f); err != nil {
		return nil, err
	}
	return proc.ProcessByID(ctx, id)
}

func writeStats(w io.Writer, stats *domain.IndexStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
