package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/config"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
	"github.com/kirillkom/drhp-retrieval/internal/core/usecase"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/chunking"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/storage/localfs"
)

// Options tune wiring per binary.
type Options struct {
	Logger *slog.Logger
	// Observer receives retry and breaker events of remote calls.
	Observer resilience.Observer
	// WithoutQueue skips the NATS connection; uploads are then not announced.
	WithoutQueue bool
}

type App struct {
	Config config.Config

	Queue  *nats.Queue
	Docs   ports.DocumentRepository
	Chunks ports.ChunkStore

	IngestUC   *usecase.IngestDocumentUseCase
	IndexUC    *usecase.IndexUseCase
	RetrieveUC *usecase.RetrieveUseCase
	SectionsUC *usecase.SectionContextUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	if err := app.openStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	var executorOpts []resilience.Option
	if opts.Observer != nil {
		executorOpts = append(executorOpts, resilience.WithObserver(opts.Observer))
	}
	executor := resilience.NewExecutor(resilience.FromSettings(cfg), executorOpts...)

	var queue ports.MessageQueue
	if !opts.WithoutQueue {
		q, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = q
		app.closers = append(app.closers, q.Close)
		queue = q
	}

	ollamaClient := ollama.New(cfg.OllamaURL, time.Duration(cfg.OllamaTimeoutSeconds)*time.Second, executor)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.OllamaEmbedModel)
	chunker := chunking.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkMinChars)
	extractor := pdf.NewExtractor(logger)

	app.IngestUC = usecase.NewIngestDocumentUseCase(app.Docs, storage, queue)
	app.IndexUC = usecase.NewIndexUseCase(app.Docs, app.Chunks, storage, extractor, chunker, embedder, chunker.Overlap, logger)
	app.RetrieveUC = usecase.NewRetrieveUseCase(app.Chunks, embedder, cfg.RAGTopK, cfg.RAGMinSimilarity)
	app.SectionsUC = usecase.NewSectionContextUseCase(app.Docs, cfg.SectionContextMaxChars)

	logger.Info("bootstrap_ready",
		"store_driver", cfg.StoreDriver,
		"embed_model", embedder.Model(),
		"queue", !opts.WithoutQueue,
	)
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) error {
	switch cfg.StoreDriver {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.Docs = store
		a.Chunks = store
		a.closers = append(a.closers, func() { _ = store.Close() })
		return nil
	case "postgres", "":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		repo := postgres.NewDocumentRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.Docs = repo
		a.Chunks = postgres.NewChunkRepository(db)
		return nil
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
