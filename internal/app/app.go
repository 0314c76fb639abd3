package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/Examcraft/internal/api/handlers"
	"github.com/markdave123-py/Examcraft/internal/config"
	"github.com/markdave123-py/Examcraft/internal/core"
	db "github.com/markdave123-py/Examcraft/internal/core/database"
	"github.com/markdave123-py/Examcraft/internal/core/ingestion_engine"
	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	"github.com/markdave123-py/Examcraft/internal/core/llm"
	objectclient "github.com/markdave123-py/Examcraft/internal/core/object-client"
	"github.com/markdave123-py/Examcraft/internal/core/questionbank"
	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/core/websource"
	"github.com/markdave123-py/Examcraft/internal/services"
)

type App struct {
	DBClient core.DbClient
	Embedder *llm.GeminiEmbedder
	Bank     core.QuestionBank
	Pool     *ingestion_engine.WorkerPool
	Ingest   *services.IngestService
	Imports  *services.BankService
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	setupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{}

	var (
		backend  core.VectorBackend
		jobStore core.JobStore
	)
	switch cfg.StorageMode {
	case config.StorageMemory:
		backend = vectorstore.NewMemoryBackend()
		jobStore = jobs.NewMemoryStore()
		log.Println("Using in-memory storage; nothing survives a restart.")
	case config.StoragePostgres:
		dbClient, err := db.NewDatabaseClient(setupCtx, cfg)
		if err != nil {
			return nil, err
		}
		a.DBClient = dbClient
		backend, jobStore = dbClient, dbClient
		log.Println("Database initialized and ready.")
	default:
		return nil, fmt.Errorf("unknown STORAGE_MODE %q", cfg.StorageMode)
	}

	var objects core.ObjectClient
	if cfg.AwsAccessKey != "" {
		s3, err := objectclient.NewS3Stager(setupCtx, cfg)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		objects = s3
		log.Println("Object client initialized and ready.")
	} else {
		objects = objectclient.NewMemoryStager(cfg.BucketName)
		log.Println("AWS credentials not set; staging uploads in memory.")
	}

	var primary core.EmbeddingProvider
	if cfg.AIAPIKey != "" {
		embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			log.Printf("couldn't initialize the embedder, using hash embeddings: %v", err)
		} else {
			a.Embedder = embedder
			primary = embedder
		}
	}
	store := vectorstore.NewStore(backend, primary, vectorstore.NewHashEmbedder(cfg.EmbedDim), cfg.UpsertBatchSize)

	extractor := ingestion_engine.NewRoutingExtractor(
		ingestion_engine.NewPDFExtractor(),
		ingestion_engine.NewDocconvExtractor(false),
	)
	pipeline := ingestion_engine.NewPipeline(extractor, store, &ingestion_engine.IngestConfig{MaxUnits: cfg.MaxPDFPages})

	a.Pool = ingestion_engine.NewWorkerPool(cfg.WorkerQueue)
	// Workers outlive the signal context so Close can drain queued documents.
	a.Pool.Start(context.WithoutCancel(ctx), cfg.WorkerCount)
	scheduler := ingestion_engine.NewScheduler(a.Pool, pipeline, cfg.JobTimeout)

	sourcer := newSourcer(ctx, cfg, scheduler)

	tracker := jobs.NewTracker(jobStore)
	a.Ingest = services.NewIngestService(
		tracker,
		services.NewDocumentStager(objects),
		scheduler,
		sourcer,
		int64(cfg.MaxUploadMB)<<20,
		cfg.WebJobTimeout,
	)

	if cfg.FirestoreProjectID != "" {
		bank, err := questionbank.NewFirestoreBank(ctx, cfg.FirestoreProjectID, cfg.FirestoreCollection)
		if err != nil {
			log.Printf("question bank disabled: %v", err)
		} else {
			a.Bank = bank
		}
	}

	a.Imports = services.NewBankService(store, a.Bank, tracker)

	a.Server = NewServer(cfg, Handlers{
		Documents: handlers.NewDocumentHandler(a.Ingest, tracker, int64(cfg.MaxUploadMB)<<20),
		Questions: handlers.NewQuestionHandler(store),
		Web:       handlers.NewWebHandler(a.Ingest, sourcer),
		Admin:     handlers.NewAdminHandler(a.Imports, cfg.AdminUserIDs),
	})
	return a, nil
}

func newSourcer(ctx context.Context, cfg *config.Config, runner ingestion_engine.Ingestor) *websource.Sourcer {
	client := websource.NewHTTPClient(cfg.FetchUserAgent, time.Minute)

	var providers []core.SearchProvider
	if cfg.GoogleAPIKey != "" && cfg.GoogleSearchEngineID != "" {
		google, err := websource.NewGoogleSearch(ctx, cfg.GoogleAPIKey, cfg.GoogleSearchEngineID)
		if err != nil {
			log.Printf("google search disabled: %v", err)
		} else {
			providers = append(providers, google)
		}
	}
	if cfg.DDGSearchEnabled {
		providers = append(providers, websource.NewDuckDuckGoSearch(client, ""))
	}
	if len(providers) == 0 {
		log.Println("No search provider configured; web jobs need explicit urls.")
	}

	return websource.NewSourcer(
		websource.NewChainSearch(providers...),
		websource.NewScraper(client),
		websource.NewFetcher(cfg.FetchUserAgent, int64(cfg.MaxFetchMB)<<20, 2*time.Minute),
		runner,
		cfg.WebMaxDocuments,
	)
}

// Close waits for background jobs within ctx, then releases every client.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Ingest != nil {
		if err := a.Ingest.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for jobs: %w", err))
		}
	}
	if a.Imports != nil {
		if err := a.Imports.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for imports: %w", err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Bank != nil {
		errs = append(errs, a.Bank.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.DBClient != nil {
		errs = append(errs, a.DBClient.Close())
	}
	return errors.Join(errs...)
}
