package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/davidolu-py/legallens/internal/config"
	"github.com/davidolu-py/legallens/internal/core"
	db "github.com/davidolu-py/legallens/internal/core/database"
	"github.com/davidolu-py/legallens/internal/core/gateway"
	"github.com/davidolu-py/legallens/internal/core/ingest"
	"github.com/davidolu-py/legallens/internal/core/llm"
	objectclient "github.com/davidolu-py/legallens/internal/core/object-client"
	"github.com/davidolu-py/legallens/internal/core/retrieval"
	"github.com/davidolu-py/legallens/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     *ingest.Ingestor
	Server       *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	geminiLLM, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the generator: %w", err)
	}

	ingestor := ingest.NewIngestor(dbClient, objClient, geminiEmbedder, cfg.BucketNames,
		ingest.DefaultChunkSize, ingest.DefaultOverlap)

	gw := gateway.NewGateway(geminiLLM)
	policy := retrieval.ForName(cfg.RetrievalPolicy, dbClient, geminiEmbedder)

	sessions := services.NewSessionOrchestrator(dbClient, gw, policy)
	risks := services.NewRiskAnalyzer(dbClient, gw)
	summaries := services.NewDocumentSummarizer(dbClient, gw)
	comparisons := services.NewDocumentComparer(dbClient, gw)

	server := NewServer(cfg, dbClient, objClient, ingestor, sessions, risks, summaries, comparisons)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Server:       server,
		closers: []func() error{
			geminiLLM.Close,
			geminiEmbedder.Close,
			dbClient.Close,
		},
	}, nil
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
