package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deal_diligence/pkg/api/handler"
	"deal_diligence/pkg/api/router"
	"deal_diligence/pkg/config"
	"deal_diligence/pkg/core/chat"
	"deal_diligence/pkg/core/classify"
	"deal_diligence/pkg/core/extract"
	"deal_diligence/pkg/core/insight"
	"deal_diligence/pkg/core/llm"
	"deal_diligence/pkg/core/pipeline"
	"deal_diligence/pkg/core/rag"
	"deal_diligence/pkg/core/rag/milvus"
	"deal_diligence/pkg/core/store"
	"deal_diligence/pkg/platform/logger"
)

// text-embedding-004 vectors
const embeddingDim = 768

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	st := buildStore(ctx, cfg, zlog)
	provider := buildProvider(ctx, cfg, zlog)
	indexer := buildIndexer(ctx, cfg, zlog)

	orch := pipeline.New(st, classify.Classify, zlog)
	orch.SetAssumptions(cfg.DCF)
	if provider != nil {
		orch.SetExtractor(extract.New(provider))
		orch.SetInsights(insight.New(provider))
	}
	if indexer != nil {
		orch.SetIngester(indexer)
	}

	var chatSvc *chat.Service
	if provider != nil {
		var retriever chat.Retriever
		if indexer != nil {
			retriever = indexer
		}
		chatSvc = chat.New(provider, retriever)
	}

	var dropper handler.IndexDropper
	if indexer != nil {
		dropper = indexer
	}
	deals := handler.NewDealHandler(st, orch, chatSvc, dropper, zlog)

	if strings.HasPrefix(cfg.LogMode, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	router.RegisterRoutes(r, deals)

	zlog.Infow("api listening", "addr", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		zlog.Fatalw("server stopped", "error", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config, zlog *zap.SugaredLogger) store.Store {
	if cfg.DatabaseURL == "" {
		zlog.Warn("DATABASE_URL not set, using in-memory store; data will not survive restarts")
		return store.NewMemory()
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("connecting to postgres", "error", err)
	}
	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		zlog.Fatalw("ensuring schema", "error", err)
	}
	return pg
}

func buildProvider(ctx context.Context, cfg config.Config, zlog *zap.SugaredLogger) llm.Provider {
	switch cfg.LLMProvider {
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			zlog.Warn("DEEPSEEK_API_KEY not set; extraction, insights and chat disabled")
			return nil
		}
		p, err := llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		if err != nil {
			zlog.Fatalw("building deepseek provider", "error", err)
		}
		return p
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			zlog.Warn("GEMINI_API_KEY not set; extraction, insights and chat disabled")
			return nil
		}
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			zlog.Fatalw("building gemini provider", "error", err)
		}
		return p
	default:
		zlog.Fatalw("unknown LLM_PROVIDER", "provider", cfg.LLMProvider)
		return nil
	}
}

func buildIndexer(ctx context.Context, cfg config.Config, zlog *zap.SugaredLogger) *rag.Indexer {
	if cfg.GeminiAPIKey == "" {
		zlog.Warn("GEMINI_API_KEY not set; retrieval indexing disabled")
		return nil
	}
	embedder, err := rag.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		zlog.Fatalw("building embedder", "error", err)
	}

	var index rag.VectorIndex
	if cfg.MilvusAddr != "" {
		index, err = milvus.New(ctx, cfg.MilvusAddr, embeddingDim)
		if err != nil {
			zlog.Fatalw("connecting to milvus", "addr", cfg.MilvusAddr, "error", err)
		}
	} else {
		zlog.Warn("MILVUS_ADDR not set, using in-memory vector index")
		index = rag.NewMemoryIndex()
	}
	return rag.NewIndexer(embedder, index, zlog)
}
