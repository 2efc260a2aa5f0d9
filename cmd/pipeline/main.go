// Command pipeline runs the analysis for one deal from the terminal:
//
//	pipeline -deal 42
//
// It uses the same configuration as the API server and exits non-zero when
// the run fails.
package main

import (
	"context"
	"flag"
	"log"

	"deal_diligence/pkg/config"
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

const embeddingDim = 768

func main() {
	dealID := flag.Int64("deal", 0, "deal id to analyze")
	flag.Parse()
	if *dealID <= 0 {
		log.Fatal("usage: pipeline -deal <id>")
	}

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

	if cfg.DatabaseURL == "" {
		zlog.Fatal("DATABASE_URL is required; a one-shot run against the in-memory store would analyze nothing")
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("connecting to postgres", "error", err)
	}
	defer pool.Close()
	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		zlog.Fatalw("ensuring schema", "error", err)
	}

	orch := pipeline.New(st, classify.Classify, zlog)
	orch.SetAssumptions(cfg.DCF)

	var provider llm.Provider
	switch {
	case cfg.LLMProvider == "deepseek" && cfg.DeepSeekAPIKey != "":
		provider, err = llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
	case cfg.LLMProvider == "gemini" && cfg.GeminiAPIKey != "":
		provider, err = llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		zlog.Warn("no completion provider configured; running deterministic stages only")
	}
	if err != nil {
		zlog.Fatalw("building completion provider", "error", err)
	}
	if provider != nil {
		orch.SetExtractor(extract.New(provider))
		orch.SetInsights(insight.New(provider))
	}

	if cfg.GeminiAPIKey != "" && cfg.MilvusAddr != "" {
		embedder, err := rag.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			zlog.Fatalw("building embedder", "error", err)
		}
		index, err := milvus.New(ctx, cfg.MilvusAddr, embeddingDim)
		if err != nil {
			zlog.Fatalw("connecting to milvus", "addr", cfg.MilvusAddr, "error", err)
		}
		orch.SetIngester(rag.NewIndexer(embedder, index, zlog))
	}

	if err := orch.Analyze(ctx, *dealID); err != nil {
		zlog.Fatalw("analysis failed", "deal_id", *dealID, "error", err)
	}
	zlog.Infow("analysis finished", "deal_id", *dealID)
}
