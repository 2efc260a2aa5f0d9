// Package chat answers analyst questions about a deal, grounded in both the
// retrieval index and the persisted analysis outputs.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deal_diligence/pkg/core/llm"
	"deal_diligence/pkg/core/rag"
	"deal_diligence/pkg/core/utils"
)

const (
	defaultTopK     = 5
	maxSummaryChars = 6000
)

// Retriever is the slice of the indexer chat needs.
type Retriever interface {
	Retrieve(ctx context.Context, dealID int64, query string, topK int) ([]rag.Chunk, error)
}

// Source cites a chunk that informed the answer. ChunkText is truncated for
// display.
type Source struct {
	ChunkText      string  `json:"chunk_text"`
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
}

type Service struct {
	provider  llm.Provider
	retriever Retriever
}

func New(provider llm.Provider, retriever Retriever) *Service {
	return &Service{provider: provider, retriever: retriever}
}

const systemChat = "You are an expert M&A Financial Due Diligence analyst. Your answers must be:\n" +
	"1. PRECISE: always cite actual numbers from the data (dollars, percentages, ratios).\n" +
	"2. STRUCTURED: use headers (##), bullet points (-), and bold (**text**) for clarity.\n" +
	"3. COMPLETE: answer every part of the question directly.\n" +
	"4. SOURCED: mention which document or analysis module the data came from.\n\n" +
	"If the data doesn't contain the answer, say so clearly rather than guessing.\n" +
	"Do NOT give generic advice. Every statement must be grounded in the provided numbers."

// Ask retrieves relevant document chunks, condenses the analysis data and
// prompts the provider. analysisData maps analysis type to its stored
// results payload and may be empty.
func (s *Service) Ask(ctx context.Context, dealID int64, question string, analysisData map[string]json.RawMessage) (string, []Source, error) {
	if s.provider == nil {
		return "", nil, fmt.Errorf("no completion provider configured")
	}

	var chunks []rag.Chunk
	if s.retriever != nil {
		var err error
		chunks, err = s.retriever.Retrieve(ctx, dealID, question, defaultTopK)
		if err != nil {
			// Retrieval is an enrichment; answer from analysis data alone.
			chunks = nil
		}
	}

	var chunkText strings.Builder
	for _, ch := range chunks {
		fmt.Fprintf(&chunkText, "[Source: %s]:\n%s\n\n", ch.Filename, ch.ChunkText)
	}

	summary, err := json.MarshalIndent(analysisData, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("serializing analysis data: %w", err)
	}
	dataSummary := string(summary)
	if len(dataSummary) > maxSummaryChars {
		dataSummary = dataSummary[:maxSummaryChars]
	}

	user := fmt.Sprintf("Question: %s\n\n--- Relevant Document Excerpts ---\n%s\n--- Financial Analysis Data ---\n%s",
		question, chunkText.String(), dataSummary)

	answer, err := s.provider.GenerateResponse(ctx, user, systemChat, nil)
	if err != nil {
		return "", nil, fmt.Errorf("chat completion failed: %w", err)
	}

	sources := make([]Source, 0, len(chunks))
	for _, ch := range chunks {
		text := ch.ChunkText
		if len(text) > 200 {
			text = text[:200]
		}
		sources = append(sources, Source{
			ChunkText:      text,
			Filename:       ch.Filename,
			RelevanceScore: ch.RelevanceScore,
		})
	}
	return utils.CleanMarkdown(answer), sources, nil
}
