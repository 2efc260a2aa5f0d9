// Package rag indexes document text for per-deal similarity retrieval. Each
// deal gets its own collection; chunks carry deterministic IDs so re-ingesting
// a document upserts instead of duplicating.
package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Embedder turns text into vectors. Implementations batch internally.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Point is one indexed chunk.
type Point struct {
	ID         string
	DocumentID int64
	ChunkIndex int64
	Filename   string
	Content    string
	Vector     []float32
}

// Match is a retrieval hit with cosine similarity in [-1, 1].
type Match struct {
	Point
	Score float32
}

// VectorIndex is the storage side of retrieval. Searching a deal that was
// never ingested returns no matches, not an error.
type VectorIndex interface {
	Upsert(ctx context.Context, dealID int64, points []Point) error
	Search(ctx context.Context, dealID int64, vector []float32, topK int) ([]Match, error)
	DropDeal(ctx context.Context, dealID int64) error
}

// Chunk is the retrieval result shape handed to chat and API callers.
type Chunk struct {
	ChunkText      string  `json:"chunk_text"`
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkIndex     int64   `json:"chunk_index"`
}

// Indexer wires the chunker, embedder and vector index together.
type Indexer struct {
	embedder Embedder
	index    VectorIndex
	log      *zap.SugaredLogger
}

func NewIndexer(embedder Embedder, index VectorIndex, log *zap.SugaredLogger) *Indexer {
	return &Indexer{embedder: embedder, index: index, log: log}
}

// IngestDocument chunks, embeds and upserts one document's text into the
// deal's collection. Returns the number of chunks ingested.
func (x *Indexer) IngestDocument(ctx context.Context, dealID, documentID int64, text, filename string) (int, error) {
	chunks := ChunkText(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := x.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks for document %d: %w", len(chunks), documentID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = Point{
			ID:         chunkID(documentID, i, chunk),
			DocumentID: documentID,
			ChunkIndex: int64(i),
			Filename:   filename,
			Content:    chunk,
			Vector:     vectors[i],
		}
	}

	if err := x.index.Upsert(ctx, dealID, points); err != nil {
		return 0, fmt.Errorf("upserting %d chunks for deal %d: %w", len(points), dealID, err)
	}
	x.log.Infow("document ingested", "deal_id", dealID, "document_id", documentID, "chunks", len(points))
	return len(points), nil
}

// Retrieve embeds the query and returns the topK most similar chunks with
// relevance scores mapped to [0, 1].
func (x *Indexer) Retrieve(ctx context.Context, dealID int64, query string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = 5
	}
	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	matches, err := x.index.Search(ctx, dealID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("searching deal %d: %w", dealID, err)
	}

	out := make([]Chunk, 0, len(matches))
	for _, m := range matches {
		out = append(out, Chunk{
			ChunkText:      m.Content,
			Filename:       m.Filename,
			RelevanceScore: relevance(m.Score),
			ChunkIndex:     m.ChunkIndex,
		})
	}
	return out, nil
}

// DropDeal removes the deal's collection. Missing collections are fine.
func (x *Indexer) DropDeal(ctx context.Context, dealID int64) error {
	return x.index.DropDeal(ctx, dealID)
}

// chunkID derives a stable UUID from the document, position and content
// prefix, so re-ingestion overwrites rather than duplicates.
func chunkID(documentID int64, index int, chunk string) string {
	prefix := chunk
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	name := fmt.Sprintf("%d_%d_%s", documentID, index, prefix)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// relevance maps cosine similarity to [0, 1]: distance = 1 - similarity in
// [0, 2], relevance = 1 - distance/2.
func relevance(similarity float32) float64 {
	r := 1 - (1-float64(similarity))/2
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
