package rag

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// hashEmbedder produces stable vectors from character histograms, enough to
// give distinct texts distinct directions.
type hashEmbedder struct{ calls int }

func (h *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	h.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func newTestIndexer() (*Indexer, *MemoryIndex) {
	idx := NewMemoryIndex()
	return NewIndexer(&hashEmbedder{}, idx, zap.NewNop().Sugar()), idx
}

func TestIngestAndRetrieve(t *testing.T) {
	ix, _ := newTestIndexer()
	ctx := context.Background()

	n, err := ix.IngestDocument(ctx, 1, 10, "INCOME STATEMENT\nrevenue and margin detail\n--- PAGE 2 ---\ninventory aging schedule", "fin.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks ingested, got %d", n)
	}

	chunks, err := ix.Retrieve(ctx, 1, "revenue margin", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 results, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].ChunkText, "revenue") {
		t.Errorf("best match should contain the query terms: %q", chunks[0].ChunkText)
	}
	if chunks[0].RelevanceScore < chunks[1].RelevanceScore {
		t.Errorf("results not ranked: %f then %f", chunks[0].RelevanceScore, chunks[1].RelevanceScore)
	}
	for _, c := range chunks {
		if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
			t.Errorf("relevance out of [0,1]: %f", c.RelevanceScore)
		}
		if c.Filename != "fin.pdf" {
			t.Errorf("filename %q", c.Filename)
		}
	}
}

func TestIngest_Idempotent(t *testing.T) {
	ix, mem := newTestIndexer()
	ctx := context.Background()
	text := "BALANCE SHEET\ntotal assets detail"

	if _, err := ix.IngestDocument(ctx, 1, 10, text, "bs.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.IngestDocument(ctx, 1, 10, text, "bs.pdf"); err != nil {
		t.Fatal(err)
	}

	matches, err := mem.Search(ctx, 1, []float32{1}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("re-ingesting the same document duplicated chunks: %d points", len(matches))
	}
}

func TestIngest_EmptyText(t *testing.T) {
	ix, _ := newTestIndexer()
	n, err := ix.IngestDocument(context.Background(), 1, 10, "   ", "blank.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks for blank text, got %d", n)
	}
}

func TestRetrieve_UnknownDeal(t *testing.T) {
	ix, _ := newTestIndexer()
	chunks, err := ix.Retrieve(context.Background(), 999, "anything", 5)
	if err != nil {
		t.Fatalf("unknown deal should not error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no results, got %d", len(chunks))
	}
}

func TestDropDeal(t *testing.T) {
	ix, _ := newTestIndexer()
	ctx := context.Background()
	if _, err := ix.IngestDocument(ctx, 1, 10, "CASH FLOW STATEMENT\noperating activities", "cf.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := ix.DropDeal(ctx, 1); err != nil {
		t.Fatal(err)
	}
	chunks, err := ix.Retrieve(ctx, 1, "operating", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("collection survived drop: %d results", len(chunks))
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	a := chunkID(10, 0, "same content prefix")
	b := chunkID(10, 0, "same content prefix")
	c := chunkID(10, 1, "same content prefix")
	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different chunk index produced same id")
	}
}
