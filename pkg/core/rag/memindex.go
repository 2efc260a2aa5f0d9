package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an exact-scan in-memory VectorIndex for tests and
// single-node deployments without a Milvus instance.
type MemoryIndex struct {
	mu    sync.RWMutex
	deals map[int64]map[string]Point // dealID -> chunk ID -> point
}

var _ VectorIndex = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{deals: make(map[int64]map[string]Point)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, dealID int64, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.deals[dealID]
	if !ok {
		coll = make(map[string]Point)
		m.deals[dealID] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, dealID int64, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.deals[dealID]
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(coll))
	for _, p := range coll {
		matches = append(matches, Match{Point: p, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DropDeal(ctx context.Context, dealID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deals, dealID)
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
