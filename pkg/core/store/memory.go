package store

import (
	"context"
	"sync"
	"time"

	"deal_diligence/pkg/models"
)

// Memory is a mutex-guarded in-memory Store for tests and local runs.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	deals    map[int64]*models.Deal
	docs     map[int64]*models.Document
	analyses map[int64]map[models.AnalysisType]*models.Analysis
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		deals:    make(map[int64]*models.Deal),
		docs:     make(map[int64]*models.Document),
		analyses: make(map[int64]map[models.AnalysisType]*models.Analysis),
	}
}

func (m *Memory) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) CreateDeal(ctx context.Context, deal *models.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deal.Status == "" {
		deal.Status = models.StatusPending
	}
	deal.ID = m.id()
	deal.CreatedAt = time.Now()
	deal.UpdatedAt = deal.CreatedAt
	cp := *deal
	m.deals[deal.ID] = &cp
	return nil
}

func (m *Memory) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deal, ok := m.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *deal
	return &cp, nil
}

func (m *Memory) ListDeals(ctx context.Context) ([]models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Deal
	for id := int64(1); id < m.nextID; id++ {
		if d, ok := m.deals[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *Memory) DeleteDeal(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deals[id]; !ok {
		return ErrNotFound
	}
	delete(m.deals, id)
	for docID, doc := range m.docs {
		if doc.DealID == id {
			delete(m.docs, docID)
		}
	}
	delete(m.analyses, id)
	return nil
}

func (m *Memory) TransitionDeal(ctx context.Context, id int64, from, to models.DealStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !from.CanTransition(to) {
		return false, nil
	}
	deal, ok := m.deals[id]
	if !ok || deal.Status != from {
		return false, nil
	}
	deal.Status = to
	deal.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) AddDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = m.id()
	doc.UploadedAt = time.Now()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *Memory) ListDocuments(ctx context.Context, dealID int64) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for id := int64(1); id < m.nextID; id++ {
		if doc, ok := m.docs[id]; ok && doc.DealID == dealID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *Memory) UpdateDocumentExtraction(ctx context.Context, id int64, docType string, confidence float64, dataset *models.FinancialDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.DocType = docType
	doc.DocTypeConfidence = confidence
	doc.Dataset = dataset
	return nil
}

func (m *Memory) UpsertAnalysis(ctx context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byType, ok := m.analyses[a.DealID]
	if !ok {
		byType = make(map[models.AnalysisType]*models.Analysis)
		m.analyses[a.DealID] = byType
	}
	if existing, ok := byType[a.AnalysisType]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		a.ID = m.id()
		a.CreatedAt = time.Now()
	}
	if a.CompletedAt == nil && a.Status == "completed" {
		now := time.Now()
		a.CompletedAt = &now
	}
	cp := *a
	byType[a.AnalysisType] = &cp
	return nil
}

func (m *Memory) ListAnalyses(ctx context.Context, dealID int64) ([]models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byType, ok := m.analyses[dealID]
	if !ok {
		return nil, nil
	}
	var out []models.Analysis
	for _, t := range models.AllAnalysisTypes {
		if a, ok := byType[t]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *Memory) GetAnalysis(ctx context.Context, dealID int64, analysisType models.AnalysisType) (*models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.analyses[dealID][analysisType]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}
