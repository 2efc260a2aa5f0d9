package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deal_diligence/pkg/models"
)

// Postgres implements Store on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS deals (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	target_company TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	deal_size TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	deal_id BIGINT NOT NULL REFERENCES deals(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	extracted_text TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	doc_type_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	dataset JSONB,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id BIGSERIAL PRIMARY KEY,
	deal_id BIGINT NOT NULL REFERENCES deals(id) ON DELETE CASCADE,
	analysis_type TEXT NOT NULL,
	results JSONB,
	status TEXT NOT NULL DEFAULT 'completed',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	UNIQUE (deal_id, analysis_type)
);

CREATE INDEX IF NOT EXISTS idx_documents_deal ON documents(deal_id);
CREATE INDEX IF NOT EXISTS idx_analyses_deal ON analyses(deal_id);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// =====================
// Deals
// =====================

func (s *Postgres) CreateDeal(ctx context.Context, deal *models.Deal) error {
	if deal.Status == "" {
		deal.Status = models.StatusPending
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO deals (name, target_company, industry, deal_size, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		deal.Name, deal.TargetCompany, deal.Industry, deal.DealSize, string(deal.Status),
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (s *Postgres) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	deal := &models.Deal{}
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, target_company, industry, deal_size, status, created_at, updated_at
		FROM deals WHERE id = $1`, id,
	).Scan(&deal.ID, &deal.Name, &deal.TargetCompany, &deal.Industry,
		&deal.DealSize, &status, &deal.CreatedAt, &deal.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal %d: %w", id, err)
	}
	deal.Status = models.DealStatus(status)
	return deal, nil
}

func (s *Postgres) ListDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, target_company, industry, deal_size, status, created_at, updated_at
		FROM deals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		var status string
		if err := rows.Scan(&d.ID, &d.Name, &d.TargetCompany, &d.Industry,
			&d.DealSize, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		d.Status = models.DealStatus(status)
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *Postgres) DeleteDeal(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deal %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) TransitionDeal(ctx context.Context, id int64, from, to models.DealStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE deals SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition deal %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// =====================
// Documents
// =====================

func (s *Postgres) AddDocument(ctx context.Context, doc *models.Document) error {
	var dataset []byte
	if doc.Dataset != nil {
		var err error
		dataset, err = json.Marshal(doc.Dataset)
		if err != nil {
			return fmt.Errorf("failed to marshal dataset: %w", err)
		}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO documents (deal_id, filename, extracted_text, doc_type, doc_type_confidence, dataset)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at`,
		doc.DealID, doc.Filename, doc.ExtractedText, doc.DocType, doc.DocTypeConfidence, dataset,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := scanDocument(s.pool.QueryRow(ctx, `
		SELECT id, deal_id, filename, extracted_text, doc_type, doc_type_confidence, dataset, uploaded_at
		FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return doc, nil
}

func (s *Postgres) ListDocuments(ctx context.Context, dealID int64) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, filename, extracted_text, doc_type, doc_type_confidence, dataset, uploaded_at
		FROM documents WHERE deal_id = $1 ORDER BY id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for deal %d: %w", dealID, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	var dataset []byte
	if err := row.Scan(&doc.ID, &doc.DealID, &doc.Filename, &doc.ExtractedText,
		&doc.DocType, &doc.DocTypeConfidence, &dataset, &doc.UploadedAt); err != nil {
		return nil, err
	}
	if len(dataset) > 0 {
		doc.Dataset = &models.FinancialDataset{}
		if err := json.Unmarshal(dataset, doc.Dataset); err != nil {
			return nil, fmt.Errorf("corrupt dataset payload: %w", err)
		}
	}
	return doc, nil
}

func (s *Postgres) UpdateDocumentExtraction(ctx context.Context, id int64, docType string, confidence float64, dataset *models.FinancialDataset) error {
	var payload []byte
	if dataset != nil {
		var err error
		payload, err = json.Marshal(dataset)
		if err != nil {
			return fmt.Errorf("failed to marshal dataset: %w", err)
		}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET doc_type = $1, doc_type_confidence = $2, dataset = $3
		WHERE id = $4`,
		docType, confidence, payload, id)
	if err != nil {
		return fmt.Errorf("failed to update document %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =====================
// Analyses
// =====================

func (s *Postgres) UpsertAnalysis(ctx context.Context, a *models.Analysis) error {
	completedAt := a.CompletedAt
	if completedAt == nil && a.Status == "completed" {
		now := time.Now()
		completedAt = &now
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO analyses (deal_id, analysis_type, results, status, error_message, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (deal_id, analysis_type)
		DO UPDATE SET
			results = EXCLUDED.results,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at
		RETURNING id, created_at`,
		a.DealID, string(a.AnalysisType), a.Results, a.Status, a.ErrorMessage, completedAt,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert %s analysis for deal %d: %w", a.AnalysisType, a.DealID, err)
	}
	a.CompletedAt = completedAt
	return nil
}

func (s *Postgres) ListAnalyses(ctx context.Context, dealID int64) ([]models.Analysis, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, analysis_type, results, status, error_message, created_at, completed_at
		FROM analyses WHERE deal_id = $1 ORDER BY id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for deal %d: %w", dealID, err)
	}
	defer rows.Close()

	var out []models.Analysis
	for rows.Next() {
		var a models.Analysis
		var analysisType string
		if err := rows.Scan(&a.ID, &a.DealID, &analysisType, &a.Results,
			&a.Status, &a.ErrorMessage, &a.CreatedAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.AnalysisType = models.AnalysisType(analysisType)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) GetAnalysis(ctx context.Context, dealID int64, analysisType models.AnalysisType) (*models.Analysis, error) {
	a := &models.Analysis{}
	var at string
	err := s.pool.QueryRow(ctx, `
		SELECT id, deal_id, analysis_type, results, status, error_message, created_at, completed_at
		FROM analyses WHERE deal_id = $1 AND analysis_type = $2`,
		dealID, string(analysisType),
	).Scan(&a.ID, &a.DealID, &at, &a.Results, &a.Status, &a.ErrorMessage, &a.CreatedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s analysis for deal %d: %w", analysisType, dealID, err)
	}
	a.AnalysisType = models.AnalysisType(at)
	return a, nil
}
