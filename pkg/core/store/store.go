// Package store persists deals, documents and analysis results. Postgres
// (pgx) is the production backend; Memory backs tests and local runs.
package store

import (
	"context"
	"errors"

	"deal_diligence/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the pipeline and API depend on.
type Store interface {
	CreateDeal(ctx context.Context, deal *models.Deal) error
	GetDeal(ctx context.Context, id int64) (*models.Deal, error)
	ListDeals(ctx context.Context) ([]models.Deal, error)
	DeleteDeal(ctx context.Context, id int64) error
	// TransitionDeal moves a deal between statuses with compare-and-set
	// semantics: it succeeds only if the deal is currently in from.
	TransitionDeal(ctx context.Context, id int64, from, to models.DealStatus) (bool, error)

	AddDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, dealID int64) ([]models.Document, error)
	UpdateDocumentExtraction(ctx context.Context, id int64, docType string, confidence float64, dataset *models.FinancialDataset) error

	// UpsertAnalysis inserts or replaces the analysis row for the deal and
	// type; each (deal, type) pair holds at most one row.
	UpsertAnalysis(ctx context.Context, a *models.Analysis) error
	ListAnalyses(ctx context.Context, dealID int64) ([]models.Analysis, error)
	GetAnalysis(ctx context.Context, dealID int64, analysisType models.AnalysisType) (*models.Analysis, error)
}
