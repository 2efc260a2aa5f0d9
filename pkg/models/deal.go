package models

import (
	"fmt"
	"time"
)

// DealStatus is the closed lifecycle state of a Deal. Transitions are only
// valid through the table below; anything else is rejected by the store and
// the orchestrator rather than silently written.
type DealStatus string

const (
	StatusPending   DealStatus = "pending"
	StatusAnalyzing DealStatus = "analyzing"
	StatusCompleted DealStatus = "completed"
	StatusFailed    DealStatus = "failed"
)

// transitions is the full state machine. Terminal states may only re-enter
// "analyzing" through an explicit re-run command, never implicitly.
var transitions = map[DealStatus][]DealStatus{
	StatusPending:   {StatusAnalyzing},
	StatusAnalyzing: {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusAnalyzing},
	StatusFailed:    {StatusAnalyzing},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s DealStatus) CanTransition(next DealStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a terminal state.
func (s DealStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseDealStatus validates a raw status string from storage.
func ParseDealStatus(raw string) (DealStatus, error) {
	switch DealStatus(raw) {
	case StatusPending, StatusAnalyzing, StatusCompleted, StatusFailed:
		return DealStatus(raw), nil
	}
	return "", fmt.Errorf("unknown deal status %q", raw)
}

// AnalysisType identifies one persisted analysis result for a deal.
type AnalysisType string

const (
	AnalysisQoE            AnalysisType = "qoe"
	AnalysisWorkingCapital AnalysisType = "working_capital"
	AnalysisRatios         AnalysisType = "ratios"
	AnalysisDCF            AnalysisType = "dcf"
	AnalysisRedFlags       AnalysisType = "red_flags"
	AnalysisAnomalies      AnalysisType = "anomalies"
	AnalysisInsights       AnalysisType = "insights"
)

// AllAnalysisTypes lists every analysis the pipeline produces, in run order.
var AllAnalysisTypes = []AnalysisType{
	AnalysisQoE, AnalysisWorkingCapital, AnalysisRatios, AnalysisDCF,
	AnalysisRedFlags, AnalysisAnomalies, AnalysisInsights,
}

// Deal is an M&A transaction under diligence. It owns its Documents and
// Analyses; deleting a deal cascades to both and drops its retrieval index.
type Deal struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	TargetCompany string     `json:"target_company"`
	Industry      string     `json:"industry,omitempty"`
	DealSize      float64    `json:"deal_size,omitempty"`
	Status        DealStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Document is one uploaded source document. Text arrives already decoded to
// plain text; classification and the extracted dataset are filled in by the
// pipeline and stay nil until then.
type Document struct {
	ID                int64             `json:"id"`
	DealID            int64             `json:"deal_id"`
	Filename          string            `json:"filename"`
	ExtractedText     string            `json:"extracted_text,omitempty"`
	DocType           string            `json:"doc_type,omitempty"`
	DocTypeConfidence float64           `json:"doc_type_confidence,omitempty"`
	Dataset           *FinancialDataset `json:"financial_data,omitempty"`
	UploadedAt        time.Time         `json:"uploaded_at"`
}

// Analysis is one persisted result, keyed by (deal, type) and upserted so a
// re-run overwrites rather than duplicates.
type Analysis struct {
	ID           int64        `json:"id"`
	DealID       int64        `json:"deal_id"`
	AnalysisType AnalysisType `json:"analysis_type"`
	Results      []byte       `json:"results,omitempty"` // serialized payload, null when the step was skipped
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
