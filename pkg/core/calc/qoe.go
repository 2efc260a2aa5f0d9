package calc

import (
	"math"

	"deal_diligence/pkg/models"
)

// =============================================================================
// QUALITY OF EARNINGS
// =============================================================================

// QoEResult carries the normalized-earnings view of a dataset.
type QoEResult struct {
	ReportedEBITDA         float64             `json:"reported_ebitda"`
	AdjustedEBITDA         float64             `json:"adjusted_ebitda"`
	TotalAdjustments       float64             `json:"total_adjustments"`
	Adjustments            []models.Adjustment `json:"adjustments"`
	QualityScore           int                 `json:"quality_score"`
	EarningsSustainability string              `json:"earnings_sustainability"`
	EBITDAMargin           float64             `json:"ebitda_margin"`
	AdjustedEBITDAMargin   float64             `json:"adjusted_ebitda_margin"`
}

// AnalyzeQoE computes reported and adjusted EBITDA and scores earnings quality.
// Invariant: AdjustedEBITDA - ReportedEBITDA == TotalAdjustments exactly.
func AnalyzeQoE(ds *models.FinancialDataset) QoEResult {
	inc := ds.IncomeStatement

	// Reported EBITDA = Net Income + Interest + Tax + Depreciation
	reported := inc.NetIncome + inc.Interest + inc.Tax + inc.Depreciation

	adjustments := make([]models.Adjustment, len(ds.Adjustments))
	copy(adjustments, ds.Adjustments)

	var totalAdj float64
	for i := range adjustments {
		totalAdj += adjustments[i].Amount
		if adjustments[i].Amount > 0 {
			adjustments[i].Impact = "add_back"
		} else {
			adjustments[i].Impact = "deduction"
		}
	}
	adjusted := reported + totalAdj

	// Quality score: start at 80, penalize by adjustment magnitude, adjustment
	// character, and an operating-cost overrun.
	score := 80
	magnitude := safeDiv(math.Abs(totalAdj), math.Max(math.Abs(reported), 1))
	switch {
	case magnitude > 0.25:
		score -= 30
	case magnitude > 0.10:
		score -= 15
	case magnitude > 0.05:
		score -= 5
	}
	for _, adj := range adjustments {
		switch adj.Category {
		case models.AdjustmentNonRecurring:
			score -= 10
		case models.AdjustmentRelatedParty:
			score -= 8
		case models.AdjustmentOwnerCompensation:
			score -= 5
		}
	}
	if inc.Revenue > 0 && inc.Revenue < inc.OperatingExpenses {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	sustainability := "low"
	if score >= 70 {
		sustainability = "high"
	} else if score >= 40 {
		sustainability = "medium"
	}

	return QoEResult{
		ReportedEBITDA:         reported,
		AdjustedEBITDA:         adjusted,
		TotalAdjustments:       totalAdj,
		Adjustments:            adjustments,
		QualityScore:           score,
		EarningsSustainability: sustainability,
		EBITDAMargin:           safeDiv(reported, inc.Revenue) * 100,
		AdjustedEBITDAMargin:   safeDiv(adjusted, inc.Revenue) * 100,
	}
}
