package calc

import "deal_diligence/pkg/models"

// =============================================================================
// WORKING CAPITAL / CASH CONVERSION CYCLE
// =============================================================================

type WorkingCapitalResult struct {
	CurrentAssets       float64 `json:"current_assets"`
	CurrentLiabilities  float64 `json:"current_liabilities"`
	NetWorkingCapital   float64 `json:"net_working_capital"`
	CurrentRatio        float64 `json:"current_ratio"`
	DSO                 float64 `json:"dso"`
	DIO                 float64 `json:"dio"`
	DPO                 float64 `json:"dpo"`
	CashConversionCycle float64 `json:"cash_conversion_cycle"`
	NWCPctRevenue       float64 `json:"nwc_as_pct_revenue"`
	Assessment          string  `json:"assessment"`
}

// AnalyzeWorkingCapital derives the operating-cycle metrics from a dataset.
func AnalyzeWorkingCapital(ds *models.FinancialDataset) WorkingCapitalResult {
	bs := ds.BalanceSheet
	inc := ds.IncomeStatement

	nwc := bs.TotalCurrentAssets - bs.TotalCurrentLiabilities
	dso := safeDiv(bs.AccountsReceivable, inc.Revenue) * 365
	dio := safeDiv(bs.Inventory, inc.COGS) * 365
	dpo := safeDiv(bs.AccountsPayable, inc.COGS) * 365
	ccc := dso + dio - dpo

	var assessment string
	switch {
	case ccc < 30:
		assessment = "Excellent cash conversion — business collects fast and pays strategically."
	case ccc < 60:
		assessment = "Healthy working capital cycle within normal operating range."
	case ccc < 90:
		assessment = "Moderate efficiency — cash tied up for a notable period. Investigate AR aging."
	default:
		assessment = "Poor cash conversion — significant capital locked in working capital. Immediate attention needed."
	}

	return WorkingCapitalResult{
		CurrentAssets:       bs.TotalCurrentAssets,
		CurrentLiabilities:  bs.TotalCurrentLiabilities,
		NetWorkingCapital:   nwc,
		CurrentRatio:        safeDiv(bs.TotalCurrentAssets, bs.TotalCurrentLiabilities),
		DSO:                 dso,
		DIO:                 dio,
		DPO:                 dpo,
		CashConversionCycle: ccc,
		NWCPctRevenue:       safeDiv(nwc, inc.Revenue) * 100,
		Assessment:          assessment,
	}
}
