package calc

import "deal_diligence/pkg/models"

// =============================================================================
// FINANCIAL RATIOS + COMPOSITE HEALTH SCORE
// =============================================================================

type LiquidityRatios struct {
	CurrentRatio float64 `json:"current_ratio"`
	QuickRatio   float64 `json:"quick_ratio"`
	CashRatio    float64 `json:"cash_ratio"`
}

type ProfitabilityRatios struct {
	GrossMargin     float64 `json:"gross_margin"`
	EBITDAMargin    float64 `json:"ebitda_margin"`
	OperatingMargin float64 `json:"operating_margin"`
	NetMargin       float64 `json:"net_margin"`
	ROE             float64 `json:"roe"`
	ROA             float64 `json:"roa"`
}

type LeverageRatios struct {
	DebtToEquity     float64 `json:"debt_to_equity"`
	DebtToAssets     float64 `json:"debt_to_assets"`
	InterestCoverage float64 `json:"interest_coverage"`
	DebtToEBITDA     float64 `json:"debt_to_ebitda"`
}

type EfficiencyRatios struct {
	AssetTurnover       float64 `json:"asset_turnover"`
	InventoryTurnover   float64 `json:"inventory_turnover"`
	ReceivablesTurnover float64 `json:"receivables_turnover"`
}

type CashFlowRatios struct {
	OCFToNetIncome float64 `json:"ocf_to_net_income"`
	FCFMargin      float64 `json:"fcf_margin"`
}

type RatioAnalysis struct {
	Liquidity          LiquidityRatios     `json:"liquidity"`
	Profitability      ProfitabilityRatios `json:"profitability"`
	Leverage           LeverageRatios      `json:"leverage"`
	Efficiency         EfficiencyRatios    `json:"efficiency"`
	CashFlow           CashFlowRatios      `json:"cash_flow"`
	OverallHealthScore int                 `json:"overall_health_score"`
	HealthRating       string              `json:"health_rating"`
}

// CalculateRatios computes the full ratio suite and the weighted composite
// health score. Margins are expressed in percent; pure ratios are unitless.
func CalculateRatios(ds *models.FinancialDataset) RatioAnalysis {
	inc := ds.IncomeStatement
	bs := ds.BalanceSheet
	cf := ds.CashFlow

	grossProfit := inc.GrossProfit
	if grossProfit == 0 {
		grossProfit = inc.Revenue - inc.COGS
	}
	totalDebt := bs.TotalDebt()

	r := RatioAnalysis{
		Liquidity: LiquidityRatios{
			CurrentRatio: safeDiv(bs.TotalCurrentAssets, bs.TotalCurrentLiabilities),
			QuickRatio:   safeDiv(bs.TotalCurrentAssets-bs.Inventory, bs.TotalCurrentLiabilities),
			CashRatio:    safeDiv(bs.Cash, bs.TotalCurrentLiabilities),
		},
		Profitability: ProfitabilityRatios{
			GrossMargin:     safeDiv(grossProfit, inc.Revenue) * 100,
			EBITDAMargin:    safeDiv(inc.EBITDA, inc.Revenue) * 100,
			OperatingMargin: safeDiv(inc.EBITDA, inc.Revenue) * 100,
			NetMargin:       safeDiv(inc.NetIncome, inc.Revenue) * 100,
			ROE:             safeDiv(inc.NetIncome, bs.TotalEquity) * 100,
			ROA:             safeDiv(inc.NetIncome, bs.TotalAssets) * 100,
		},
		Leverage: LeverageRatios{
			DebtToEquity:     safeDiv(bs.TotalLiabilities, bs.TotalEquity),
			DebtToAssets:     safeDiv(bs.TotalLiabilities, bs.TotalAssets),
			InterestCoverage: safeDiv(inc.EBITDA, inc.Interest),
			DebtToEBITDA:     safeDiv(totalDebt, inc.EBITDA),
		},
		Efficiency: EfficiencyRatios{
			AssetTurnover:       safeDiv(inc.Revenue, bs.TotalAssets),
			InventoryTurnover:   safeDiv(inc.COGS, bs.Inventory),
			ReceivablesTurnover: safeDiv(inc.Revenue, bs.AccountsReceivable),
		},
		CashFlow: CashFlowRatios{
			OCFToNetIncome: safeDiv(cf.OperatingCF, inc.NetIncome),
			FCFMargin:      safeDiv(cf.FCF, inc.Revenue) * 100,
		},
	}

	// Composite health score: each pillar normalized against a fixed reference
	// scale, clamped to [0,100], then blended 20/25/20/15/20.
	liq := clamp(r.Liquidity.CurrentRatio/2.0*100, 0, 100)
	prof := clamp(r.Profitability.NetMargin/20.0*100, 0, 100)
	lev := clamp((4.0-r.Leverage.DebtToEquity)/3.0*100, 0, 100)
	eff := clamp(r.Efficiency.AssetTurnover/1.0*100, 0, 100)
	cfs := clamp(r.CashFlow.OCFToNetIncome/1.5*100, 0, 100)

	health := int(liq*0.20 + prof*0.25 + lev*0.20 + eff*0.15 + cfs*0.20)
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}
	r.OverallHealthScore = health
	r.HealthRating = healthRating(health)
	return r
}

func healthRating(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 65:
		return "Good"
	case score >= 45:
		return "Fair"
	case score >= 25:
		return "Concerning"
	default:
		return "Critical"
	}
}
