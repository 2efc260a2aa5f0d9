package calc

import (
	"math"

	"deal_diligence/pkg/models"
)

// =============================================================================
// DCF VALUATION
// =============================================================================

// Assumptions parameterize the projection. Zero-value fields fall back to
// DefaultAssumptions, so callers may override selectively.
type Assumptions struct {
	ProjectionYears      int     `json:"projection_years" yaml:"projection_years"`
	RevenueGrowthRate    float64 `json:"revenue_growth_rate" yaml:"revenue_growth_rate"`
	GrowthDeclinePerYear float64 `json:"growth_decline_per_year" yaml:"growth_decline_per_year"`
	CapexPctRevenue      float64 `json:"capex_pct_revenue" yaml:"capex_pct_revenue"`
	TaxRate              float64 `json:"tax_rate" yaml:"tax_rate"`
	WACC                 float64 `json:"wacc" yaml:"wacc"`
	TerminalGrowthRate   float64 `json:"terminal_growth_rate" yaml:"terminal_growth_rate"`
}

// DefaultAssumptions returns mid-market baseline assumptions.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		ProjectionYears:      5,
		RevenueGrowthRate:    0.10,
		GrowthDeclinePerYear: 0.01,
		CapexPctRevenue:      0.05,
		TaxRate:              0.25,
		WACC:                 0.12,
		TerminalGrowthRate:   0.03,
	}
}

func (a Assumptions) withDefaults() Assumptions {
	def := DefaultAssumptions()
	if a.ProjectionYears <= 0 {
		a.ProjectionYears = def.ProjectionYears
	}
	if a.RevenueGrowthRate == 0 {
		a.RevenueGrowthRate = def.RevenueGrowthRate
	}
	if a.GrowthDeclinePerYear == 0 {
		a.GrowthDeclinePerYear = def.GrowthDeclinePerYear
	}
	if a.CapexPctRevenue == 0 {
		a.CapexPctRevenue = def.CapexPctRevenue
	}
	if a.TaxRate == 0 {
		a.TaxRate = def.TaxRate
	}
	if a.WACC == 0 {
		a.WACC = def.WACC
	}
	if a.TerminalGrowthRate == 0 {
		a.TerminalGrowthRate = def.TerminalGrowthRate
	}
	return a
}

type ProjectedYear struct {
	Year           int     `json:"year"`
	Revenue        float64 `json:"revenue"`
	EBITDA         float64 `json:"ebitda"`
	FCF            float64 `json:"fcf"`
	DiscountFactor float64 `json:"discount_factor"`
	PVFCF          float64 `json:"pv_fcf"`
	GrowthRate     float64 `json:"growth_rate"` // percent
}

type DCFResult struct {
	Assumptions         Assumptions     `json:"assumptions"`
	ProjectedYears      []ProjectedYear `json:"projected_years"`
	TerminalValue       float64         `json:"terminal_value"`
	PVTerminalValue     float64         `json:"pv_terminal_value"`
	SumPVFCF            float64         `json:"sum_pv_fcf"`
	EnterpriseValue     float64         `json:"enterprise_value"`
	EquityValue         float64         `json:"equity_value"`
	EVToRevenue         float64         `json:"ev_to_revenue"`
	EVToEBITDA          float64         `json:"ev_to_ebitda"`
	CurrentEBITDAMargin float64         `json:"current_ebitda_margin"` // percent
}

// CalculateDCF runs a five-year projection with declining growth (floored at
// 2%) at a constant base-period EBITDA margin, then a Gordon-growth terminal
// value. Equity value = enterprise value + cash - total debt, exactly.
func CalculateDCF(ds *models.FinancialDataset, a Assumptions) DCFResult {
	a = a.withDefaults()

	inc := ds.IncomeStatement
	bs := ds.BalanceSheet

	baseRevenue := inc.Revenue
	ebitdaMargin := safeDiv(inc.EBITDA, baseRevenue)
	totalDebt := bs.TotalDebt()

	years := make([]ProjectedYear, 0, a.ProjectionYears)
	revenue := baseRevenue
	var sumPV float64
	for year := 1; year <= a.ProjectionYears; year++ {
		growth := math.Max(0.02, a.RevenueGrowthRate-float64(year-1)*a.GrowthDeclinePerYear)
		revenue *= 1 + growth
		ebitda := revenue * ebitdaMargin
		fcf := ebitda - ebitda*a.TaxRate - revenue*a.CapexPctRevenue
		df := 1 / math.Pow(1+a.WACC, float64(year))
		pv := fcf * df
		sumPV += pv
		years = append(years, ProjectedYear{
			Year:           year,
			Revenue:        revenue,
			EBITDA:         ebitda,
			FCF:            fcf,
			DiscountFactor: df,
			PVFCF:          pv,
			GrowthRate:     growth * 100,
		})
	}

	var terminalValue, pvTerminal float64
	if len(years) > 0 && a.WACC > a.TerminalGrowthRate {
		finalFCF := years[len(years)-1].FCF
		terminalValue = finalFCF * (1 + a.TerminalGrowthRate) / (a.WACC - a.TerminalGrowthRate)
		pvTerminal = terminalValue / math.Pow(1+a.WACC, float64(a.ProjectionYears))
	}

	ev := sumPV + pvTerminal
	equity := ev + bs.Cash - totalDebt

	return DCFResult{
		Assumptions:         a,
		ProjectedYears:      years,
		TerminalValue:       terminalValue,
		PVTerminalValue:     pvTerminal,
		SumPVFCF:            sumPV,
		EnterpriseValue:     ev,
		EquityValue:         equity,
		EVToRevenue:         safeDiv(ev, baseRevenue),
		EVToEBITDA:          safeDiv(ev, inc.EBITDA),
		CurrentEBITDAMargin: ebitdaMargin * 100,
	}
}
