package calc

import (
	"math"
	"testing"

	"deal_diligence/pkg/models"
)

func dcfDataset() *models.FinancialDataset {
	return &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{
			Revenue: 22_400_000,
			EBITDA:  3_360_000,
		},
		BalanceSheet: models.BalanceSheet{
			Cash:          1_200_000,
			ShortTermDebt: 600_000,
			LongTermDebt:  3_400_000,
		},
	}
}

func TestCalculateDCF_Projection(t *testing.T) {
	res := CalculateDCF(dcfDataset(), Assumptions{})

	if len(res.ProjectedYears) != 5 {
		t.Fatalf("expected 5 projected years, got %d", len(res.ProjectedYears))
	}

	// Year 1: revenue = 22,400,000 * 1.10 = 24,640,000
	// EBITDA margin = 3,360,000 / 22,400,000 = 15%
	y1 := res.ProjectedYears[0]
	if math.Abs(y1.Revenue-24_640_000) > 0.01 {
		t.Errorf("year 1 revenue expected 24,640,000, got %f", y1.Revenue)
	}
	if math.Abs(y1.EBITDA-24_640_000*0.15) > 0.01 {
		t.Errorf("year 1 EBITDA expected %f, got %f", 24_640_000*0.15, y1.EBITDA)
	}
	// FCF = EBITDA - tax(25% of EBITDA) - capex(5% of revenue)
	wantFCF := y1.EBITDA*0.75 - y1.Revenue*0.05
	if math.Abs(y1.FCF-wantFCF) > 1e-6 {
		t.Errorf("year 1 FCF expected %f, got %f", wantFCF, y1.FCF)
	}

	// Growth declines 1% per year: 10%, 9%, 8%, 7%, 6%.
	wantGrowth := []float64{10, 9, 8, 7, 6}
	for i, y := range res.ProjectedYears {
		if math.Abs(y.GrowthRate-wantGrowth[i]) > 1e-9 {
			t.Errorf("year %d growth expected %f, got %f", i+1, wantGrowth[i], y.GrowthRate)
		}
	}
}

func TestCalculateDCF_GrowthFloor(t *testing.T) {
	// Starting at 3% declining 1%/year would hit 0; it floors at 2% instead.
	res := CalculateDCF(dcfDataset(), Assumptions{RevenueGrowthRate: 0.03})
	last := res.ProjectedYears[len(res.ProjectedYears)-1]
	if math.Abs(last.GrowthRate-2.0) > 1e-9 {
		t.Errorf("final year growth expected floor of 2, got %f", last.GrowthRate)
	}
}

func TestCalculateDCF_EquityIdentity(t *testing.T) {
	ds := dcfDataset()
	res := CalculateDCF(ds, Assumptions{})

	// Equity = EV + cash - total debt, exactly.
	want := res.EnterpriseValue + ds.BalanceSheet.Cash - ds.BalanceSheet.TotalDebt()
	if res.EquityValue != want {
		t.Errorf("equity identity broken: %f vs %f", res.EquityValue, want)
	}
}

func TestCalculateDCF_WACCMonotonicity(t *testing.T) {
	// Lower discount rate means higher enterprise value, all else fixed.
	ds := dcfDataset()
	prev := math.Inf(1)
	for _, wacc := range []float64{0.08, 0.10, 0.12, 0.15, 0.20} {
		res := CalculateDCF(ds, Assumptions{WACC: wacc})
		if res.EnterpriseValue >= prev {
			t.Errorf("EV at WACC %.2f (%f) not below EV at lower WACC (%f)",
				wacc, res.EnterpriseValue, prev)
		}
		prev = res.EnterpriseValue
	}
}

func TestCalculateDCF_ZeroRevenue(t *testing.T) {
	res := CalculateDCF(&models.FinancialDataset{}, Assumptions{})
	if math.IsNaN(res.EnterpriseValue) || math.IsInf(res.EnterpriseValue, 0) {
		t.Errorf("EV not finite on zero dataset: %f", res.EnterpriseValue)
	}
	if res.EVToRevenue != 0 || res.EVToEBITDA != 0 {
		t.Errorf("multiples should be 0 on zero dataset, got %f / %f",
			res.EVToRevenue, res.EVToEBITDA)
	}
}
