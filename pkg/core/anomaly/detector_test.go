package anomaly

import (
	"math/rand"
	"testing"

	"deal_diligence/pkg/core/calc"
	"deal_diligence/pkg/models"
)

func TestDetect_AllZeroVectorSkipsForest(t *testing.T) {
	ds := &models.FinancialDataset{}
	out := Detect(ds, calc.CalculateRatios(ds))

	for _, a := range out {
		if a.Metric == "multivariate_profile" {
			t.Errorf("forest layer should skip an all-zero vector, got %+v", a)
		}
	}
}

func TestDetect_RangeLayer(t *testing.T) {
	// Gross margin 70% in range; interest coverage 8x in range; current
	// ratio 0.5 below the 0.8 floor should trip the range layer.
	ds := &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{
			Revenue: 1000, COGS: 300, EBITDA: 240, Interest: 30, NetIncome: 100,
		},
		BalanceSheet: models.BalanceSheet{
			TotalCurrentAssets:      100,
			TotalCurrentLiabilities: 200,
			TotalAssets:             1000,
			TotalLiabilities:        600,
			TotalEquity:             400,
		},
		CashFlow: models.CashFlow{OperatingCF: 110},
	}
	out := Detect(ds, calc.CalculateRatios(ds))

	var found *Anomaly
	for i := range out {
		if out[i].Metric == "current_ratio" {
			found = &out[i]
		}
		if out[i].Metric == "gross_margin" && out[i].Category == categoryStatistical {
			t.Errorf("gross margin 70 flagged while inside 20-80 range")
		}
	}
	if found == nil {
		t.Fatal("current ratio 0.5 not flagged against 0.8-3.0 range")
	}
	if found.Category != categoryStatistical {
		t.Errorf("range-layer anomaly category %q, want statistical", found.Category)
	}
	if found.Anomaly != "Unusual Current Ratio" {
		t.Errorf("unexpected title %q", found.Anomaly)
	}
}

func TestDetect_RuleLayer(t *testing.T) {
	// EBITDA above revenue and a balance sheet off by 20%.
	ds := &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{Revenue: 1000, EBITDA: 1200, NetIncome: 500},
		BalanceSheet: models.BalanceSheet{
			TotalAssets:      1000,
			TotalLiabilities: 500,
			TotalEquity:      300,
		},
		CashFlow: models.CashFlow{OperatingCF: 50},
	}
	out := Detect(ds, calc.CalculateRatios(ds))

	want := map[string]string{
		"ebitda_vs_revenue": "critical",
		"bs_balance":        "high",
		"ocf_to_net_income": "high", // 50/500 = 0.1 < 0.3
	}
	for metric, sev := range want {
		ok := false
		for _, a := range out {
			if a.Metric == metric && a.Category == categoryRuleBased {
				ok = true
				if a.Severity != sev {
					t.Errorf("%s severity %q, want %q", metric, a.Severity, sev)
				}
			}
		}
		if !ok {
			t.Errorf("rule layer missed %s", metric)
		}
	}
}

func TestDetect_Deterministic(t *testing.T) {
	ds := &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{
			Revenue: 1000, COGS: 10, EBITDA: 900, Interest: 1, NetIncome: 800,
		},
		BalanceSheet: models.BalanceSheet{
			TotalCurrentAssets:      5000,
			TotalCurrentLiabilities: 100,
			TotalAssets:             6000,
			TotalLiabilities:        200,
			TotalEquity:             5800,
		},
		CashFlow: models.CashFlow{OperatingCF: 4000},
	}
	ratios := calc.CalculateRatios(ds)

	a := Detect(ds, ratios)
	b := Detect(ds, ratios)
	if len(a) != len(b) {
		t.Fatalf("nondeterministic anomaly count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("anomaly %d differs between runs:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func TestIsoForest_OutlierScoresLower(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	train := make([][]float64, 100)
	for i := range train {
		train[i] = []float64{rng.Float64(), rng.Float64()}
	}
	scaled, sc := standardScale(train)
	f := fitForest(rng, scaled)

	center := f.Decision(sc.transform([]float64{0.5, 0.5}))
	outlier := f.Decision(sc.transform([]float64{25, -25}))

	if outlier >= center {
		t.Errorf("outlier score %f not below center score %f", outlier, center)
	}
	if outlier >= 0 {
		t.Errorf("far outlier should score negative, got %f", outlier)
	}
}
