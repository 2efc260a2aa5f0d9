// Package anomaly flags statistically or structurally unusual financial
// profiles. Three additive layers run over the same ratio feature vector:
// per-metric benchmark ranges, a multivariate isolation forest trained on
// synthetic mid-market samples, and hard domain rules.
package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"deal_diligence/pkg/core/calc"
	"deal_diligence/pkg/models"
)

type Anomaly struct {
	Anomaly       string  `json:"anomaly"`
	Severity      string  `json:"severity"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
	ExpectedRange string  `json:"expected_range"`
}

const (
	categoryStatistical = "statistical"
	categoryRuleBased   = "rule_based"
)

type benchmark struct {
	metric string
	low    float64
	high   float64
}

// Approximate mid-market benchmark ranges. Order matters for deterministic
// output and for the forest feature vector.
var benchmarks = []benchmark{
	{"gross_margin", 20, 80},
	{"net_margin", -5, 25},
	{"current_ratio", 0.8, 3.0},
	{"debt_to_equity", 0.2, 3.5},
	{"asset_turnover", 0.3, 2.5},
	{"ocf_to_net_income", 0.5, 2.5},
	{"interest_coverage", 1.5, 30},
	{"ebitda_margin", 5, 40},
}

// featureOrder fixes the forest's feature vector layout.
var featureOrder = []string{
	"gross_margin", "net_margin", "ebitda_margin", "current_ratio",
	"debt_to_equity", "asset_turnover", "ocf_to_net_income", "interest_coverage",
}

func featureMap(r calc.RatioAnalysis) map[string]float64 {
	return map[string]float64{
		"gross_margin":      r.Profitability.GrossMargin,
		"net_margin":        r.Profitability.NetMargin,
		"ebitda_margin":     r.Profitability.EBITDAMargin,
		"current_ratio":     r.Liquidity.CurrentRatio,
		"debt_to_equity":    r.Leverage.DebtToEquity,
		"asset_turnover":    r.Efficiency.AssetTurnover,
		"ocf_to_net_income": r.CashFlow.OCFToNetIncome,
		"interest_coverage": r.Leverage.InterestCoverage,
	}
}

func titleMetric(metric string) string {
	parts := strings.Split(metric, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Detect runs all three layers and returns the combined anomaly list.
// It never errors: the forest layer skips degenerate input and benchmark
// ranges are fixed at compile time.
func Detect(ds *models.FinancialDataset, ratios calc.RatioAnalysis) []Anomaly {
	out := []Anomaly{}
	features := featureMap(ratios)

	// Layer 1: per-metric range and z-score checks.
	for _, b := range benchmarks {
		value := features[b.metric]
		mid := (b.low + b.high) / 2
		spread := (b.high - b.low) / 2
		if spread <= 0 {
			continue
		}
		if value < b.low || value > b.high {
			z := (value - mid) / spread
			if z < 0 {
				z = -z
			}
			severity := "medium"
			if z > 3 {
				severity = "critical"
			} else if z > 2 {
				severity = "high"
			}
			direction := "above"
			if value < b.low {
				direction = "below"
			}
			out = append(out, Anomaly{
				Anomaly:  "Unusual " + titleMetric(b.metric),
				Severity: severity,
				Category: categoryStatistical,
				Description: fmt.Sprintf("%s of %.1f is %s the typical range (%g-%g). Z-score: %.1f.",
					titleMetric(b.metric), value, direction, b.low, b.high, z),
				Metric:        b.metric,
				Value:         value,
				ExpectedRange: fmt.Sprintf("%g - %g", b.low, b.high),
			})
		}
	}

	// Layer 2: isolation forest over the full feature vector.
	if a := multivariateCheck(features); a != nil {
		out = append(out, *a)
	}

	// Layer 3: domain rules.
	out = append(out, domainChecks(ds, features)...)
	return out
}

// multivariateCheck trains a forest on synthetic samples drawn uniformly
// from the benchmark ranges and scores the live vector against it. Fixed
// seed keeps reruns reproducible. All-zero vectors are skipped; with no
// data there is nothing to profile.
func multivariateCheck(features map[string]float64) *Anomaly {
	x := make([]float64, len(featureOrder))
	allZero := true
	for i, name := range featureOrder {
		x[i] = features[name]
		if x[i] != 0 {
			allZero = false
		}
	}
	if allZero {
		return nil
	}

	ranges := make(map[string][2]float64, len(benchmarks))
	for _, b := range benchmarks {
		ranges[b.metric] = [2]float64{b.low, b.high}
	}

	rng := rand.New(rand.NewSource(42))
	train := make([][]float64, 100)
	for i := range train {
		row := make([]float64, len(featureOrder))
		for j, name := range featureOrder {
			r := ranges[name]
			row[j] = r[0] + rng.Float64()*(r[1]-r[0])
		}
		train[i] = row
	}

	scaled, scaler := standardScale(train)
	forest := fitForest(rng, scaled)
	score := forest.Decision(scaler.transform(x))
	if score >= 0 {
		return nil
	}

	severity := "medium"
	if score < -0.3 {
		severity = "high"
	}
	return &Anomaly{
		Anomaly:  "Multivariate Financial Profile Anomaly",
		Severity: severity,
		Category: categoryStatistical,
		Description: fmt.Sprintf("The combination of financial metrics is statistically unusual "+
			"compared to typical mid-market companies (anomaly score: %.2f). "+
			"This may indicate unique business characteristics or data quality issues.", score),
		Metric:        "multivariate_profile",
		Value:         score,
		ExpectedRange: "> 0 (normal)",
	}
}

func domainChecks(ds *models.FinancialDataset, features map[string]float64) []Anomaly {
	var out []Anomaly
	inc := ds.IncomeStatement
	bs := ds.BalanceSheet

	if gm := features["gross_margin"]; gm > 95 {
		out = append(out, Anomaly{
			Anomaly:       "Suspiciously High Gross Margin",
			Severity:      "high",
			Category:      categoryRuleBased,
			Description:   fmt.Sprintf("Gross margin of %.1f%% is extremely unusual. Verify COGS classification.", gm),
			Metric:        "gross_margin",
			Value:         gm,
			ExpectedRange: "20-80%",
		})
	}

	if inc.Revenue > 0 && inc.EBITDA > inc.Revenue {
		out = append(out, Anomaly{
			Anomaly:       "EBITDA Exceeds Revenue",
			Severity:      "critical",
			Category:      categoryRuleBased,
			Description:   "EBITDA greater than revenue is mathematically impossible. Data error likely.",
			Metric:        "ebitda_vs_revenue",
			Value:         inc.EBITDA,
			ExpectedRange: fmt.Sprintf("< %g", inc.Revenue),
		})
	}

	totalLE := bs.TotalLiabilities + bs.TotalEquity
	if diff := bs.TotalAssets - totalLE; bs.TotalAssets > 0 && (diff > bs.TotalAssets*0.01 || -diff > bs.TotalAssets*0.01) {
		out = append(out, Anomaly{
			Anomaly:  "Balance Sheet Imbalance",
			Severity: "high",
			Category: categoryRuleBased,
			Description: fmt.Sprintf("Assets (%.0f) do not equal liabilities plus equity (%.0f). "+
				"Balance sheet does not balance.", bs.TotalAssets, totalLE),
			Metric:        "bs_balance",
			Value:         diff,
			ExpectedRange: "0 (balanced)",
		})
	}

	ocf, ni := ds.CashFlow.OperatingCF, inc.NetIncome
	if ni > 0 && ocf > 0 {
		if ratio := ocf / ni; ratio < 0.3 {
			out = append(out, Anomaly{
				Anomaly:  "Low Cash Conversion",
				Severity: "high",
				Category: categoryRuleBased,
				Description: fmt.Sprintf("OCF/Net Income of %.2f, earnings not converting to cash. "+
					"Possible aggressive revenue recognition or accrual issues.", ratio),
				Metric:        "ocf_to_net_income",
				Value:         ratio,
				ExpectedRange: "0.8 - 1.5",
			})
		}
	}
	return out
}

// =====================
// Standard scaler
// =====================

type scaler struct {
	mean []float64
	std  []float64
}

func standardScale(data [][]float64) ([][]float64, *scaler) {
	n := len(data)
	dims := len(data[0])
	s := &scaler{mean: make([]float64, dims), std: make([]float64, dims)}

	for j := 0; j < dims; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += data[i][j]
		}
		s.mean[j] = sum / float64(n)
	}
	for j := 0; j < dims; j++ {
		var sq float64
		for i := 0; i < n; i++ {
			d := data[i][j] - s.mean[j]
			sq += d * d
		}
		s.std[j] = math.Sqrt(sq / float64(n))
		if s.std[j] == 0 {
			s.std[j] = 1
		}
	}

	out := make([][]float64, n)
	for i := range data {
		out[i] = s.transform(data[i])
	}
	return out, s
}

func (s *scaler) transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - s.mean[j]) / s.std[j]
	}
	return out
}
