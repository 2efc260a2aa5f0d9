// Package flags evaluates computed financials against fixed diligence
// thresholds. Twelve checks across three severities; each breach emits one
// flag record. The engine is stateless and never errors: inputs are the
// already-guarded outputs of the calc package.
package flags

import (
	"fmt"

	"deal_diligence/pkg/core/calc"
	"deal_diligence/pkg/models"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type RedFlag struct {
	Flag        string   `json:"flag"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Metric      string   `json:"metric"`
	Value       float64  `json:"value"`
	Threshold   float64  `json:"threshold"`
}

// Detect runs every check and returns the triggered flags, high severity
// first. Returns an empty slice, never nil, when nothing triggers.
func Detect(ds *models.FinancialDataset, ratios calc.RatioAnalysis, wc calc.WorkingCapitalResult, qoe calc.QoEResult) []RedFlag {
	out := []RedFlag{}
	add := func(flag string, sev Severity, desc, metric string, value, threshold float64) {
		out = append(out, RedFlag{Flag: flag, Severity: sev, Description: desc,
			Metric: metric, Value: value, Threshold: threshold})
	}

	// High severity.
	if cr := ratios.Liquidity.CurrentRatio; cr < 1.0 {
		add("Low Liquidity", SeverityHigh,
			fmt.Sprintf("Current ratio of %.2f, liabilities exceed current assets.", cr),
			"current_ratio", cr, 1.0)
	}
	if dte := ratios.Leverage.DebtToEquity; dte > 3.0 {
		add("Excessive Leverage", SeverityHigh,
			fmt.Sprintf("Debt-to-equity of %.2f, heavily debt-financed.", dte),
			"debt_to_equity", dte, 3.0)
	}
	if ic := ratios.Leverage.InterestCoverage; ic > 0 && ic < 1.5 {
		add("Cannot Cover Interest", SeverityHigh,
			fmt.Sprintf("Interest coverage of %.2fx, earnings barely cover interest.", ic),
			"interest_coverage", ic, 1.5)
	}
	ocf := ds.CashFlow.OperatingCF
	if ocf < 0 {
		add("Negative Operating Cash Flow", SeverityHigh,
			"Core operations are cash-negative.",
			"operating_cf", ocf, 0)
	}
	if qs := float64(qoe.QualityScore); qs < 30 {
		add("Severe Earnings Quality Issues", SeverityHigh,
			fmt.Sprintf("QoE score %.0f/100, earnings are unreliable.", qs),
			"quality_score", qs, 30)
	}

	// Medium severity.
	if wc.DSO > 60 {
		add("Slow Collections", SeverityMedium,
			fmt.Sprintf("DSO of %.0f days, over 2 months to collect.", wc.DSO),
			"dso", wc.DSO, 60)
	}
	if wc.CashConversionCycle > 90 {
		add("Long Cash Cycle", SeverityMedium,
			fmt.Sprintf("CCC of %.0f days, significant working capital drag.", wc.CashConversionCycle),
			"cash_conversion_cycle", wc.CashConversionCycle, 90)
	}
	if gm := ratios.Profitability.GrossMargin; gm < 20 {
		add("Low Gross Margin", SeverityMedium,
			fmt.Sprintf("Gross margin of %.1f%%, thin margins.", gm),
			"gross_margin", gm, 20)
	}
	if nm := ratios.Profitability.NetMargin; nm < 0 {
		add("Net Loss", SeverityMedium,
			fmt.Sprintf("Net margin of %.1f%%, company is unprofitable.", nm),
			"net_margin", nm, 0)
	}
	if ds.IncomeStatement.Revenue > 0 && ocf < 0 {
		add("Earnings Quality Concern", SeverityMedium,
			"Revenue positive but OCF negative, earnings not converting to cash.",
			"ocf_vs_revenue", ocf, 0)
	}
	if d2e := ratios.Leverage.DebtToEBITDA; d2e > 4.0 {
		add("High Debt Load", SeverityMedium,
			fmt.Sprintf("Debt/EBITDA of %.1fx, would take %.1f years to repay.", d2e, d2e),
			"debt_to_ebitda", d2e, 4.0)
	}

	// Low severity.
	if qr := ratios.Liquidity.QuickRatio; qr < 0.5 {
		add("Low Quick Ratio", SeverityLow,
			fmt.Sprintf("Quick ratio of %.2f, limited liquid assets.", qr),
			"quick_ratio", qr, 0.5)
	}

	return out
}
