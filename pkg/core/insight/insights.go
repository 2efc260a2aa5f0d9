// Package insight asks the completion provider for a partner-level
// diligence narrative over the computed analysis outputs.
package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"deal_diligence/pkg/core/anomaly"
	"deal_diligence/pkg/core/calc"
	"deal_diligence/pkg/core/flags"
	"deal_diligence/pkg/core/llm"
	"deal_diligence/pkg/core/utils"
	"deal_diligence/pkg/models"
)

// maxContextChars bounds the serialized analysis context in the prompt.
const maxContextChars = 10000

type KeyFinding struct {
	Finding        string `json:"finding"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

type RiskAssessment struct {
	OverallRisk        string `json:"overall_risk"`
	FinancialRisk      string `json:"financial_risk"`
	OperationalRisk    string `json:"operational_risk"`
	DealRecommendation string `json:"deal_recommendation"`
}

type Insights struct {
	ExecutiveSummary       string         `json:"executive_summary"`
	KeyFindings            []KeyFinding   `json:"key_findings"`
	RiskAssessment         RiskAssessment `json:"risk_assessment"`
	ValuationOpinion       string         `json:"valuation_opinion"`
	QuestionsForManagement []string       `json:"questions_for_management"`
}

const systemInsights = "You are a senior M&A due diligence partner at a top-tier private equity firm. " +
	"RULES: (1) Always reference specific numbers from the data, never be vague. " +
	"(2) Each finding must include the actual dollar amount or percentage. " +
	"(3) Risk assessment must be driven by specific metrics, not generic statements. " +
	"(4) Your executive_summary should read like an institutional memo, precise and actionable. " +
	"Return ONLY valid JSON (no markdown, no comments) with EXACTLY these keys:\n" +
	"- executive_summary: string (3-5 sentences, cite key numbers)\n" +
	"- key_findings: list of {finding: str, impact: str, recommendation: str}, at least 4 items\n" +
	"- risk_assessment: {overall_risk: 'low'|'medium'|'high', financial_risk: str, " +
	"operational_risk: str, deal_recommendation: 'proceed'|'proceed_with_caution'|'significant_concerns'}\n" +
	"- valuation_opinion: string (reference EV, EBITDA multiple, and WACC)\n" +
	"- questions_for_management: list of 8 specific, probing strings"

// Generator produces insight narratives from the full analysis context.
type Generator struct {
	Provider llm.Provider
}

func New(provider llm.Provider) *Generator {
	return &Generator{Provider: provider}
}

// Generate builds the analysis context, prompts the provider and parses the
// response leniently. Returns nil without error on unusable model output;
// insights are an optional enrichment, not a pipeline dependency.
func (g *Generator) Generate(ctx context.Context, ds *models.FinancialDataset,
	ratios calc.RatioAnalysis, redFlags []flags.RedFlag, anomalies []anomaly.Anomaly,
	qoe calc.QoEResult, dcf calc.DCFResult) (*Insights, error) {

	if g.Provider == nil {
		return nil, fmt.Errorf("no completion provider configured")
	}

	blob, err := json.MarshalIndent(map[string]interface{}{
		"financial_data":      ds,
		"ratios":              ratios,
		"red_flags":           redFlags,
		"anomalies":           anomalies,
		"quality_of_earnings": qoe,
		"dcf_valuation":       dcf,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize analysis context: %w", err)
	}
	payload := string(blob)
	if len(payload) > maxContextChars {
		payload = payload[:maxContextChars]
	}

	raw, err := g.Provider.GenerateResponse(ctx, "Full analysis data:\n"+payload, systemInsights, nil)
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	out := &Insights{}
	if _, err := utils.SmartParse(utils.CleanMarkdown(raw), out); err != nil {
		return nil, nil
	}
	return out, nil
}
