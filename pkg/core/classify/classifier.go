// Package classify assigns a document type to uploaded diligence material.
// Keyword frequency scoring with filename bonuses; no trained model, so it
// works on day one with zero setup and stays fully deterministic.
package classify

import "strings"

// scanLimit caps how much text is inspected. Statement headers appear early;
// scanning whole documents only adds noise.
const scanLimit = 5000

type docType struct {
	name     string
	keywords []string
}

// Listed in a fixed order so score ties resolve deterministically.
var docTypes = []docType{
	{"income_statement", []string{"revenue", "sales", "cost of goods", "gross profit",
		"operating income", "net income", "ebitda", "expenses",
		"cost of revenue", "operating expenses"}},
	{"balance_sheet", []string{"assets", "liabilities", "equity", "current assets",
		"accounts receivable", "accounts payable", "retained earnings",
		"stockholders equity", "total assets"}},
	{"cash_flow_statement", []string{"cash flow", "operating activities", "investing activities",
		"financing activities", "net cash", "capital expenditure",
		"cash provided", "cash used"}},
	{"audit_report", []string{"audit", "auditor", "opinion", "material misstatement",
		"reasonable assurance", "going concern", "independent auditor"}},
	{"tax_return", []string{"taxable income", "tax liability", "deduction", "form 1120",
		"schedule", "irs", "tax return"}},
	{"bank_statement", []string{"beginning balance", "ending balance", "deposits",
		"withdrawals", "transaction", "bank statement"}},
	{"accounts_receivable_aging", []string{"aging", "0-30 days", "31-60", "61-90",
		"90+", "receivable", "outstanding", "past due"}},
	{"accounts_payable_aging", []string{"payable aging", "vendor", "due date",
		"invoice", "payable", "supplier"}},
	{"debt_schedule", []string{"principal", "interest rate", "maturity", "loan",
		"credit facility", "amortization", "debt schedule"}},
	{"management_report", []string{"management discussion", "md&a", "outlook",
		"key performance", "kpi", "business review"}},
}

var filenameHints = map[string][]string{
	"income_statement":    {"income", "p&l", "pnl", "profit"},
	"balance_sheet":       {"balance"},
	"cash_flow_statement": {"cash"},
}

// Classify returns the best-matching document type and a confidence in
// [0, 1]. Unrecognized content yields ("other", 0.3).
func Classify(text, filename string) (string, float64) {
	lower := strings.ToLower(text)
	if len(lower) > scanLimit {
		lower = lower[:scanLimit]
	}
	fname := strings.ToLower(filename)

	best, bestScore, total := "", 0, 0
	for _, dt := range docTypes {
		score := 0
		for _, kw := range dt.keywords {
			if strings.Contains(lower, kw) {
				score += 2
			}
		}
		for _, word := range strings.Split(strings.ReplaceAll(dt.name, "_", " "), " ") {
			if strings.Contains(fname, word) {
				score += 8
				break
			}
		}
		for _, hint := range filenameHints[dt.name] {
			if strings.Contains(fname, hint) {
				score += 5
				break
			}
		}
		total += score
		if score > bestScore {
			best, bestScore = dt.name, score
		}
	}

	if bestScore == 0 {
		return "other", 0.3
	}

	confidence := float64(bestScore)/float64(total) + 0.1
	if confidence > 0.95 {
		confidence = 0.95
	}
	return best, confidence
}
