package extract

import (
	"regexp"
	"strconv"
	"strings"

	"deal_diligence/pkg/models"
)

// ExtractLocal is the no-model fallback: keyword-anchored regex scanning for
// common statement line items. Crude, but keeps the pipeline alive when no
// completion provider is configured.
func ExtractLocal(documentText, filename string) *models.FinancialDataset {
	text := strings.ToLower(documentText)
	find := func(keywords string) float64 { return findNumber(text, keywords) }

	return &models.FinancialDataset{
		CompanyName: "Unknown Company (Local Extracted)",
		Period:      "FY (Local)",
		Currency:    "USD",
		IncomeStatement: models.IncomeStatement{
			Revenue:           find(`revenue|sales|net sales`),
			COGS:              find(`cost of goods sold|cogs|cost of revenue|cost of sales`),
			GrossProfit:       find(`gross profit|gross margin`),
			OperatingExpenses: find(`operating expenses|opex`),
			EBITDA:            find(`ebitda`),
			Depreciation:      find(`depreciation|amortization`),
			Interest:          find(`interest expense|interest`),
			Tax:               find(`tax|income tax`),
			NetIncome:         find(`net income|net loss|net profit`),
		},
		BalanceSheet: models.BalanceSheet{
			Cash:                    find(`cash and cash equivalents|cash`),
			AccountsReceivable:      find(`accounts receivable|receivables`),
			Inventory:               find(`inventory|inventories`),
			TotalCurrentAssets:      find(`total current assets`),
			PPE:                     find(`property, plant and equipment|ppe`),
			TotalAssets:             find(`total assets`),
			AccountsPayable:         find(`accounts payable|payables`),
			ShortTermDebt:           find(`short term debt|short-term debt`),
			TotalCurrentLiabilities: find(`total current liabilities`),
			LongTermDebt:            find(`long term debt|long-term debt`),
			TotalLiabilities:        find(`total liabilities`),
			TotalEquity:             find(`total equity|stockholders' equity|shareholders' equity`),
		},
		CashFlow: models.CashFlow{
			OperatingCF: find(`net cash provided by operating activities|operating cash flow`),
			InvestingCF: find(`net cash used in investing activities|investing cash flow`),
			FinancingCF: find(`net cash used in financing activities|financing cash flow`),
			NetCF:       find(`net change in cash`),
			Capex:       find(`capital expenditures|capex`),
			FCF:         find(`free cash flow|fcf`),
		},
		Notes: []models.Note{
			{Note: "Data extracted via local fallback due to AI service unavailability.", Source: filename},
		},
	}
}

var numberCleanRe = regexp.MustCompile(`[^\d.]`)

// findNumber looks for any of the keywords, a short gap of non-digit
// characters, then a number with optional currency symbol and commas.
func findNumber(text, keywords string) float64 {
	pattern := `(?:` + keywords + `)[^\d\n]{0,30}([$€£]?\s*[\d,]+\.?\d*)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0
	}
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	numStr := numberCleanRe.ReplaceAllString(m[1], "")
	v, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0
	}
	return v
}
