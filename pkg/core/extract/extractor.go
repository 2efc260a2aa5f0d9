// Package extract turns raw document text into a normalized financial
// dataset. The primary path prompts a completion provider for structured
// JSON; a regex fallback keeps the pipeline running when no provider is
// configured.
package extract

import (
	"context"
	"fmt"
	"strings"

	"deal_diligence/pkg/core/llm"
	"deal_diligence/pkg/core/utils"
	"deal_diligence/pkg/models"
)

// maxDocumentChars bounds the prompt; statements front-load their figures.
const maxDocumentChars = 12000

const targetShape = `{
    "company_name": "",
    "period": "",
    "currency": "USD",
    "income_statement": {
        "revenue": 0, "cogs": 0, "gross_profit": 0,
        "operating_expenses": 0, "ebitda": 0, "depreciation": 0,
        "interest": 0, "tax": 0, "net_income": 0
    },
    "balance_sheet": {
        "cash": 0, "accounts_receivable": 0, "inventory": 0,
        "total_current_assets": 0, "ppe": 0, "total_assets": 0,
        "accounts_payable": 0, "short_term_debt": 0,
        "total_current_liabilities": 0, "long_term_debt": 0,
        "total_liabilities": 0, "total_equity": 0
    },
    "cash_flow": {
        "operating_cf": 0, "investing_cf": 0, "financing_cf": 0,
        "net_cf": 0, "capex": 0, "fcf": 0
    },
    "adjustments": [],
    "notes": []
}`

const systemExtract = "You are a financial data extraction engine for M&A due diligence. " +
	"Extract ALL financial figures from the document into the JSON structure below. " +
	"Rules: extract exact numbers; if shown in thousands, multiply to full values; " +
	"use 0 for missing fields; identify non-recurring items as adjustments. " +
	"Return ONLY valid JSON, no comments, no markdown.\n\n" + targetShape

// Extractor drives two-pass extraction through a completion provider.
type Extractor struct {
	Provider llm.Provider
}

func New(provider llm.Provider) *Extractor {
	return &Extractor{Provider: provider}
}

// Extract runs the extraction. Pass 1 is a plain prompt; if over 60% of the
// income-statement and balance-sheet fields come back zero, pass 2 retries
// with alternate-label guidance and folds non-zero values into the first
// result. Returns nil without error when the model output is unusable.
func (e *Extractor) Extract(ctx context.Context, documentText, filename string) (*models.FinancialDataset, error) {
	if e.Provider == nil {
		return nil, fmt.Errorf("no completion provider configured")
	}
	doc := documentText
	if len(doc) > maxDocumentChars {
		doc = doc[:maxDocumentChars]
	}

	raw, err := e.Provider.GenerateResponse(ctx,
		fmt.Sprintf("Document filename: %s\n\n%s", filename, doc),
		systemExtract, nil)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	result := &models.FinancialDataset{}
	if _, err := utils.SmartParse(raw, result); err != nil {
		return nil, nil
	}

	zero, total := zeroFieldStats(result)
	if total > 0 && float64(len(zero))/float64(total) > 0.6 {
		retryPrompt := fmt.Sprintf(
			"Document filename: %s\n\n%s\n\n---\nFirst pass found %d of %d fields as 0. Missing: %s.\n"+
				"Common alternate labels:\n"+
				"- 'Net sales' or 'Total revenue' = revenue\n"+
				"- 'Cost of revenue' or 'Cost of sales' = cogs\n"+
				"- 'Total stockholders equity' = total_equity\n"+
				"- 'Property and equipment, net' = ppe\n"+
				"Re-examine the document carefully and return fully filled JSON.",
			filename, doc, len(zero), total, strings.Join(head(zero, 10), ", "))

		retryRaw, err := e.Provider.GenerateResponse(ctx, retryPrompt, systemExtract, nil)
		if err == nil {
			retry := &models.FinancialDataset{}
			if _, err := utils.SmartParse(retryRaw, retry); err == nil {
				foldNonZero(result, retry)
			}
		}
	}
	return result, nil
}

func head(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}

type fieldRef struct {
	name  string
	value *float64
}

func statementFields(ds *models.FinancialDataset) []fieldRef {
	inc, bs := &ds.IncomeStatement, &ds.BalanceSheet
	return []fieldRef{
		{"income_statement.revenue", &inc.Revenue},
		{"income_statement.cogs", &inc.COGS},
		{"income_statement.gross_profit", &inc.GrossProfit},
		{"income_statement.operating_expenses", &inc.OperatingExpenses},
		{"income_statement.ebitda", &inc.EBITDA},
		{"income_statement.depreciation", &inc.Depreciation},
		{"income_statement.interest", &inc.Interest},
		{"income_statement.tax", &inc.Tax},
		{"income_statement.net_income", &inc.NetIncome},
		{"balance_sheet.cash", &bs.Cash},
		{"balance_sheet.accounts_receivable", &bs.AccountsReceivable},
		{"balance_sheet.inventory", &bs.Inventory},
		{"balance_sheet.total_current_assets", &bs.TotalCurrentAssets},
		{"balance_sheet.ppe", &bs.PPE},
		{"balance_sheet.total_assets", &bs.TotalAssets},
		{"balance_sheet.accounts_payable", &bs.AccountsPayable},
		{"balance_sheet.short_term_debt", &bs.ShortTermDebt},
		{"balance_sheet.total_current_liabilities", &bs.TotalCurrentLiabilities},
		{"balance_sheet.long_term_debt", &bs.LongTermDebt},
		{"balance_sheet.total_liabilities", &bs.TotalLiabilities},
		{"balance_sheet.total_equity", &bs.TotalEquity},
	}
}

func zeroFieldStats(ds *models.FinancialDataset) (zero []string, total int) {
	fields := statementFields(ds)
	for _, f := range fields {
		if *f.value == 0 {
			zero = append(zero, f.name)
		}
	}
	return zero, len(fields)
}

// foldNonZero copies every non-zero statement and cash-flow value from the
// retry result over the first-pass result, and prefers the retry's
// adjustments when it found any.
func foldNonZero(dst, src *models.FinancialDataset) {
	dstFields, srcFields := statementFields(dst), statementFields(src)
	for i := range srcFields {
		if *srcFields[i].value != 0 {
			*dstFields[i].value = *srcFields[i].value
		}
	}

	dc, sc := &dst.CashFlow, &src.CashFlow
	for _, p := range []struct{ d, s *float64 }{
		{&dc.OperatingCF, &sc.OperatingCF},
		{&dc.InvestingCF, &sc.InvestingCF},
		{&dc.FinancingCF, &sc.FinancingCF},
		{&dc.NetCF, &sc.NetCF},
		{&dc.Capex, &sc.Capex},
		{&dc.FCF, &sc.FCF},
	} {
		if *p.s != 0 {
			*p.d = *p.s
		}
	}

	if len(src.Adjustments) > 0 {
		dst.Adjustments = src.Adjustments
	}
}
