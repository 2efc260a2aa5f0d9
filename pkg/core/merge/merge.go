// Package merge combines per-document financial datasets into a single
// normalized dataset for downstream analysis.
//
// The policy is first-non-zero-wins per scalar field, in the order documents
// are supplied. Later conflicting values are never silently dropped: each one
// is surfaced as a note on the merged dataset so a reviewer can see what the
// merge discarded. Adjustment and note lists are concatenated as-is.
package merge

import (
	"fmt"

	"deal_diligence/pkg/models"
)

// Input pairs an extracted dataset with the document it came from. Source is
// used only to attribute conflict notes.
type Input struct {
	Source  string
	Dataset *models.FinancialDataset
}

// Merge folds the inputs into one dataset. Callers must supply inputs in a
// stable order (ascending document id) so reruns are reproducible. An empty
// input list yields an all-zero dataset with empty lists.
func Merge(inputs []Input) *models.FinancialDataset {
	out := &models.FinancialDataset{}
	m := &merger{out: out}

	for _, in := range inputs {
		if in.Dataset == nil {
			continue
		}
		m.source = in.Source
		m.fold(in.Dataset)
	}
	return out
}

type merger struct {
	out    *models.FinancialDataset
	source string
}

func (m *merger) fold(ds *models.FinancialDataset) {
	if m.out.CompanyName == "" {
		m.out.CompanyName = ds.CompanyName
	}
	if m.out.Period == "" {
		m.out.Period = ds.Period
	}
	if m.out.Currency == "" {
		m.out.Currency = ds.Currency
	}

	si, di := ds.IncomeStatement, &m.out.IncomeStatement
	m.take(&di.Revenue, si.Revenue, "revenue")
	m.take(&di.COGS, si.COGS, "cogs")
	m.take(&di.GrossProfit, si.GrossProfit, "gross_profit")
	m.take(&di.OperatingExpenses, si.OperatingExpenses, "operating_expenses")
	m.take(&di.EBITDA, si.EBITDA, "ebitda")
	m.take(&di.Depreciation, si.Depreciation, "depreciation")
	m.take(&di.Interest, si.Interest, "interest")
	m.take(&di.Tax, si.Tax, "tax")
	m.take(&di.NetIncome, si.NetIncome, "net_income")

	sb, db := ds.BalanceSheet, &m.out.BalanceSheet
	m.take(&db.Cash, sb.Cash, "cash")
	m.take(&db.AccountsReceivable, sb.AccountsReceivable, "accounts_receivable")
	m.take(&db.Inventory, sb.Inventory, "inventory")
	m.take(&db.TotalCurrentAssets, sb.TotalCurrentAssets, "total_current_assets")
	m.take(&db.PPE, sb.PPE, "ppe")
	m.take(&db.TotalAssets, sb.TotalAssets, "total_assets")
	m.take(&db.AccountsPayable, sb.AccountsPayable, "accounts_payable")
	m.take(&db.ShortTermDebt, sb.ShortTermDebt, "short_term_debt")
	m.take(&db.TotalCurrentLiabilities, sb.TotalCurrentLiabilities, "total_current_liabilities")
	m.take(&db.LongTermDebt, sb.LongTermDebt, "long_term_debt")
	m.take(&db.TotalLiabilities, sb.TotalLiabilities, "total_liabilities")
	m.take(&db.TotalEquity, sb.TotalEquity, "total_equity")

	sc, dc := ds.CashFlow, &m.out.CashFlow
	m.take(&dc.OperatingCF, sc.OperatingCF, "operating_cf")
	m.take(&dc.InvestingCF, sc.InvestingCF, "investing_cf")
	m.take(&dc.FinancingCF, sc.FinancingCF, "financing_cf")
	m.take(&dc.NetCF, sc.NetCF, "net_cf")
	m.take(&dc.Capex, sc.Capex, "capex")
	m.take(&dc.FCF, sc.FCF, "fcf")

	m.out.Adjustments = append(m.out.Adjustments, ds.Adjustments...)
	m.out.Notes = append(m.out.Notes, ds.Notes...)
}

// take sets dst from src if dst is still zero. A non-zero src against an
// already-set differing dst is a conflict and gets recorded as a note.
func (m *merger) take(dst *float64, src float64, field string) {
	if src == 0 {
		return
	}
	if *dst == 0 {
		*dst = src
		return
	}
	if *dst != src {
		m.out.Notes = append(m.out.Notes, models.Note{
			Note:   fmt.Sprintf("Conflicting %s value %v discarded (kept %v)", field, src, *dst),
			Source: m.source,
		})
	}
}
