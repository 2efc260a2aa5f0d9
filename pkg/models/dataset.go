package models

// FinancialDataset is the normalized financial picture extracted from a single
// document, and the shape of the merged dataset the analysis engines consume.
// All numeric leaves default to zero, never null, so downstream math can rely
// on a zero-guard instead of nil checks.
type FinancialDataset struct {
	CompanyName string `json:"company_name"`
	Period      string `json:"period"`
	Currency    string `json:"currency"`

	IncomeStatement IncomeStatement `json:"income_statement"`
	BalanceSheet    BalanceSheet    `json:"balance_sheet"`
	CashFlow        CashFlow        `json:"cash_flow"`

	Adjustments []Adjustment `json:"adjustments"`
	Notes       []Note       `json:"notes"`
}

type IncomeStatement struct {
	Revenue           float64 `json:"revenue"`
	COGS              float64 `json:"cogs"`
	GrossProfit       float64 `json:"gross_profit"`
	OperatingExpenses float64 `json:"operating_expenses"`
	EBITDA            float64 `json:"ebitda"`
	Depreciation      float64 `json:"depreciation"`
	Interest          float64 `json:"interest"`
	Tax               float64 `json:"tax"`
	NetIncome         float64 `json:"net_income"`
}

type BalanceSheet struct {
	Cash                    float64 `json:"cash"`
	AccountsReceivable      float64 `json:"accounts_receivable"`
	Inventory               float64 `json:"inventory"`
	TotalCurrentAssets      float64 `json:"total_current_assets"`
	PPE                     float64 `json:"ppe"`
	TotalAssets             float64 `json:"total_assets"`
	AccountsPayable         float64 `json:"accounts_payable"`
	ShortTermDebt           float64 `json:"short_term_debt"`
	TotalCurrentLiabilities float64 `json:"total_current_liabilities"`
	LongTermDebt            float64 `json:"long_term_debt"`
	TotalLiabilities        float64 `json:"total_liabilities"`
	TotalEquity             float64 `json:"total_equity"`
}

type CashFlow struct {
	OperatingCF float64 `json:"operating_cf"`
	InvestingCF float64 `json:"investing_cf"`
	FinancingCF float64 `json:"financing_cf"`
	NetCF       float64 `json:"net_cf"`
	Capex       float64 `json:"capex"`
	FCF         float64 `json:"fcf"`
}

// Adjustment categories recognized by the QoE scoring model.
const (
	AdjustmentNonRecurring      = "non_recurring"
	AdjustmentRelatedParty      = "related_party"
	AdjustmentOwnerCompensation = "owner_compensation"
)

// Adjustment is a normalization item applied on top of reported EBITDA.
// Positive amounts are add-backs, negative amounts are deductions.
type Adjustment struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Impact   string  `json:"impact,omitempty"` // add_back | deduction, set by the QoE engine
}

// Note carries free-text commentary with optional provenance.
type Note struct {
	Note   string `json:"note"`
	Source string `json:"source,omitempty"`
}

// HasIncomeStatement reports whether any income-statement figure is populated.
// The pipeline refuses to run the math stage on a dataset where this is false.
func (d *FinancialDataset) HasIncomeStatement() bool {
	inc := d.IncomeStatement
	return inc.Revenue != 0 || inc.COGS != 0 || inc.GrossProfit != 0 ||
		inc.OperatingExpenses != 0 || inc.EBITDA != 0 || inc.Depreciation != 0 ||
		inc.Interest != 0 || inc.Tax != 0 || inc.NetIncome != 0
}

// TotalDebt sums short- and long-term debt.
func (b *BalanceSheet) TotalDebt() float64 {
	return b.ShortTermDebt + b.LongTermDebt
}
