package classify

import "testing"

func TestClassify_IncomeStatement(t *testing.T) {
	text := `ACME MANUFACTURING LLC
	Statement of Operations
	Revenue ............ 22,400,000
	Cost of goods sold .. 6,720,000
	Gross profit ........ 15,680,000
	Operating expenses .. 12,300,000
	Net income .......... 1,538,000`

	docType, confidence := Classify(text, "acme_income_statement_fy23.pdf")
	if docType != "income_statement" {
		t.Errorf("expected income_statement, got %q", docType)
	}
	if confidence <= 0.3 {
		t.Errorf("confidence %f too low for a clear match", confidence)
	}
}

func TestClassify_BalanceSheetByFilename(t *testing.T) {
	docType, _ := Classify("total assets and liabilities and equity", "balance_dec_2023.xlsx")
	if docType != "balance_sheet" {
		t.Errorf("expected balance_sheet, got %q", docType)
	}
}

func TestClassify_AuditReport(t *testing.T) {
	text := "In our opinion as independent auditor, the financial statements present fairly... " +
		"reasonable assurance about whether the financial statements are free of material misstatement. " +
		"Substantial doubt about the entity's ability to continue as a going concern."
	docType, _ := Classify(text, "fy23_audit.pdf")
	if docType != "audit_report" {
		t.Errorf("expected audit_report, got %q", docType)
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	docType, confidence := Classify("lorem ipsum dolor sit amet", "notes.txt")
	if docType != "other" {
		t.Errorf("expected other, got %q", docType)
	}
	if confidence != 0.3 {
		t.Errorf("expected floor confidence 0.3, got %f", confidence)
	}
}

func TestClassify_ConfidenceCap(t *testing.T) {
	// A filename matching every hint for one type should still cap at 0.95.
	text := "revenue sales cost of goods gross profit operating income net income ebitda " +
		"expenses cost of revenue operating expenses"
	_, confidence := Classify(text, "income_statement_profit_pnl.pdf")
	if confidence > 0.95 {
		t.Errorf("confidence %f above cap", confidence)
	}
}
