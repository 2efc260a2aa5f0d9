package merge

import (
	"reflect"
	"strings"
	"testing"

	"deal_diligence/pkg/models"
)

func TestMerge_FirstNonZeroWins(t *testing.T) {
	a := &models.FinancialDataset{
		CompanyName:     "Acme Manufacturing",
		IncomeStatement: models.IncomeStatement{Revenue: 22_400_000},
	}
	b := &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{Revenue: 0, NetIncome: 1_538_000},
		BalanceSheet:    models.BalanceSheet{Cash: 1_200_000},
	}

	out := Merge([]Input{{"p_and_l.pdf", a}, {"balance.xlsx", b}})

	if out.IncomeStatement.Revenue != 22_400_000 {
		t.Errorf("revenue expected 22,400,000, got %f", out.IncomeStatement.Revenue)
	}
	if out.IncomeStatement.NetIncome != 1_538_000 {
		t.Errorf("net income expected 1,538,000, got %f", out.IncomeStatement.NetIncome)
	}
	if out.BalanceSheet.Cash != 1_200_000 {
		t.Errorf("cash expected 1,200,000, got %f", out.BalanceSheet.Cash)
	}
	if out.CompanyName != "Acme Manufacturing" {
		t.Errorf("company name not carried: %q", out.CompanyName)
	}

	// B had zero revenue, so no conflict note.
	for _, n := range out.Notes {
		if strings.Contains(n.Note, "Conflicting") {
			t.Errorf("unexpected conflict note: %q", n.Note)
		}
	}
}

func TestMerge_ConflictSurfacedAsNote(t *testing.T) {
	a := &models.FinancialDataset{IncomeStatement: models.IncomeStatement{Revenue: 22_400_000}}
	b := &models.FinancialDataset{IncomeStatement: models.IncomeStatement{Revenue: 21_000_000}}

	out := Merge([]Input{{"a.pdf", a}, {"b.pdf", b}})

	if out.IncomeStatement.Revenue != 22_400_000 {
		t.Errorf("first value should win, got %f", out.IncomeStatement.Revenue)
	}
	if len(out.Notes) != 1 {
		t.Fatalf("expected 1 conflict note, got %d", len(out.Notes))
	}
	n := out.Notes[0]
	if !strings.Contains(n.Note, "revenue") || !strings.Contains(n.Note, "2.1e+07") {
		t.Errorf("conflict note missing detail: %q", n.Note)
	}
	if n.Source != "b.pdf" {
		t.Errorf("conflict note source expected b.pdf, got %q", n.Source)
	}
}

func TestMerge_OrderSensitive(t *testing.T) {
	a := &models.FinancialDataset{IncomeStatement: models.IncomeStatement{Revenue: 100}}
	b := &models.FinancialDataset{IncomeStatement: models.IncomeStatement{Revenue: 200}}

	ab := Merge([]Input{{"a", a}, {"b", b}})
	ba := Merge([]Input{{"b", b}, {"a", a}})

	if ab.IncomeStatement.Revenue != 100 || ba.IncomeStatement.Revenue != 200 {
		t.Errorf("order sensitivity broken: ab=%f ba=%f",
			ab.IncomeStatement.Revenue, ba.IncomeStatement.Revenue)
	}
}

func TestMerge_ListsConcatenated(t *testing.T) {
	a := &models.FinancialDataset{
		Adjustments: []models.Adjustment{{Name: "Legal settlement", Amount: 650_000}},
		Notes:       []models.Note{{Note: "FY2023 audited", Source: "a"}},
	}
	b := &models.FinancialDataset{
		Adjustments: []models.Adjustment{{Name: "Owner comp", Amount: 440_000}},
		Notes:       []models.Note{{Note: "Q4 unaudited", Source: "b"}},
	}

	out := Merge([]Input{{"a", a}, {"b", b}})

	if len(out.Adjustments) != 2 {
		t.Errorf("expected 2 adjustments, got %d", len(out.Adjustments))
	}
	if len(out.Notes) != 2 {
		t.Errorf("expected 2 notes, got %d", len(out.Notes))
	}
	if out.Adjustments[0].Name != "Legal settlement" || out.Adjustments[1].Name != "Owner comp" {
		t.Errorf("adjustment order not preserved: %+v", out.Adjustments)
	}
}

func TestMerge_Empty(t *testing.T) {
	out := Merge(nil)
	want := &models.FinancialDataset{}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("empty merge should be a zero dataset, got %+v", out)
	}

	out = Merge([]Input{{"a", nil}})
	if !reflect.DeepEqual(out, want) {
		t.Errorf("nil dataset input should be skipped, got %+v", out)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := &models.FinancialDataset{
		IncomeStatement: models.IncomeStatement{Revenue: 100, NetIncome: 10},
		BalanceSheet:    models.BalanceSheet{Cash: 5},
	}
	once := Merge([]Input{{"a", a}})
	twice := Merge([]Input{{"a", once}})
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
