package store

import (
	"context"
	"testing"

	"deal_diligence/pkg/models"
)

func TestMemory_DealLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	deal := &models.Deal{Name: "Project Atlas", TargetCompany: "Acme Manufacturing"}
	if err := m.CreateDeal(ctx, deal); err != nil {
		t.Fatal(err)
	}
	if deal.ID == 0 {
		t.Fatal("deal id not assigned")
	}
	if deal.Status != models.StatusPending {
		t.Errorf("new deal status %q", deal.Status)
	}

	ok, err := m.TransitionDeal(ctx, deal.ID, models.StatusPending, models.StatusAnalyzing)
	if err != nil || !ok {
		t.Fatalf("transition pending->analyzing: ok=%v err=%v", ok, err)
	}

	// CAS from a stale status must refuse.
	ok, err = m.TransitionDeal(ctx, deal.ID, models.StatusPending, models.StatusAnalyzing)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("stale CAS succeeded")
	}

	// Skipping straight to completed from pending is not a legal edge.
	ok, _ = m.TransitionDeal(ctx, deal.ID, models.StatusAnalyzing, models.StatusAnalyzing)
	if ok {
		t.Error("self transition accepted")
	}

	got, err := m.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusAnalyzing {
		t.Errorf("status %q", got.Status)
	}
}

func TestMemory_DeleteDealCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	deal := &models.Deal{Name: "d"}
	if err := m.CreateDeal(ctx, deal); err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{DealID: deal.ID, Filename: "a.pdf"}
	if err := m.AddDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := m.UpsertAnalysis(ctx, &models.Analysis{
		DealID: deal.ID, AnalysisType: models.AnalysisRatios, Status: "completed",
	}); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteDeal(ctx, deal.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetDocument(ctx, doc.ID); err != ErrNotFound {
		t.Errorf("document survived cascade: %v", err)
	}
	if _, err := m.GetAnalysis(ctx, deal.ID, models.AnalysisRatios); err != ErrNotFound {
		t.Errorf("analysis survived cascade: %v", err)
	}
}

func TestMemory_UpsertAnalysisReplaces(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a1 := &models.Analysis{DealID: 1, AnalysisType: models.AnalysisQoE, Results: []byte(`{"v":1}`), Status: "completed"}
	if err := m.UpsertAnalysis(ctx, a1); err != nil {
		t.Fatal(err)
	}
	if a1.CompletedAt == nil {
		t.Error("completed analysis missing completed_at")
	}

	a2 := &models.Analysis{DealID: 1, AnalysisType: models.AnalysisQoE, Results: []byte(`{"v":2}`), Status: "completed"}
	if err := m.UpsertAnalysis(ctx, a2); err != nil {
		t.Fatal(err)
	}
	if a2.ID != a1.ID {
		t.Errorf("upsert created a second row: %d vs %d", a2.ID, a1.ID)
	}

	list, err := m.ListAnalyses(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list))
	}
	if string(list[0].Results) != `{"v":2}` {
		t.Errorf("results not replaced: %s", list[0].Results)
	}
}

func TestMemory_ListDocumentsOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if err := m.AddDocument(ctx, &models.Document{DealID: 7, Filename: name}); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := m.ListDocuments(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs", len(docs))
	}
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if docs[i].Filename != want {
			t.Errorf("doc %d = %q, want %q", i, docs[i].Filename, want)
		}
	}
}
