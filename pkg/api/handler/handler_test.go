package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"deal_diligence/pkg/api/handler"
	"deal_diligence/pkg/api/router"
	"deal_diligence/pkg/core/classify"
	"deal_diligence/pkg/core/pipeline"
	"deal_diligence/pkg/core/store"
	"deal_diligence/pkg/models"
	"deal_diligence/pkg/platform/logger"
)

func newTestServer(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	orch := pipeline.New(st, classify.Classify, logger.NewNop())
	h := handler.NewDealHandler(st, orch, nil, nil, logger.NewNop())
	r := gin.New()
	router.RegisterRoutes(r, h)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetDeal(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{
		"name":           "Project Atlas",
		"target_company": "TargetCo",
		"industry":       "software",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	var created struct {
		Data models.Deal `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.Status != models.StatusPending {
		t.Errorf("new deal status = %q, want pending", created.Data.Status)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/deals/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/deals/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing deal status = %d, want 404", w.Code)
	}
}

func TestCreateDeal_Validation(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "no target"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadDocument_JSONBody(t *testing.T) {
	r, st := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})

	w := doJSON(t, r, http.MethodPost, "/api/v1/deals/1/documents", gin.H{
		"filename": "income_statement.txt",
		"content":  "Income Statement\nRevenue: $22,400,000\nCOGS: $6,720,000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body)
	}
	var resp struct {
		Data models.Document `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.DocType != "income_statement" {
		t.Errorf("doc_type = %q, want income_statement", resp.Data.DocType)
	}
	if resp.Data.ExtractedText != "" {
		t.Error("response should not echo the document text")
	}

	// The stored copy keeps the full text.
	doc, err := st.GetDocument(context.Background(), resp.Data.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.ExtractedText == "" {
		t.Error("stored document lost its text")
	}
}

func TestUploadDocument_HTMLIsSanitized(t *testing.T) {
	r, st := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})

	w := doJSON(t, r, http.MethodPost, "/api/v1/deals/1/documents", gin.H{
		"filename": "report.html",
		"content":  "<html><body><script>evil()</script><p>Revenue: $1,000</p></body></html>",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body)
	}
	docs, _ := st.ListDocuments(context.Background(), 1)
	if len(docs) != 1 {
		t.Fatalf("stored %d documents, want 1", len(docs))
	}
	text := docs[0].ExtractedText
	if bytes.Contains([]byte(text), []byte("evil()")) {
		t.Errorf("script content survived sanitization: %q", text)
	}
	if !bytes.Contains([]byte(text), []byte("Revenue: $1,000")) {
		t.Errorf("body text lost in sanitization: %q", text)
	}
}

func TestTriggerAnalysis_ConflictWhileAnalyzing(t *testing.T) {
	r, st := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})

	// Pin the deal in the analyzing state as if a run were in flight.
	if ok, err := st.TransitionDeal(context.Background(), 1, models.StatusPending, models.StatusAnalyzing); err != nil || !ok {
		t.Fatalf("setup transition: ok=%v err=%v", ok, err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/deals/1/analyze", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	analyses, _ := st.ListAnalyses(context.Background(), 1)
	if len(analyses) != 0 {
		t.Errorf("rejected trigger wrote %d analysis rows", len(analyses))
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	r, _ := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})

	w := doJSON(t, r, http.MethodGet, "/api/v1/deals/1/analyses/qoe", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestChat_WithoutProvider(t *testing.T) {
	r, _ := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})

	w := doJSON(t, r, http.MethodPost, "/api/v1/deals/1/chat", gin.H{"question": "what is the revenue?"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDeleteDeal_Cascades(t *testing.T) {
	r, st := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/v1/deals", gin.H{"name": "d", "target_company": "t"})
	doJSON(t, r, http.MethodPost, "/api/v1/deals/1/documents", gin.H{
		"filename": "notes.txt", "content": "management discussion notes",
	})

	w := doJSON(t, r, http.MethodDelete, "/api/v1/deals/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if _, err := st.GetDeal(context.Background(), 1); err == nil {
		t.Error("deal still present after delete")
	}
	docs, _ := st.ListDocuments(context.Background(), 1)
	if len(docs) != 0 {
		t.Errorf("%d documents survived the cascade", len(docs))
	}
}
