// Package handler implements the HTTP endpoints for deals, documents,
// analyses and chat.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deal_diligence/pkg/api/response"
	"deal_diligence/pkg/core/chat"
	"deal_diligence/pkg/core/classify"
	"deal_diligence/pkg/core/ingest"
	"deal_diligence/pkg/core/pipeline"
	"deal_diligence/pkg/core/store"
	"deal_diligence/pkg/models"
)

// maxUploadBytes caps one uploaded document. Text documents past this size
// are almost certainly not financial statements.
const maxUploadBytes = 20 << 20

// IndexDropper removes a deal's retrieval collection when the deal goes.
type IndexDropper interface {
	DropDeal(ctx context.Context, dealID int64) error
}

// DealHandler holds the dependencies for all deal-scoped endpoints. The
// chat service and index dropper are nullable; their endpoints degrade
// with an explicit error instead of panicking.
type DealHandler struct {
	store   store.Store
	orch    *pipeline.Orchestrator
	chat    *chat.Service
	dropper IndexDropper
	log     *zap.SugaredLogger
}

func NewDealHandler(st store.Store, orch *pipeline.Orchestrator, chatSvc *chat.Service, dropper IndexDropper, log *zap.SugaredLogger) *DealHandler {
	return &DealHandler{store: st, orch: orch, chat: chatSvc, dropper: dropper, log: log}
}

type createDealRequest struct {
	Name          string  `json:"name" binding:"required"`
	TargetCompany string  `json:"target_company" binding:"required"`
	Industry      string  `json:"industry"`
	DealSize      float64 `json:"deal_size"`
}

func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "name and target_company are required")
		return
	}
	deal := &models.Deal{
		Name:          req.Name,
		TargetCompany: req.TargetCompany,
		Industry:      req.Industry,
		DealSize:      req.DealSize,
		Status:        models.StatusPending,
	}
	if err := h.store.CreateDeal(c.Request.Context(), deal); err != nil {
		h.log.Errorw("create deal", "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not create deal")
		return
	}
	response.Created(c, deal)
}

func (h *DealHandler) ListDeals(c *gin.Context) {
	deals, err := h.store.ListDeals(c.Request.Context())
	if err != nil {
		h.log.Errorw("list deals", "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not list deals")
		return
	}
	response.Success(c, deals)
}

func (h *DealHandler) GetDeal(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	deal, err := h.store.GetDeal(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, err, "could not load deal")
		return
	}
	docs, err := h.store.ListDocuments(c.Request.Context(), id)
	if err != nil {
		h.log.Errorw("list documents", "deal_id", id, "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not load documents")
		return
	}
	response.Success(c, gin.H{"deal": deal, "documents": docs})
}

func (h *DealHandler) DeleteDeal(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteDeal(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, err, "could not delete deal")
		return
	}
	// The retrieval collection goes with the deal. Index failures only get
	// logged; the rows are already gone.
	if h.dropper != nil {
		if err := h.dropper.DropDeal(c.Request.Context(), id); err != nil {
			h.log.Warnw("dropping retrieval index", "deal_id", id, "error", err)
		}
	}
	response.Success(c, gin.H{"deleted": id})
}

// UploadDocument accepts either a multipart "file" part or a JSON body with
// filename and content. Content must already be text; HTML is stripped to
// text, binary formats are rejected.
func (h *DealHandler) UploadDocument(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetDeal(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, err, "could not load deal")
		return
	}

	filename, content, err := readUpload(c)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if ingest.IsHTML(filename, content) {
		text, err := ingest.SanitizeHTML(content)
		if err != nil {
			h.log.Warnw("html sanitize failed, keeping raw text", "filename", filename, "error", err)
		} else {
			content = text
		}
	}
	content = ingest.NormalizeText(content)
	if content == "" {
		response.Fail(c, http.StatusBadRequest, "document contains no extractable text")
		return
	}

	docType, confidence := classify.Classify(content, filename)
	doc := &models.Document{
		DealID:            id,
		Filename:          filename,
		ExtractedText:     content,
		DocType:           docType,
		DocTypeConfidence: confidence,
	}
	if err := h.store.AddDocument(c.Request.Context(), doc); err != nil {
		h.log.Errorw("add document", "deal_id", id, "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not store document")
		return
	}
	// The response omits the full text; it can be megabytes.
	doc.ExtractedText = ""
	response.Created(c, doc)
}

type uploadJSONRequest struct {
	Filename string `json:"filename" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func readUpload(c *gin.Context) (filename, content string, err error) {
	if file, ferr := c.FormFile("file"); ferr == nil {
		if file.Size > maxUploadBytes {
			return "", "", errors.New("file too large")
		}
		f, oerr := file.Open()
		if oerr != nil {
			return "", "", errors.New("could not read uploaded file")
		}
		defer f.Close()
		raw, rerr := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if rerr != nil {
			return "", "", errors.New("could not read uploaded file")
		}
		return file.Filename, string(raw), nil
	}

	var req uploadJSONRequest
	if berr := c.ShouldBindJSON(&req); berr != nil {
		return "", "", errors.New("expected a multipart 'file' part or JSON {filename, content}")
	}
	return req.Filename, req.Content, nil
}

// TriggerAnalysis claims the deal and starts the pipeline in the
// background. A deal already analyzing gets a 409 with no side effects.
func (h *DealHandler) TriggerAnalysis(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	if err := h.orch.Trigger(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			response.Fail(c, http.StatusConflict, "analysis already running for this deal")
		case errors.Is(err, store.ErrNotFound):
			response.Fail(c, http.StatusNotFound, "deal not found")
		default:
			h.log.Errorw("trigger analysis", "deal_id", id, "error", err)
			response.Fail(c, http.StatusInternalServerError, "could not start analysis")
		}
		return
	}

	// The run outlives the request; detach it from the request context.
	go func() {
		if err := h.orch.Run(context.Background(), id); err != nil {
			h.log.Errorw("background analysis run", "deal_id", id, "error", err)
		}
	}()
	response.Accepted(c, gin.H{"deal_id": id, "status": models.StatusAnalyzing})
}

func (h *DealHandler) ListAnalyses(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	deal, err := h.store.GetDeal(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, err, "could not load deal")
		return
	}
	analyses, err := h.store.ListAnalyses(c.Request.Context(), id)
	if err != nil {
		h.log.Errorw("list analyses", "deal_id", id, "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not list analyses")
		return
	}
	response.Success(c, gin.H{"deal_status": deal.Status, "analyses": analyses})
}

func (h *DealHandler) GetAnalysis(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	typ := models.AnalysisType(c.Param("type"))
	a, err := h.store.GetAnalysis(c.Request.Context(), id, typ)
	if err != nil {
		h.notFoundOr500(c, err, "could not load analysis")
		return
	}
	response.Success(c, a)
}

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

// Chat answers a question about the deal, grounded in indexed documents and
// persisted analysis results.
func (h *DealHandler) Chat(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	if h.chat == nil {
		response.Fail(c, http.StatusServiceUnavailable, "chat requires a configured completion provider")
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "question is required")
		return
	}
	if _, err := h.store.GetDeal(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, err, "could not load deal")
		return
	}

	analyses, err := h.store.ListAnalyses(c.Request.Context(), id)
	if err != nil {
		h.log.Errorw("list analyses for chat", "deal_id", id, "error", err)
		response.Fail(c, http.StatusInternalServerError, "could not load analyses")
		return
	}
	analysisData := make(map[string]json.RawMessage, len(analyses))
	for _, a := range analyses {
		if len(a.Results) > 0 {
			analysisData[string(a.AnalysisType)] = json.RawMessage(a.Results)
		}
	}

	answer, sources, err := h.chat.Ask(c.Request.Context(), id, req.Question, analysisData)
	if err != nil {
		h.log.Errorw("chat", "deal_id", id, "error", err)
		response.Fail(c, http.StatusBadGateway, "could not generate an answer")
		return
	}
	response.Success(c, gin.H{"answer": answer, "sources": sources})
}

func (h *DealHandler) dealID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, "invalid deal id")
		return 0, false
	}
	return id, true
}

func (h *DealHandler) notFoundOr500(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, "not found")
		return
	}
	h.log.Errorw(msg, "error", err)
	response.Fail(c, http.StatusInternalServerError, msg)
}
