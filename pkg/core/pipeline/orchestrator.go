// Package pipeline drives the per-deal analysis run: classification,
// extraction, merge, financial math, risk detection, retrieval indexing and
// narrative insights, with results persisted as they are produced.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"deal_diligence/pkg/core/anomaly"
	"deal_diligence/pkg/core/calc"
	"deal_diligence/pkg/core/extract"
	"deal_diligence/pkg/core/flags"
	"deal_diligence/pkg/core/insight"
	"deal_diligence/pkg/core/merge"
	"deal_diligence/pkg/core/store"
	"deal_diligence/pkg/models"
	"deal_diligence/pkg/platform/logger"
)

// Collaborator calls are bounded so a hung service fails its step instead
// of hanging the run.
const (
	extractCallTimeout = 2 * time.Minute
	insightCallTimeout = 2 * time.Minute
	ingestCallTimeout  = time.Minute
)

// ErrAlreadyRunning is returned when a trigger races with an in-flight run
// for the same deal. At most one run per deal may hold the "analyzing"
// status at a time.
var ErrAlreadyRunning = errors.New("analysis already running for this deal")

// DatasetExtractor pulls structured financials out of one document's text.
// A nil extractor means the completion service is not configured; the local
// regex fallback covers documents with no persisted dataset.
type DatasetExtractor interface {
	Extract(ctx context.Context, documentText, filename string) (*models.FinancialDataset, error)
}

// InsightGenerator produces the narrative insights payload from the full
// set of computed results. Nil means the step is skipped.
type InsightGenerator interface {
	Generate(ctx context.Context, ds *models.FinancialDataset, ratios calc.RatioAnalysis,
		redFlags []flags.RedFlag, anomalies []anomaly.Anomaly,
		qoe calc.QoEResult, dcf calc.DCFResult) (*insight.Insights, error)
}

// DocumentIngester indexes one document's text for retrieval. Nil means no
// vector stack is configured; chat degrades to analysis-only context.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, dealID, documentID int64, text, filename string) (int, error)
}

// Classifier labels a document with a type and confidence.
type Classifier func(text, filename string) (string, float64)

// Orchestrator owns the deal state machine and sequences the analysis
// steps. Collaborators are injected and nullable: a nil collaborator makes
// its step a no-op rather than an error, so a partially configured
// deployment still produces every deterministic analysis.
type Orchestrator struct {
	store     store.Store
	classify  Classifier
	extractor DatasetExtractor
	insights  InsightGenerator
	ingester  DocumentIngester
	dcf       calc.Assumptions
	log       *zap.SugaredLogger
}

func New(st store.Store, classify Classifier, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		store:    st,
		classify: classify,
		dcf:      calc.DefaultAssumptions(),
		log:      log,
	}
}

// SetExtractor wires the completion-service extractor.
func (o *Orchestrator) SetExtractor(e DatasetExtractor) { o.extractor = e }

// SetInsights wires the narrative-insights generator.
func (o *Orchestrator) SetInsights(g InsightGenerator) { o.insights = g }

// SetIngester wires the retrieval indexer.
func (o *Orchestrator) SetIngester(i DocumentIngester) { o.ingester = i }

// SetAssumptions overrides the DCF assumptions used for every run.
func (o *Orchestrator) SetAssumptions(a calc.Assumptions) { o.dcf = a }

// Trigger claims the deal for analysis by atomically moving it to
// "analyzing". It returns ErrAlreadyRunning if another run already holds
// the deal, without touching any analysis row. Callers start the actual
// run afterwards, typically in a background goroutine.
func (o *Orchestrator) Trigger(ctx context.Context, dealID int64) error {
	deal, err := o.store.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if deal.Status == models.StatusAnalyzing {
		return ErrAlreadyRunning
	}
	ok, err := o.store.TransitionDeal(ctx, dealID, deal.Status, models.StatusAnalyzing)
	if err != nil {
		return fmt.Errorf("claiming deal %d: %w", dealID, err)
	}
	if !ok {
		// Lost the race: someone else moved the deal since we read it.
		return ErrAlreadyRunning
	}
	return nil
}

// Analyze is the one-shot entrypoint: claim the deal, run the pipeline,
// settle the terminal status. Used by the CLI runner and tests; the HTTP
// layer calls Trigger synchronously and Run in the background.
func (o *Orchestrator) Analyze(ctx context.Context, dealID int64) error {
	if err := o.Trigger(ctx, dealID); err != nil {
		return err
	}
	return o.Run(ctx, dealID)
}

// Run executes the pipeline for a deal already claimed via Trigger and
// transitions it to completed or failed. Optional steps absorb their own
// failures; only the financial-math stage and storage errors fail the run.
func (o *Orchestrator) Run(ctx context.Context, dealID int64) error {
	start := time.Now()
	runID := uuid.NewString()
	o.log.Infow("pipeline started", "deal_id", dealID, "run_id", runID)

	docs, err := o.store.ListDocuments(ctx, dealID)
	if err != nil {
		return o.fail(ctx, dealID, fmt.Errorf("listing documents: %w", err))
	}
	// Stable document order makes the first-non-zero merge reproducible
	// across runs.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	// Retrieval indexing has no dependency on the financial path; it runs
	// alongside extraction and is purely best-effort.
	var g errgroup.Group
	if o.ingester != nil {
		for _, doc := range docs {
			if doc.ExtractedText == "" {
				continue
			}
			doc := doc
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(ctx, ingestCallTimeout)
				defer cancel()
				n, err := o.ingester.IngestDocument(callCtx, dealID, doc.ID, doc.ExtractedText, doc.Filename)
				if err != nil {
					o.log.Warnw("document indexing failed", "deal_id", dealID,
						"document_id", doc.ID, "error", err)
					return nil
				}
				o.log.Debugw("document indexed", "document_id", doc.ID, "chunks", n)
				return nil
			})
		}
	}

	inputs := o.prepareDocuments(ctx, dealID, docs)

	merged := merge.Merge(inputs)
	if !merged.HasIncomeStatement() {
		g.Wait()
		return o.fail(ctx, dealID, errors.New("no income-statement data extracted from any document"))
	}

	// Financial math is mandatory. The calculations themselves cannot fail
	// (zero denominators are neutralized), so only persistence can.
	qoe := calc.AnalyzeQoE(merged)
	wc := calc.AnalyzeWorkingCapital(merged)
	ratios := calc.CalculateRatios(merged)
	dcf := calc.CalculateDCF(merged, o.dcf)

	mathResults := []struct {
		typ     models.AnalysisType
		payload interface{}
	}{
		{models.AnalysisQoE, qoe},
		{models.AnalysisWorkingCapital, wc},
		{models.AnalysisRatios, ratios},
		{models.AnalysisDCF, dcf},
	}
	for _, r := range mathResults {
		if err := o.persist(ctx, dealID, r.typ, r.payload); err != nil {
			g.Wait()
			return o.fail(ctx, dealID, err)
		}
	}

	// Rule flags and anomalies are pure functions over the merged dataset;
	// an empty result list is still persisted so consumers can tell "ran,
	// found nothing" from "never ran".
	redFlags := flags.Detect(merged, ratios, wc, qoe)
	if err := o.persist(ctx, dealID, models.AnalysisRedFlags, redFlags); err != nil {
		g.Wait()
		return o.fail(ctx, dealID, err)
	}
	anomalies := anomaly.Detect(merged, ratios)
	if err := o.persist(ctx, dealID, models.AnalysisAnomalies, anomalies); err != nil {
		g.Wait()
		return o.fail(ctx, dealID, err)
	}

	if err := o.generateInsights(ctx, dealID, merged, ratios, redFlags, anomalies, qoe, dcf); err != nil {
		g.Wait()
		return o.fail(ctx, dealID, err)
	}

	g.Wait()

	ok, err := o.store.TransitionDeal(ctx, dealID, models.StatusAnalyzing, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("completing deal %d: %w", dealID, err)
	}
	if !ok {
		return fmt.Errorf("deal %d left analyzing state mid-run", dealID)
	}
	o.log.Infow("pipeline completed", "deal_id", dealID, "run_id", runID,
		"documents", len(docs), "red_flags", len(redFlags),
		"anomalies", len(anomalies), "elapsed", time.Since(start))
	return nil
}

// prepareDocuments classifies each document and extracts its dataset,
// persisting per-document results as it goes. Both sub-steps are optional:
// a failed extraction leaves that document's dataset empty and the run
// continues on whatever the other documents yield. Extraction calls are
// sequential; the completion service is rate-sensitive.
func (o *Orchestrator) prepareDocuments(ctx context.Context, dealID int64, docs []models.Document) []merge.Input {
	inputs := make([]merge.Input, 0, len(docs))
	for _, doc := range docs {
		if doc.ExtractedText == "" {
			o.log.Warnw("document has no text, skipping", "document_id", doc.ID, "filename", doc.Filename)
			continue
		}

		docType, confidence := doc.DocType, doc.DocTypeConfidence
		if o.classify != nil {
			docType, confidence = o.classify(doc.ExtractedText, doc.Filename)
		}

		// Provider extraction wins over a dataset persisted by an earlier
		// run; the local regex fallback only fills in when neither exists.
		dataset := doc.Dataset
		if o.extractor != nil {
			callCtx, cancel := context.WithTimeout(ctx, extractCallTimeout)
			extracted, err := o.extractor.Extract(callCtx, doc.ExtractedText, doc.Filename)
			cancel()
			switch {
			case err != nil:
				o.log.Warnw("extraction failed", "document_id", doc.ID,
					"filename", doc.Filename, "error", err)
			case extracted != nil:
				dataset = extracted
			}
		}
		if dataset == nil {
			dataset = extract.ExtractLocal(doc.ExtractedText, doc.Filename)
		}

		if err := o.store.UpdateDocumentExtraction(ctx, doc.ID, docType, confidence, dataset); err != nil {
			// The in-memory dataset still feeds the merge below.
			o.log.Warnw("persisting document extraction failed", "document_id", doc.ID, "error", err)
		}

		if dataset != nil {
			inputs = append(inputs, merge.Input{Source: doc.Filename, Dataset: dataset})
		}
	}
	return inputs
}

// generateInsights runs the optional narrative step. Collaborator absence
// or failure persists a null payload marked skipped; only a storage error
// escalates.
func (o *Orchestrator) generateInsights(ctx context.Context, dealID int64,
	ds *models.FinancialDataset, ratios calc.RatioAnalysis,
	redFlags []flags.RedFlag, anomalies []anomaly.Anomaly,
	qoe calc.QoEResult, dcf calc.DCFResult) error {

	if o.insights == nil {
		return o.persistSkipped(ctx, dealID, models.AnalysisInsights, "no completion provider configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, insightCallTimeout)
	defer cancel()
	result, err := o.insights.Generate(callCtx, ds, ratios, redFlags, anomalies, qoe, dcf)
	if err != nil {
		o.log.Warnw("insight generation failed", "deal_id", dealID, "error", err)
		return o.persistSkipped(ctx, dealID, models.AnalysisInsights, err.Error())
	}
	if result == nil {
		return o.persistSkipped(ctx, dealID, models.AnalysisInsights, "provider returned unusable output")
	}
	return o.persist(ctx, dealID, models.AnalysisInsights, result)
}

func (o *Orchestrator) persist(ctx context.Context, dealID int64, typ models.AnalysisType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s result: %w", typ, err)
	}
	a := &models.Analysis{
		DealID:       dealID,
		AnalysisType: typ,
		Results:      raw,
		Status:       "completed",
	}
	if err := o.store.UpsertAnalysis(ctx, a); err != nil {
		return fmt.Errorf("persisting %s result: %w", typ, err)
	}
	return nil
}

func (o *Orchestrator) persistSkipped(ctx context.Context, dealID int64, typ models.AnalysisType, reason string) error {
	a := &models.Analysis{
		DealID:       dealID,
		AnalysisType: typ,
		Status:       "skipped",
		ErrorMessage: reason,
	}
	if err := o.store.UpsertAnalysis(ctx, a); err != nil {
		return fmt.Errorf("persisting skipped %s: %w", typ, err)
	}
	return nil
}

// fail settles the deal in the failed state and returns the original error.
// Analyses persisted before the failure stay visible.
func (o *Orchestrator) fail(ctx context.Context, dealID int64, cause error) error {
	o.log.Errorw("pipeline failed", "deal_id", dealID, "error", cause)
	if _, err := o.store.TransitionDeal(ctx, dealID, models.StatusAnalyzing, models.StatusFailed); err != nil {
		o.log.Errorw("recording failure status", "deal_id", dealID, "error", err)
	}
	return cause
}
