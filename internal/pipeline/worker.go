package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/index"
	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/markup"
	"github.com/dgallion1/dartgest/internal/parser"
	"github.com/dgallion1/dartgest/internal/search"
)

// Indexer submits documents in bulk.
type Indexer interface {
	Bulk(ctx context.Context, items []search.BulkItem) (search.BulkResult, error)
}

// FailureLog durably records documents that failed a stage.
type FailureLog interface {
	Record(ctx context.Context, runID, documentID, stage, reason string) error
}

// Deps are the collaborators shared by workers and batch runs.
type Deps struct {
	Parser   parser.Options
	Router   *index.Router
	Indexer  Indexer
	Failures FailureLog
	Stats    *StageStats
	Log      *slog.Logger
}

// Worker processes a single document job.
type Worker struct {
	deps Deps
	log  *slog.Logger
}

func NewWorker(deps Deps) *Worker {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Worker{deps: deps, log: log}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	rec, stage, err := w.parse(job.FileData(), job.Filename)
	if err != nil {
		w.fail(ctx, log, job, job.ID, parser.DocumentID(job.Filename), stage, err)
		return
	}
	job.SetDocument(rec.DocumentID, recordHash(rec), len(rec.Sections))
	log = log.With("doc_id", rec.DocumentID)
	log.Info("parsed document", "sections", len(rec.Sections), "type", rec.DocumentTypeCode)
	logWarnings(log, rec)

	// Phase 2: Route
	job.SetStatus(StatusRouting, "routing")
	action, err := w.deps.Router.Route(ctx, rec)
	if err != nil {
		w.fail(ctx, log, job, job.ID, rec.DocumentID, ledger.StageRoute, err)
		return
	}
	defer w.deps.Router.Release(action)
	job.SetRoute(action.TargetIndex, action.ResolvedID)

	// Phase 3: Submit
	job.SetStatus(StatusSubmitting, "submitting")
	start := time.Now()
	res, err := w.deps.Indexer.Bulk(ctx, []search.BulkItem{bulkItem(action)})
	w.observe(ledger.StageSubmit, start)
	if err == nil && len(res.Failed) > 0 {
		f := res.Failed[0]
		err = fmt.Errorf("index %s/%s: status %d: %s", f.Index, f.ID, f.Status, f.Reason)
	}
	if err != nil {
		w.fail(ctx, log, job, job.ID, action.ResolvedID, ledger.StageSubmit, err)
		return
	}

	log.Info("document indexed", "index", action.TargetIndex, "resolved_id", action.ResolvedID)
	job.SetStatus(StatusCompleted, "done")
}

// parse runs the document pipeline and reports the stage of any failure.
func (w *Worker) parse(data []byte, filename string) (*doctree.Record, string, error) {
	start := time.Now()
	p, err := parser.ForFile(filename, w.deps.Parser)
	if err != nil {
		return nil, ledger.StageDecode, err
	}
	rec, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, failedStage(err), err
	}
	w.observe(ledger.StageParse, start)
	return rec, "", nil
}

func (w *Worker) observe(stage string, start time.Time) {
	if w.deps.Stats != nil {
		w.deps.Stats.Record(stage, time.Since(start))
	}
}

// logWarnings reports content the parser dropped or could not interpret. log
// already carries the doc_id.
func logWarnings(log *slog.Logger, rec *doctree.Record) {
	for _, wn := range rec.Warnings {
		switch wn.Kind {
		case doctree.WarnTableOmitted:
			log.Warn("table omitted", "section", wn.SectionID, "reason", wn.Detail)
		case doctree.WarnInvalidPublicationDate:
			log.Warn("invalid publication date")
		default:
			log.Warn(wn.Kind, "section", wn.SectionID, "detail", wn.Detail)
		}
	}
}

func (w *Worker) fail(ctx context.Context, log *slog.Logger, job *Job, runID, documentID, stage string, err error) {
	var pe *markup.ParseError
	if errors.As(err, &pe) {
		log.Error("document failed", "stage", stage, "error", err, "diagnostic", pe.Diagnostic())
	} else {
		log.Error("document failed", "stage", stage, "error", err)
	}
	job.AddError(fmt.Sprintf("%s: %s", stage, err))
	job.SetStatus(StatusFailed, stage)
	w.recordFailure(ctx, log, runID, documentID, stage, err.Error())
}

func (w *Worker) recordFailure(ctx context.Context, log *slog.Logger, runID, documentID, stage, reason string) {
	if w.deps.Failures == nil {
		return
	}
	if err := w.deps.Failures.Record(ctx, runID, documentID, stage, reason); err != nil {
		log.Warn("ledger write failed", "document_id", documentID, "error", err)
	}
}

func failedStage(err error) string {
	switch {
	case errors.Is(err, parser.ErrMissingRequiredField):
		return ledger.StageAssemble
	case errors.Is(err, markup.ErrSanitizationImpossible):
		return ledger.StageDecode
	default:
		return ledger.StageParse
	}
}

func bulkItem(a index.BulkAction) search.BulkItem {
	return search.BulkItem{Index: a.TargetIndex, ID: a.ResolvedID, Source: a.Document}
}

// recordHash fingerprints the assembled record.
func recordHash(rec *doctree.Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return ContentHashHex(data)
}
