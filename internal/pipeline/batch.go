package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/dartgest/internal/index"
	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/parser"
	"github.com/dgallion1/dartgest/internal/search"
)

// Input is one document of a batch run.
type Input struct {
	Filename string
	Read     func() ([]byte, error)
}

// Summary reports the outcome of a batch run. Skipped counts inputs never
// attempted because the run was cancelled.
type Summary struct {
	RunID     string `json:"run_id"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped,omitempty"`
}

// BatchRunner parses many documents concurrently and submits them in
// fixed-size bulk chunks.
type BatchRunner struct {
	worker      *Worker
	chunkSize   int
	concurrency int
	log         *slog.Logger
}

func NewBatchRunner(deps Deps, chunkSize, concurrency int) *BatchRunner {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	w := NewWorker(deps)
	return &BatchRunner{worker: w, chunkSize: chunkSize, concurrency: concurrency, log: w.log}
}

// Run processes inputs. A failing document is recorded and skipped; it never
// aborts the run. Cancelling ctx stops handing out inputs; documents already
// prepared are still flushed.
func (b *BatchRunner) Run(ctx context.Context, inputs []Input) Summary {
	sum := Summary{RunID: uuid.NewString()}
	log := b.log.With("run_id", sum.RunID)
	log.Info("batch started", "documents", len(inputs), "chunk_size", b.chunkSize)

	var (
		mu      sync.Mutex
		pending []index.BulkAction
		flushMu sync.Mutex
	)

	flush := func(actions []index.BulkAction) {
		if len(actions) == 0 {
			return
		}
		flushMu.Lock()
		defer flushMu.Unlock()
		ok, failed := b.submit(ctx, log, sum.RunID, actions)
		mu.Lock()
		sum.Succeeded += ok
		sum.Failed += failed
		mu.Unlock()
	}

	work := make(chan Input)
	var wg sync.WaitGroup
	for range b.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range work {
				action, ok := b.prepare(ctx, log, sum.RunID, in)
				if !ok {
					mu.Lock()
					sum.Failed++
					mu.Unlock()
					continue
				}

				var ready []index.BulkAction
				mu.Lock()
				pending = append(pending, action)
				if len(pending) >= b.chunkSize {
					ready, pending = pending, nil
				}
				mu.Unlock()
				flush(ready)
			}
		}()
	}

send:
	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		select {
		case work <- in:
			sum.Attempted++
		case <-ctx.Done():
			break send
		}
	}
	close(work)
	wg.Wait()

	if sum.Skipped = len(inputs) - sum.Attempted; sum.Skipped > 0 {
		log.Warn("batch cancelled", "skipped", sum.Skipped, "error", ctx.Err())
	}

	flush(pending)

	log.Info("batch finished", "attempted", sum.Attempted, "succeeded", sum.Succeeded, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum
}

// prepare parses and routes one input.
func (b *BatchRunner) prepare(ctx context.Context, log *slog.Logger, runID string, in Input) (index.BulkAction, bool) {
	docID := parser.DocumentID(in.Filename)
	dlog := log.With("doc_id", docID, "filename", in.Filename)

	data, err := in.Read()
	if err != nil {
		b.reject(ctx, dlog, runID, docID, ledger.StageDecode, fmt.Errorf("read %s: %w", in.Filename, err))
		return index.BulkAction{}, false
	}
	rec, stage, err := b.worker.parse(data, in.Filename)
	if err != nil {
		b.reject(ctx, dlog, runID, docID, stage, err)
		return index.BulkAction{}, false
	}
	logWarnings(dlog, rec)
	action, err := b.worker.deps.Router.Route(ctx, rec)
	if err != nil {
		b.reject(ctx, dlog, runID, rec.DocumentID, ledger.StageRoute, err)
		return index.BulkAction{}, false
	}
	return action, true
}

func (b *BatchRunner) reject(ctx context.Context, log *slog.Logger, runID, documentID, stage string, err error) {
	log.Error("document failed", "stage", stage, "error", err)
	b.worker.recordFailure(ctx, log, runID, documentID, stage, err.Error())
}

// submit sends one chunk and returns the succeeded and failed counts.
func (b *BatchRunner) submit(ctx context.Context, log *slog.Logger, runID string, actions []index.BulkAction) (int, int) {
	defer b.worker.deps.Router.Release(actions...)

	items := make([]search.BulkItem, len(actions))
	for i, a := range actions {
		items[i] = bulkItem(a)
	}
	start := time.Now()
	res, err := b.worker.deps.Indexer.Bulk(ctx, items)
	b.worker.observe(ledger.StageSubmit, start)
	if err != nil {
		log.Error("bulk chunk failed", "items", len(items), "error", err)
	}
	for _, f := range res.Failed {
		log.Error("bulk item failed", "index", f.Index, "resolved_id", f.ID, "status", f.Status, "reason", f.Reason)
		b.worker.recordFailure(ctx, log, runID, f.ID, ledger.StageSubmit, f.Reason)
	}
	log.Info("bulk chunk submitted", "items", len(items), "succeeded", res.Succeeded, "failed", len(res.Failed))
	return res.Succeeded, len(res.Failed)
}
