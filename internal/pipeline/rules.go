package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/rules"
	"github.com/dgallion1/dartgest/internal/search"
)

// IngestRules parses a rule document and submits its articles to indexName
// in chunks of chunkSize. The cluster assigns the identifiers.
func IngestRules(ctx context.Context, deps Deps, p rules.Parser, r io.Reader, filename, indexName string, chunkSize int) (Summary, error) {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if chunkSize <= 0 {
		chunkSize = 500
	}
	sum := Summary{RunID: uuid.NewString()}
	log = log.With("run_id", sum.RunID, "filename", filename, "index", indexName)

	articles, err := p.Parse(r, filename)
	if err != nil {
		w := NewWorker(deps)
		w.recordFailure(ctx, log, sum.RunID, filename, ledger.StageParse, err.Error())
		return sum, fmt.Errorf("parse rules %s: %w", filename, err)
	}
	sum.Attempted = len(articles)
	log.Info("parsed rule document", "articles", len(articles))

	for start := 0; start < len(articles); start += chunkSize {
		end := min(start+chunkSize, len(articles))
		items := make([]search.BulkItem, 0, end-start)
		for _, a := range articles[start:end] {
			items = append(items, search.BulkItem{Index: indexName, Source: a})
		}
		res, err := deps.Indexer.Bulk(ctx, items)
		if err != nil {
			log.Error("bulk chunk failed", "items", len(items), "error", err)
		}
		sum.Succeeded += res.Succeeded
		sum.Failed += len(res.Failed)
		for _, f := range res.Failed {
			log.Error("bulk item failed", "status", f.Status, "reason", f.Reason)
		}
	}

	log.Info("rule document indexed", "attempted", sum.Attempted, "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum, nil
}
