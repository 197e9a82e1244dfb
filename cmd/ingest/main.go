// Command ingest parses disclosure reports from disk or from the disclosure
// service and bulk-submits them to the search cluster.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/dartgest/internal/config"
	"github.com/dgallion1/dartgest/internal/dart"
	"github.com/dgallion1/dartgest/internal/index"
	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/parser"
	"github.com/dgallion1/dartgest/internal/pipeline"
	"github.com/dgallion1/dartgest/internal/rules"
	"github.com/dgallion1/dartgest/internal/search"
)

func main() {
	var (
		dir      = flag.String("dir", "", "directory of .xml reports (walked recursively)")
		rulePath = flag.String("rules", "", "rule document (.pdf, .docx, .txt) to index into RULES_INDEX")
		corp     = flag.String("corp", "", "issuer corp code to download reports for")
		begin    = flag.String("begin", "", "first filing date for -corp (yyyyMMdd)")
		end      = flag.String("end", "", "last filing date for -corp (yyyyMMdd)")
		kind     = flag.String("type", "A", "disclosure type for -corp")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := search.NewClient(search.Config{
		URL:        cfg.OpenSearchURL,
		Username:   cfg.OpenSearchUser,
		Password:   cfg.OpenSearchPassword,
		Compress:   cfg.OpenSearchCompress,
		Timeout:    cfg.OpenSearchTimeout,
		MaxRetries: cfg.OpenSearchMaxRetries,
		Backoff:    pipeline.Backoff,
	}, log)
	if err != nil {
		log.Error("create search client", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	failures, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		log.Error("open failure ledger", "error", err)
		os.Exit(1)
	}
	defer failures.Close()

	reg, err := index.OpenRegistry(cfg.IndexRegistryPath)
	if err != nil {
		log.Error("load index registry", "error", err)
		os.Exit(1)
	}

	deps := pipeline.Deps{
		Parser:   pipeline.ParserOptions(cfg),
		Router:   index.NewRouter(reg, sc, log),
		Indexer:  sc,
		Failures: failures,
		Stats:    pipeline.NewStageStats(24 * time.Hour),
		Log:      log,
	}

	var summaries []pipeline.Summary

	if *rulePath != "" {
		sum, err := ingestRules(ctx, deps, sc, cfg, *rulePath)
		if err != nil {
			log.Error("rule ingestion failed", "path", *rulePath, "error", err)
			os.Exit(1)
		}
		summaries = append(summaries, sum)
	}

	inputs, err := collectInputs(*dir, flag.Args())
	if err != nil {
		log.Error("collect inputs", "error", err)
		os.Exit(1)
	}
	if *corp != "" {
		remote, err := listRemote(ctx, cfg, *corp, dart.ListOptions{Begin: *begin, End: *end, Type: *kind}, log)
		if err != nil {
			log.Error("list disclosures", "corp_code", *corp, "error", err)
			os.Exit(1)
		}
		inputs = append(inputs, remote...)
	}

	if len(inputs) > 0 {
		if err := index.EnsureIndices(ctx, sc, reg, log); err != nil {
			log.Error("ensure indices", "error", err)
			os.Exit(1)
		}
		runner := pipeline.NewBatchRunner(deps, cfg.BulkChunkSize, cfg.WorkerCount)
		summaries = append(summaries, runner.Run(ctx, inputs))
	}

	if len(summaries) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [-dir DIR] [-rules FILE] [-corp CODE] [file.xml ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed, skipped := 0, 0
	for _, s := range summaries {
		enc.Encode(s)
		failed += s.Failed
		skipped += s.Skipped
	}
	for stage, stats := range deps.Stats.Snapshot() {
		log.Info("stage latency", "stage", stage, "count", stats.Count, "p50_ms", stats.P50Ms, "p95_ms", stats.P95Ms, "max_ms", stats.MaxMs)
	}
	if skipped > 0 {
		log.Warn("run interrupted before every document was attempted", "skipped", skipped)
	}
	if failed > 0 {
		log.Warn("documents failed; see the failure ledger", "failed", failed, "ledger", cfg.LedgerPath)
	}
	if failed > 0 || skipped > 0 {
		os.Exit(1)
	}
}

func ingestRules(ctx context.Context, deps pipeline.Deps, admin index.Admin, cfg config.Config, path string) (pipeline.Summary, error) {
	p, err := rules.ForFile(path, cfg.PDFFallbackPdftotext)
	if err != nil {
		return pipeline.Summary{}, err
	}
	if err := index.EnsureIndex(ctx, admin, cfg.RulesIndex, index.RulesSchema(), deps.Log); err != nil {
		return pipeline.Summary{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return pipeline.IngestRules(ctx, deps, p, f, filepath.Base(path), cfg.RulesIndex, cfg.BulkChunkSize)
}

// collectInputs gathers report files from dir and the explicit paths.
func collectInputs(dir string, paths []string) ([]pipeline.Input, error) {
	var files []string
	if dir != "" {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && parser.IsSupportedExtension(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
		sort.Strings(files)
	}
	files = append(files, paths...)

	inputs := make([]pipeline.Input, 0, len(files))
	for _, path := range files {
		inputs = append(inputs, pipeline.Input{
			Filename: filepath.Base(path),
			Read:     func() ([]byte, error) { return os.ReadFile(path) },
		})
	}
	return inputs, nil
}

// listRemote lists the issuer's filings; each input downloads its document
// when the batch runner reads it.
func listRemote(ctx context.Context, cfg config.Config, corpCode string, opts dart.ListOptions, log *slog.Logger) ([]pipeline.Input, error) {
	if cfg.DartAPIKey == "" {
		return nil, fmt.Errorf("DART_API_KEY is required for -corp")
	}
	client := dart.NewClient(cfg.DartBaseURL, cfg.DartAPIKey)
	reports, err := client.ListReports(ctx, corpCode, opts)
	if err != nil {
		return nil, err
	}
	log.Info("listed disclosures", "corp_code", corpCode, "reports", len(reports))

	inputs := make([]pipeline.Input, 0, len(reports))
	for _, r := range reports {
		receiptNo := r.ReceiptNo
		inputs = append(inputs, pipeline.Input{
			Filename: receiptNo + ".xml",
			Read: func() ([]byte, error) {
				_, data, err := pipeline.FetchDocument(ctx, client, receiptNo, log)
				return data, err
			},
		})
	}
	return inputs, nil
}
