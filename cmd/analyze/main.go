// Command analyze infers a JSON-Schema draft-07 document from flat-file
// or JSON input. It reads a local file (or a directory of them), runs
// the analysis pipeline, and writes the generated schema to stdout or a
// file, optionally recording the result in the schema catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"flatschema/internal/analysis"
	"flatschema/internal/analyzer"
	"flatschema/internal/config"
	"flatschema/internal/logging"
	"flatschema/internal/metrics"
	"flatschema/internal/metrics/datadog"
	"flatschema/internal/metrics/prompush"
	"flatschema/internal/parser"
	"flatschema/internal/storage"

	// register all parsers and catalog backends; flags pick which to use.
	_ "flatschema/internal/parser/all"
	_ "flatschema/internal/storage/all"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cliFlags struct {
	in           string
	kind         string
	name         string
	mode         string
	out          string
	samples      stringList
	opts         stringList
	detectArrays bool

	dir     string
	pattern string
	workers int

	listKinds bool
	describe  string

	store   string
	dsn     string
	history int

	metricsBackend string
	pushgatewayURL string

	configPath string
}

// run is the testable entry point. Usage errors return 2, runtime
// failures 1.
func run(args []string, stdout, stderr io.Writer) int {
	var f cliFlags

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.in, "in", "", "input file to analyze")
	fs.StringVar(&f.kind, "kind", "", "input kind (csv, json, fixed_length, variable_length, html_table); guessed from the extension when empty")
	fs.StringVar(&f.name, "name", "", "schema name (defaults to the input file name without extension)")
	fs.StringVar(&f.mode, "mode", "", "generation mode: standard, segmented or dedup (default standard)")
	fs.StringVar(&f.out, "out", "", "write the schema JSON here instead of stdout")
	fs.Var(&f.samples, "sample", "additional sample file fused into the structure (repeatable)")
	fs.Var(&f.opts, "opt", "parser option as key=value (repeatable)")
	fs.BoolVar(&f.detectArrays, "detect-arrays", true, "report detected array paths in the result")

	fs.StringVar(&f.dir, "dir", "", "analyze every file in this directory matching -pattern")
	fs.StringVar(&f.pattern, "pattern", "*.csv", "glob pattern for -dir")
	fs.IntVar(&f.workers, "workers", 0, "concurrent analyses for -dir (default from config)")

	fs.BoolVar(&f.listKinds, "list-kinds", false, "print registered input kinds and exit")
	fs.StringVar(&f.describe, "describe", "", "print the options of one input kind and exit")

	fs.StringVar(&f.store, "store", "", "catalog backend (sqlite, postgres, mssql); overrides config")
	fs.StringVar(&f.dsn, "dsn", "", "catalog DSN; overrides config")
	fs.IntVar(&f.history, "history", 0, "list the n most recent catalog rows and exit")

	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides config)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides config)")

	fs.StringVar(&f.configPath, "config", "", "YAML config path")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Environment from .env is best-effort, matching local dev setups.
	_ = godotenv.Load()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.String())
	}
	if config.HasError(issues) {
		return 1
	}

	logger, cleanupLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	defer func() { _ = cleanupLog() }()

	// Introspection paths need no metrics or storage.
	if f.listKinds {
		for _, k := range parser.Kinds() {
			fmt.Fprintln(stdout, k)
		}
		return 0
	}
	if f.describe != "" {
		return describeKind(f.describe, stdout, stderr)
	}

	closeMetrics := setupMetrics(f, cfg, logger)
	defer closeMetrics()

	ctx := context.Background()

	repo, err := openCatalog(ctx, f, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "catalog: %v\n", err)
		return 1
	}
	if repo != nil {
		defer repo.Close()
	}

	switch {
	case f.history > 0:
		if repo == nil {
			fmt.Fprintln(stderr, "-history requires a catalog (-store/-dsn or config)")
			return 2
		}
		return listHistory(ctx, repo, f, stdout, stderr)

	case f.dir != "":
		return runBatch(ctx, analyzer.New(logger), repo, f, cfg, stdout, stderr)

	case f.in != "":
		return runSingle(ctx, analyzer.New(logger), repo, f, stdout, stderr)

	default:
		fmt.Fprintln(stderr, "one of -in, -dir, -history, -list-kinds or -describe is required")
		fs.Usage()
		return 2
	}
}

func describeKind(kind string, stdout, stderr io.Writer) int {
	p, err := parser.New(kind)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "%s options:\n", p.Kind())
	for _, doc := range p.Options() {
		def := doc.Default
		if def == "" {
			def = "(none)"
		}
		fmt.Fprintf(stdout, "  %-16s %s (default %s)\n", doc.Name, doc.Description, def)
	}
	return 0
}

// setupMetrics decides the backend flag → config → none, mirrors the
// fallback-to-nop behavior on init failure, and returns the shutdown
// hook.
func setupMetrics(f cliFlags, cfg config.App, logger *slog.Logger) func() {
	backendName := f.metricsBackend
	if backendName == "" {
		backendName = cfg.Metrics.Backend
	}

	switch backendName {
	case "pushgateway":
		gwURL := f.pushgatewayURL
		if gwURL == "" {
			gwURL = cfg.Metrics.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend("flatschema", gwURL)
		if err != nil {
			logger.Warn("metrics init failed, using nop", "backend", backendName, "error", err)
			return func() {}
		}
		logger.Info("metrics enabled", "backend", backendName, "url", gwURL)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				logger.Warn("metrics flush failed", "error", err)
			}
		}

	case "datadog":
		flushEvery := time.Duration(cfg.Metrics.FlushEverySec) * time.Second
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    "flatschema",
			Tags:       datadog.ParseTagsCSV(cfg.Metrics.Tags),
			FlushEvery: flushEvery,
		})
		if err != nil {
			logger.Warn("metrics init failed, using nop", "backend", backendName, "error", err)
			return func() {}
		}
		logger.Info("metrics enabled", "backend", backendName)
		metrics.SetBackend(b)
		return func() {
			// Close stops the periodic flush loop and flushes the tail.
			if err := b.Close(); err != nil {
				logger.Warn("metrics close failed", "error", err)
			}
		}

	case "", "none":
		return func() {}

	default:
		logger.Warn("unknown metrics backend, metrics disabled", "backend", backendName)
		return func() {}
	}
}

func openCatalog(ctx context.Context, f cliFlags, cfg config.App) (storage.Repository, error) {
	kind := f.store
	if kind == "" {
		kind = cfg.Store.Kind
	}
	if kind == "" {
		return nil, nil
	}
	dsn := f.dsn
	if dsn == "" {
		dsn = cfg.Store.DSN
	}

	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: dsn})
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func listHistory(ctx context.Context, repo storage.Repository, f cliFlags, stdout, stderr io.Writer) int {
	recs, err := repo.ListRecent(ctx, f.name, f.history)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	for _, rec := range recs {
		fmt.Fprintf(stdout, "%s  %-24s %-15s %-9s fields=%-4d %s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.SchemaName, rec.SourceKind,
			rec.Mode, rec.FieldCount, shortFingerprint(rec.Fingerprint))
	}
	return 0
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// buildRequest assembles the analysis request for one input file.
func buildRequest(f cliFlags, inPath string) (analysis.Request, error) {
	kind := f.kind
	if kind == "" {
		guessed, ok := analysis.KindFromExtension(inPath)
		if !ok {
			return analysis.Request{}, fmt.Errorf("cannot guess kind for %q, pass -kind", inPath)
		}
		kind = guessed
	}

	name := f.name
	if name == "" {
		base := filepath.Base(inPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	content, err := os.ReadFile(inPath)
	if err != nil {
		return analysis.Request{}, err
	}

	req := analysis.NewRequest(kind, string(content), name)
	req.Mode = f.mode
	req.DetectArrays = f.detectArrays

	for _, samplePath := range f.samples {
		sample, err := os.ReadFile(samplePath)
		if err != nil {
			return analysis.Request{}, err
		}
		req.SampleContents = append(req.SampleContents, string(sample))
	}

	opts, err := parseOptFlags(f.opts)
	if err != nil {
		return analysis.Request{}, err
	}
	req.Options = opts
	return req, nil
}

func parseOptFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" {
			return nil, fmt.Errorf("bad -opt %q, want key=value", pair)
		}
		opts[k] = v
	}
	return opts, nil
}

func runSingle(ctx context.Context, a *analyzer.Analyzer, repo storage.Repository, f cliFlags, stdout, stderr io.Writer) int {
	req, err := buildRequest(f, f.in)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	res, err := a.Analyze(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "analyze %s: %v\n", f.in, err)
		return 1
	}

	if err := saveResult(ctx, repo, res, stderr); err != nil {
		return 1
	}

	if f.out != "" {
		if err := os.WriteFile(f.out, []byte(res.SchemaJSON+"\n"), 0o644); err != nil {
			fmt.Fprintf(stderr, "write %s: %v\n", f.out, err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, res.SchemaJSON)
	return 0
}

// runBatch analyzes every match of dir/pattern with bounded workers,
// writing a "<file>.schema.json" sibling per input and a summary line
// per file to stdout.
func runBatch(ctx context.Context, a *analyzer.Analyzer, repo storage.Repository, f cliFlags, cfg config.App, stdout, stderr io.Writer) int {
	matches, err := filepath.Glob(filepath.Join(f.dir, f.pattern))
	if err != nil {
		fmt.Fprintf(stderr, "bad -pattern %q: %v\n", f.pattern, err)
		return 2
	}
	if len(matches) == 0 {
		fmt.Fprintf(stderr, "no files match %s in %s\n", f.pattern, f.dir)
		return 1
	}

	workers := f.workers
	if workers <= 0 {
		workers = cfg.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	type outcome struct {
		path string
		res  *analysis.Result
		err  error
	}
	outcomes := make([]outcome, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range matches {
		i, path := i, path
		g.Go(func() error {
			req, err := buildRequest(f, path)
			if err != nil {
				outcomes[i] = outcome{path: path, err: err}
				return nil
			}
			res, err := a.Analyze(gctx, req)
			if err != nil {
				outcomes[i] = outcome{path: path, err: err}
				return nil
			}
			if err := os.WriteFile(path+".schema.json", []byte(res.SchemaJSON+"\n"), 0o644); err != nil {
				outcomes[i] = outcome{path: path, err: err}
				return nil
			}
			outcomes[i] = outcome{path: path, res: res}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			fmt.Fprintf(stderr, "FAIL %s: %v\n", o.path, o.err)
			continue
		}
		if err := saveResult(ctx, repo, o.res, stderr); err != nil {
			failed++
			continue
		}
		fmt.Fprintf(stdout, "OK   %s  fields=%d  %s\n",
			o.path, o.res.Metadata.TotalAttributes, shortFingerprint(o.res.Fingerprint))
	}
	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d inputs failed\n", failed, len(matches))
		return 1
	}
	return 0
}

func saveResult(ctx context.Context, repo storage.Repository, res *analysis.Result, stderr io.Writer) error {
	if repo == nil {
		return nil
	}
	saved, err := repo.SaveResult(ctx, storage.FromResult(res))
	if err != nil {
		fmt.Fprintf(stderr, "catalog save %s: %v\n", res.SchemaName, err)
		return err
	}
	if !saved {
		slog.Info("schema already cataloged", "schema", res.SchemaName, "fingerprint", shortFingerprint(res.Fingerprint))
	}
	return nil
}
