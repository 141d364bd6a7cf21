// Package analyzer runs the full analysis pipeline: validate the
// request, parse the main content and any samples, merge the structural
// trees, generate the requested schema, and assemble the result.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/metrics"
	"flatschema/internal/parser"
	"flatschema/internal/schema"
	"flatschema/internal/structure"
)

// Analyzer orchestrates analysis runs. Zero-value seams are filled in by
// New; tests override now and newID for stable output.
type Analyzer struct {
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// New builds an analyzer logging through log. A nil log uses
// slog.Default().
func New(log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Analyze runs one request end to end.
//
// The main content must parse; a sample that fails to parse is logged as
// a warning and skipped, so one bad sample never sinks the run. The
// generated document is validated before it is returned; a document the
// generator produced but that does not compile is a ValidationError.
func (a *Analyzer) Analyze(ctx context.Context, req analysis.Request) (res *analysis.Result, err error) {
	start := a.now()
	kind := analysis.NormalizeKind(req.Kind)
	mode := analysis.NormalizeMode(req.Mode)

	fields := 0
	defer func() {
		metrics.RecordAnalysis(kind, mode, err, a.now().Sub(start), fields)
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	p, err := parser.New(kind)
	if err != nil {
		return nil, err
	}
	opts := config.Options(req.Options)

	main, err := p.Parse(req.Content, req.SchemaName, opts)
	if err != nil {
		return nil, err
	}

	trees := make([]*structure.Node, 0, 1+len(req.SampleContents))
	trees = append(trees, main)
	for i, sample := range req.SampleContents {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s_sample%d", req.SchemaName, i)
		tree, sampleErr := p.Parse(sample, name, opts)
		if sampleErr != nil {
			a.log.Warn("sample failed to parse, skipping",
				"sample", name,
				"kind", kind,
				"error", sampleErr)
			continue
		}
		trees = append(trees, tree)
	}

	merged, err := structure.MergeSamples(trees)
	if err != nil {
		return nil, err
	}

	doc, err := schema.Generate(merged, req)
	if err != nil {
		return nil, err
	}
	if vErr := schema.ValidateDocument(doc); vErr != nil {
		err = analysis.WrapError(analysis.ValidationError, kind, vErr, "generated schema is not valid")
		return nil, err
	}

	rendered, err := schema.Render(doc)
	if err != nil {
		return nil, err
	}
	fingerprint, err := schema.Fingerprint(doc)
	if err != nil {
		return nil, err
	}

	fields = structure.CountScalars(merged)
	totalElements := structure.CountNodes(merged)
	var arrayPaths []string
	if req.DetectArrays {
		arrayPaths = structure.ArrayPaths(merged)
	}

	elapsed := a.now().Sub(start)
	res = &analysis.Result{
		AnalysisID:  a.newID(),
		SchemaName:  req.SchemaName,
		SourceKind:  kind,
		Mode:        mode,
		Schema:      doc,
		SchemaJSON:  rendered,
		Fingerprint: fingerprint,
		Metadata: analysis.Metadata{
			SchemaVersion:   schema.DraftVersion,
			RootElement:     req.SchemaName,
			SourceKind:      kind,
			GeneratedAt:     a.now().UTC().Format(time.RFC3339),
			TotalElements:   totalElements,
			TotalAttributes: fields,
			ArrayElements:   structure.CountArrays(merged),
		},
		DetectedArrayPaths: arrayPaths,
		ElementsAnalyzed:   totalElements,
		AnalysisTimeMs:     elapsed.Milliseconds(),
		Success:            true,
	}

	a.log.Info("analysis complete",
		"analysis_id", res.AnalysisID,
		"schema", req.SchemaName,
		"kind", kind,
		"mode", mode,
		"fields", fields,
		"samples", len(trees)-1,
		"elapsed_ms", res.AnalysisTimeMs)

	return res, nil
}
