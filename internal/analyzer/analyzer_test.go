package analyzer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"flatschema/internal/analysis"
	_ "flatschema/internal/parser/delimited"
	_ "flatschema/internal/parser/jsondoc"
	"flatschema/internal/schema"
)

func testAnalyzer(logOut io.Writer) *Analyzer {
	if logOut == nil {
		logOut = io.Discard
	}
	a := New(slog.New(slog.NewTextHandler(logOut, nil)))
	a.newID = func() string { return "analysis-1" }

	clock := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	a.now = func() time.Time {
		clock = clock.Add(5 * time.Millisecond)
		return clock
	}
	return a
}

func TestAnalyzeCSV(t *testing.T) {
	t.Parallel()

	req := analysis.NewRequest(analysis.KindCSV, "id,name,total\n1,alpha,9.50\n2,beta,3\n", "orders")
	res, err := testAnalyzer(nil).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !res.Success {
		t.Error("Success = false")
	}
	if res.AnalysisID != "analysis-1" {
		t.Errorf("AnalysisID = %q", res.AnalysisID)
	}
	if res.SourceKind != "csv" || res.Mode != "standard" {
		t.Errorf("kind/mode = %q/%q", res.SourceKind, res.Mode)
	}
	if res.Schema["$schema"] != schema.DraftVersion {
		t.Errorf("$schema = %v", res.Schema["$schema"])
	}
	if len(res.Fingerprint) != 64 {
		t.Errorf("fingerprint = %q", res.Fingerprint)
	}
	if !strings.Contains(res.SchemaJSON, `"title": "orders"`) {
		t.Errorf("SchemaJSON missing title: %s", res.SchemaJSON)
	}

	// Tree is array -> item -> 3 scalars: 5 nodes, 3 fields, 1 array.
	if res.Metadata.TotalElements != 5 {
		t.Errorf("TotalElements = %d, want 5", res.Metadata.TotalElements)
	}
	if res.Metadata.TotalAttributes != 3 {
		t.Errorf("TotalAttributes = %d, want 3", res.Metadata.TotalAttributes)
	}
	if res.Metadata.ArrayElements != 1 {
		t.Errorf("ArrayElements = %d, want 1", res.Metadata.ArrayElements)
	}
	if res.ElementsAnalyzed != 5 {
		t.Errorf("ElementsAnalyzed = %d, want 5", res.ElementsAnalyzed)
	}
	if res.Metadata.GeneratedAt != "2026-03-14T09:30:00Z" {
		t.Errorf("GeneratedAt = %q", res.Metadata.GeneratedAt)
	}
	if res.AnalysisTimeMs <= 0 {
		t.Errorf("AnalysisTimeMs = %d, want > 0", res.AnalysisTimeMs)
	}

	if len(res.DetectedArrayPaths) != 1 || res.DetectedArrayPaths[0] != "orders" {
		t.Errorf("DetectedArrayPaths = %v", res.DetectedArrayPaths)
	}
}

func TestAnalyzeSamplesWiden(t *testing.T) {
	t.Parallel()

	req := analysis.NewRequest(analysis.KindCSV, "id,name\n1,alpha\n", "widen")
	req.SampleContents = []string{"id,name\n2.5,beta\n"}

	res, err := testAnalyzer(nil).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	items := res.Schema["items"].(map[string]any)
	props := items["properties"].(map[string]any)
	if got := props["id"].(map[string]any)["type"]; got != "number" {
		t.Errorf("id type after sample fusion = %v, want number", got)
	}
}

func TestAnalyzeBadSampleSkipped(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	req := analysis.NewRequest(analysis.KindCSV, "id\n1\n", "robust")
	req.SampleContents = []string{"", "id\n7\n"}

	res, err := testAnalyzer(&logBuf).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Success {
		t.Error("Success = false")
	}

	logged := logBuf.String()
	if !strings.Contains(logged, "sample failed to parse") {
		t.Errorf("missing skip warning in log: %s", logged)
	}
	if !strings.Contains(logged, "robust_sample0") {
		t.Errorf("skip warning should name the sample: %s", logged)
	}
}

func TestAnalyzeDedupMode(t *testing.T) {
	t.Parallel()

	req := analysis.NewRequest(analysis.KindCSV, "BATCH.ID,AMOUNT\n1,2.5\n", "LEDGER")
	req.Mode = analysis.ModeDedup

	res, err := testAnalyzer(nil).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	defs, ok := res.Schema["$defs"].(map[string]any)
	if !ok {
		t.Fatalf("dedup schema missing $defs: %v", res.Schema)
	}
	header := defs["Header"].(map[string]any)["properties"].(map[string]any)
	if _, ok := header["batchId"]; !ok {
		t.Errorf("header properties = %v", header)
	}
}

func TestAnalyzeDetectArraysOff(t *testing.T) {
	t.Parallel()

	req := analysis.NewRequest(analysis.KindCSV, "id\n1\n", "noarrays")
	req.DetectArrays = false

	res, err := testAnalyzer(nil).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.DetectedArrayPaths != nil {
		t.Errorf("DetectedArrayPaths = %v, want nil", res.DetectedArrayPaths)
	}
	if res.Metadata.ArrayElements != 1 {
		t.Errorf("ArrayElements still counts arrays, got %d", res.Metadata.ArrayElements)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  func() analysis.Request
		code analysis.Code
	}{
		{
			"blank kind",
			func() analysis.Request { return analysis.NewRequest("", "x", "n") },
			analysis.ValidationError,
		},
		{
			"unknown kind",
			func() analysis.Request { return analysis.NewRequest("parquet", "x", "n") },
			analysis.UnsupportedInput,
		},
		{
			"unknown mode",
			func() analysis.Request {
				r := analysis.NewRequest(analysis.KindCSV, "id\n1\n", "n")
				r.Mode = "sideways"
				return r
			},
			analysis.ValidationError,
		},
		{
			"empty main content",
			func() analysis.Request { return analysis.NewRequest(analysis.KindCSV, "id\n", "n") },
			analysis.EmptyInput,
		},
		{
			"main parse failure",
			func() analysis.Request {
				return analysis.NewRequest(analysis.KindJSON, "{not json", "n")
			},
			analysis.ParseError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := testAnalyzer(nil).Analyze(context.Background(), tt.req())
			if !analysis.IsCode(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestAnalyzeContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := analysis.NewRequest(analysis.KindCSV, "id\n1\n", "canceled")
	req.SampleContents = []string{"id\n2\n"}

	_, err := testAnalyzer(nil).Analyze(ctx, req)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeFingerprintStable(t *testing.T) {
	t.Parallel()

	content := "a,b\n1,x\n"
	first, err := testAnalyzer(nil).Analyze(context.Background(), analysis.NewRequest(analysis.KindCSV, content, "stable"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := testAnalyzer(nil).Analyze(context.Background(), analysis.NewRequest(analysis.KindCSV, content, "stable"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
}
