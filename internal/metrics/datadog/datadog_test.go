package datadog

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"flatschema/internal/metrics"
)

// fakeSubmitter captures submitted payloads instead of doing HTTP.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, nil
}

func (f *fakeSubmitter) all() []datadogV2.MetricPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datadogV2.MetricPayload(nil), f.payloads...)
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()

	// The hour-long ticker never fires; tests drive Flush explicitly.
	b, err := NewBackend(context.Background(), Options{
		JobName: "test_job",
		Tags:    []string{"service:flatschema"},

		now:       func() time.Time { return time.Unix(1700000000, 0) },
		newTicker: func(time.Duration) *time.Ticker { return time.NewTicker(time.Hour) },
		submitter: sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func seriesByMetric(payloads []datadogV2.MetricPayload) map[string][]datadogV2.MetricSeries {
	out := map[string][]datadogV2.MetricSeries{}
	for _, p := range payloads {
		for _, s := range p.Series {
			out[s.Metric] = append(out[s.Metric], s)
		}
	}
	return out
}

func hasTag(s datadogV2.MetricSeries, tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func TestFlushSubmitsBufferedSeries(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("schema_analyses_total", 2, metrics.Labels{"kind": "csv", "mode": "standard", "status": "ok"})
	b.IncCounter("schema_analyses_total", 1, metrics.Labels{"kind": "json", "mode": "dedup", "status": "error"})
	b.ObserveHistogram("schema_analysis_duration_seconds", 0.5, metrics.Labels{"kind": "csv", "mode": "standard", "status": "ok"})
	b.ObserveHistogram("schema_analysis_fields", 12, metrics.Labels{"kind": "csv", "mode": "standard"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := seriesByMetric(sub.all())

	counts := got["flatschema.analyses.total"]
	if len(counts) != 2 {
		t.Fatalf("analyses.total series = %d, want 2", len(counts))
	}
	var csvOK *datadogV2.MetricSeries
	for i := range counts {
		if hasTag(counts[i], "kind:csv") && hasTag(counts[i], "status:ok") {
			csvOK = &counts[i]
		}
	}
	if csvOK == nil {
		t.Fatalf("no csv/ok series: %+v", counts)
	}
	if got := *csvOK.Points[0].Value; got != 2 {
		t.Errorf("csv/ok count = %v, want 2", got)
	}
	if !hasTag(*csvOK, "job:test_job") || !hasTag(*csvOK, "service:flatschema") {
		t.Errorf("base tags missing: %v", csvOK.Tags)
	}

	for _, suffix := range []string{".p50", ".p90", ".p95", ".p99", ".max", ".samples"} {
		if len(got["flatschema.analysis.duration_seconds"+suffix]) != 1 {
			t.Errorf("missing duration percentile %s", suffix)
		}
		if len(got["flatschema.analysis.fields"+suffix]) != 1 {
			t.Errorf("missing fields percentile %s", suffix)
		}
	}
	if v := *got["flatschema.analysis.fields.max"][0].Points[0].Value; v != 12 {
		t.Errorf("fields.max = %v, want 12", v)
	}
}

func TestFlushResetsBuffers(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("schema_analyses_total", 1, metrics.Labels{"kind": "csv", "mode": "standard", "status": "ok"})
	if err := b.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	// Second flush had nothing buffered, so only one payload was sent.
	if n := len(sub.all()); n != 1 {
		t.Errorf("payloads = %d, want 1", n)
	}
}

func TestIgnoredSamples(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})
	b.IncCounter("schema_analyses_total", -1, metrics.Labels{"kind": "csv"})
	b.ObserveHistogram("unknown_seconds", 0.1, nil)
	b.ObserveHistogram("schema_analysis_duration_seconds", -0.1, metrics.Labels{"kind": "csv"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := len(sub.all()); n != 0 {
		t.Errorf("ignored samples still produced %d payloads", n)
	}
}

func TestCloseFlushesTail(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter("schema_analyses_total", 3, metrics.Labels{"kind": "html_table", "mode": "segmented", "status": "ok"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := seriesByMetric(sub.all())
	series := got["flatschema.analyses.total"]
	if len(series) != 1 || *series[0].Points[0].Value != 3 {
		t.Fatalf("tail flush series = %+v", series)
	}
	if !hasTag(series[0], "kind:html_table") || !hasTag(series[0], "mode:segmented") {
		t.Errorf("tags = %v", series[0].Tags)
	}
}

func TestMissingLabelsBecomeUnknown(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("schema_analyses_total", 1, metrics.Labels{})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series := seriesByMetric(sub.all())["flatschema.analyses.total"]
	if len(series) != 1 {
		t.Fatalf("series = %d, want 1", len(series))
	}
	for _, tag := range []string{"kind:unknown", "mode:unknown", "status:unknown"} {
		if !hasTag(series[0], tag) {
			t.Errorf("missing %s in %v", tag, series[0].Tags)
		}
	}
}

func TestPercentileNearestRank(t *testing.T) {
	samples := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.9, 9},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentileNearestRank(samples, tt.p); got != tt.want {
			t.Errorf("percentileNearestRank(p=%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("empty samples = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"env:prod", "env:prod"},
		{" env:prod , service:flatschema ", "env:prod|service:flatschema"},
		{",,a:b,", "a:b"},
	}
	for _, tt := range tests {
		got := strings.Join(ParseTagsCSV(tt.in), "|")
		if got != tt.want {
			t.Errorf("ParseTagsCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
