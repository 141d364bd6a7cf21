// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package.
//
// Samples are buffered in-memory and pushed as one text-exposition
// document per Flush(). Histograms are aggregated to <name>_sum and
// <name>_count, which is what a pull-based summary would expose and
// keeps the push payload small.
package prompush

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"flatschema/internal/metrics"
)

// Backend implements metrics.Backend against a Pushgateway.
type Backend struct {
	jobName string
	pushURL string
	client  *http.Client

	mu       sync.Mutex
	counters map[string]map[string]float64 // name -> labelset -> value
	sums     map[string]map[string]float64
	counts   map[string]map[string]float64
}

// NewBackend validates the gateway URL and constructs a backend. No
// network traffic happens until Flush().
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		return nil, fmt.Errorf("prompush: empty job name")
	}
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("prompush: bad gateway url %q: %w", gatewayURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prompush: gateway url %q must be absolute", gatewayURL)
	}

	return &Backend{
		jobName: jobName,
		pushURL: strings.TrimRight(gatewayURL, "/") + "/metrics/job/" + url.PathEscape(jobName),
		client:  &http.Client{Timeout: 10 * time.Second},

		counters: map[string]map[string]float64{},
		sums:     map[string]map[string]float64{},
		counts:   map[string]map[string]float64{},
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if name == "" || delta <= 0 {
		return
	}
	ls := labelSet(labels)

	b.mu.Lock()
	defer b.mu.Unlock()
	bump(b.counters, name, ls, delta)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name == "" || value < 0 {
		return
	}
	ls := labelSet(labels)

	b.mu.Lock()
	defer b.mu.Unlock()
	bump(b.sums, name+"_sum", ls, value)
	bump(b.counts, name+"_count", ls, 1)
}

func bump(m map[string]map[string]float64, name, labelSet string, delta float64) {
	inner := m[name]
	if inner == nil {
		inner = map[string]float64{}
		m[name] = inner
	}
	inner[labelSet] += delta
}

// Flush pushes buffered samples and resets the buffers. Nothing
// buffered means no request. Buffers are reset even when the push
// fails, so a broken gateway never blocks future writes.
func (b *Backend) Flush() error {
	body := b.renderAndReset()
	if body == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodPut, b.pushURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("prompush: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; version=0.0.4")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.pushURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("prompush: gateway returned %s", resp.Status)
	}
	return nil
}

func (b *Backend) renderAndReset() string {
	b.mu.Lock()
	counters, sums, counts := b.counters, b.sums, b.counts
	b.counters = map[string]map[string]float64{}
	b.sums = map[string]map[string]float64{}
	b.counts = map[string]map[string]float64{}
	b.mu.Unlock()

	var sb strings.Builder
	renderFamily(&sb, counters)
	renderFamily(&sb, sums)
	renderFamily(&sb, counts)
	return sb.String()
}

// renderFamily appends text-exposition lines, sorted for deterministic
// payloads.
func renderFamily(sb *strings.Builder, m map[string]map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sets := make([]string, 0, len(m[name]))
		for ls := range m[name] {
			sets = append(sets, ls)
		}
		sort.Strings(sets)

		for _, ls := range sets {
			sb.WriteString(name)
			sb.WriteString(ls)
			fmt.Fprintf(sb, " %v\n", m[name][ls])
		}
	}
}

// labelSet renders labels as a sorted {k="v",...} block, empty labels as
// the empty string.
func labelSet(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(escapeLabelValue(labels[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func escapeLabelValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

var _ metrics.Backend = (*Backend)(nil)
var _ metrics.Flusher = (*Backend)(nil)
