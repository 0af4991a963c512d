// Package telemetry records HTTP and form-workflow metrics and serves them in
// the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// DurationBuckets are the request duration boundaries, in seconds.
var DurationBuckets = []float64{0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{boundaries: boundaries, bucketCounts: make([]int64, len(boundaries))}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

// Count returns the number of observations.
func (h *histogram) Count() int64 { return atomic.LoadInt64(&h.count) }

// Sum returns the sum of all observations.
func (h *histogram) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&h.sum)) }

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	var running int64
	for i, c := range raw {
		running += c
		raw[i] = running
	}
	return raw
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

type gauge struct {
	name string
	help string
	read func() int64
}

// Provider holds the metric state of one server.
type Provider struct {
	mu         sync.RWMutex
	durations  map[string]*histogram // method|route|status
	counters   map[string]*int64     // name|label|label
	gauges     []gauge
	active     int64
	submission string
}

// NewProvider returns an empty Provider.
func NewProvider() *Provider {
	return &Provider{
		durations:  make(map[string]*histogram),
		counters:   make(map[string]*int64),
		submission: "form_submissions_total",
	}
}

// LabelsKey builds the key of a labeled series.
func LabelsKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// Gauge registers a gauge read on every scrape.
func (p *Provider) Gauge(name, help string, read func() int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gauges = append(p.gauges, gauge{name: name, help: help, read: read})
}

// RecordSubmission counts a form submission by resource and outcome
// (created, updated, failed, in_flight).
func (p *Provider) RecordSubmission(resource, outcome string) {
	p.inc(LabelsKey(p.submission, resource, outcome))
}

// Counter returns the current value of a counter series.
func (p *Provider) Counter(key string) int64 {
	p.mu.RLock()
	c, ok := p.counters[key]
	p.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

// Duration returns the request duration histogram of a route, or nil.
func (p *Provider) Duration(method, route, status string) *histogram {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.durations[LabelsKey(method, route, status)]
}

// Active returns the number of requests in progress.
func (p *Provider) Active() int64 { return atomic.LoadInt64(&p.active) }

func (p *Provider) inc(key string) {
	p.mu.RLock()
	c, ok := p.counters[key]
	p.mu.RUnlock()
	if !ok {
		p.mu.Lock()
		if c, ok = p.counters[key]; !ok {
			c = new(int64)
			p.counters[key] = c
		}
		p.mu.Unlock()
	}
	atomic.AddInt64(c, 1)
}

func (p *Provider) observe(key string, v float64) {
	p.mu.RLock()
	h, ok := p.durations[key]
	p.mu.RUnlock()
	if !ok {
		p.mu.Lock()
		if h, ok = p.durations[key]; !ok {
			h = newHistogram(DurationBuckets)
			p.durations[key] = h
		}
		p.mu.Unlock()
	}
	h.Observe(v)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// Middleware records request duration per route pattern and the number of
// requests in flight.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.active, 1)
			defer atomic.AddInt64(&p.active, -1)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := fmt.Sprintf("%d", c.Response().Status)
			p.observe(LabelsKey(c.Request().Method, route, status), time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves GET /metrics.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, p.Render())
	}
}

// Render writes every metric in the Prometheus text format. Series are
// sorted so scrapes are stable.
func (p *Provider) Render() string {
	var b strings.Builder

	p.mu.RLock()
	durations := make(map[string]*histogram, len(p.durations))
	for k, h := range p.durations {
		durations[k] = h
	}
	counters := make(map[string]int64, len(p.counters))
	for k, c := range p.counters {
		counters[k] = atomic.LoadInt64(c)
	}
	gauges := append([]gauge(nil), p.gauges...)
	p.mu.RUnlock()

	b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
	b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
	for _, key := range sortedKeys(durations) {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		writeHistogram(&b, "http_server_request_duration_seconds", labels, durations[key])
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_active_requests Number of active HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n\n", p.Active())

	fmt.Fprintf(&b, "# HELP %s Form submissions by resource and outcome.\n", p.submission)
	fmt.Fprintf(&b, "# TYPE %s counter\n", p.submission)
	for _, key := range sortedKeys(counters) {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 || parts[0] != p.submission {
			continue
		}
		fmt.Fprintf(&b, "%s{resource=%q,outcome=%q} %d\n", parts[0], parts[1], parts[2], counters[key])
	}
	b.WriteByte('\n')

	for _, g := range gauges {
		fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&b, "%s %d\n\n", g.name, g.read())
	}
	return b.String()
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
