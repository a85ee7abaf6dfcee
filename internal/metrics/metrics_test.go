package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePatterns(t *testing.T) {
	t.Parallel()

	m, err := New()
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	m.ObservePatterns([]quickinput.ExtractedPattern{
		{Type: quickinput.KindPriority},
		{Type: quickinput.KindTag},
		{Type: quickinput.KindTag},
	})

	if got := testutil.ToFloat64(m.patternsExtracted.WithLabelValues("tag")); got != 2 {
		t.Errorf("Expected 2 tag patterns, got %v", got)
	}
	if got := testutil.ToFloat64(m.patternsExtracted.WithLabelValues("priority")); got != 1 {
		t.Errorf("Expected 1 priority pattern, got %v", got)
	}
}

func TestObserveCacheLookup(t *testing.T) {
	t.Parallel()

	m, err := New()
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("Expected 2 misses, got %v", got)
	}
}

func TestHandler_ExposesRequestMetrics(t *testing.T) {
	t.Parallel()

	m, err := New()
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	m.ObserveRequest(http.MethodPost, "/api/v1/parse", http.StatusOK, 15*time.Millisecond)
	m.ObserveJob("node_reparse", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`quicknode_http_requests_total{method="POST",route="/api/v1/parse",status="200"} 1`,
		`quicknode_http_request_duration_seconds_count{method="POST",route="/api/v1/parse"} 1`,
		`quicknode_jobs_processed_total{outcome="success",type="node_reparse"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}

func TestNewWithRegistry_ReusesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewWithRegistry("test", reg, reg)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	second, err := NewWithRegistry("test", reg, reg)
	if err != nil {
		t.Fatalf("Expected re-registration to succeed, got %v", err)
	}

	first.ObserveJob("node_suggest", "failed")
	if got := testutil.ToFloat64(second.jobsProcessed.WithLabelValues("node_suggest", "failed")); got != 1 {
		t.Errorf("Expected shared counter value 1, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObservePatterns([]quickinput.ExtractedPattern{{Type: quickinput.KindTag}})
	m.ObserveCacheLookup(true)
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ObserveJob("node_reparse", "success")
}
