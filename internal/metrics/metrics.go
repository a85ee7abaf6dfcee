// Package metrics exports Prometheus collectors for the parser, the parse cache,
// the HTTP API and the worker.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "quicknode"

// Metrics holds the service collectors
type Metrics struct {
	gatherer prometheus.Gatherer

	patternsExtracted *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	jobsProcessed     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(DefaultNamespace, reg, reg)
}

// NewWithRegistry registers the collectors on reg. Collectors already present are reused.
func NewWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{gatherer: gatherer}
	var err error

	m.patternsExtracted, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "patterns_extracted_total",
		Help:      "Quick-input patterns extracted, by kind.",
	}, []string{"kind"})
	if err != nil {
		return nil, err
	}

	m.cacheLookups, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_cache_lookups_total",
		Help:      "Parse cache lookups, by result.",
	}, []string{"result"})
	if err != nil {
		return nil, err
	}

	m.httpRequests, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by method, route and status code.",
	}, []string{"method", "route", "status"})
	if err != nil {
		return nil, err
	}

	m.httpDuration, err = registerHistogramVec(reg, prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	if err != nil {
		return nil, err
	}

	m.jobsProcessed, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Worker jobs handled, by type and outcome.",
	}, []string{"type", "outcome"})
	if err != nil {
		return nil, err
	}

	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to register %s: %w", opts.Name, err)
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) (*prometheus.HistogramVec, error) {
	vec := prometheus.NewHistogramVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to register %s: %w", opts.Name, err)
	}
	return vec, nil
}

// ObservePatterns counts extracted patterns per kind
func (m *Metrics) ObservePatterns(patterns []quickinput.ExtractedPattern) {
	if m == nil {
		return
	}
	for _, p := range patterns {
		m.patternsExtracted.WithLabelValues(string(p.Type)).Inc()
	}
}

// ObserveCacheLookup records a parse cache hit or miss.
// Its signature matches cache.WithLookupHook.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveJob records a worker job outcome
func (m *Metrics) ObserveJob(jobType, outcome string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(jobType, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
