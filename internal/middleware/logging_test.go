package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/quicknode/internal/metrics"
	"github.com/benvon/quicknode/internal/request"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
	}{
		{name: "GET request", method: "GET", path: "/test", handlerStatus: http.StatusOK},
		{name: "POST request", method: "POST", path: "/api/v1/parse", handlerStatus: http.StatusCreated},
		{name: "404 request", method: "GET", path: "/notfound", handlerStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			Logging(zap.New(core), nil)(handler).ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != int64(tt.handlerStatus) {
				t.Errorf("Expected status_code %d, got %v", tt.handlerStatus, fields["status_code"])
			}
			if fields["route"] != "unmatched" {
				t.Errorf("Expected route 'unmatched', got %v", fields["route"])
			}
		})
	}
}

func TestLogging_RouteTemplateAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewWithRegistry("test", reg, reg)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	r := mux.NewRouter()
	r.Use(Logging(zap.New(core), m))
	r.HandleFunc("/nodes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodDelete, "/nodes/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 http_request entries, got %d", len(entries))
	}
	if route := entries[0].ContextMap()["route"]; route != "/nodes/{id}" {
		t.Errorf("Expected route '/nodes/{id}', got %v", route)
	}

	count, err := testutil.GatherAndCount(reg, "test_http_requests_total")
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected a single route series, got %d", count)
	}
}

func TestLoggingResponseWriter(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("test"))
	})

	core, logs := observer.New(zapcore.InfoLevel)
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	Logging(zap.New(core), nil)(handler).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if got := logs.All()[0].ContextMap()["status_code"]; got != int64(http.StatusCreated) {
		t.Errorf("Expected logged status 201, got %v", got)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "client id reused", incoming: "abc-123", wantSame: true},
		{name: "missing id minted", incoming: ""},
		{name: "oversized id replaced", incoming: strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = request.RequestID(r.Context())
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			RequestID(handler).ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("Expected request ID on context")
			}
			if got := w.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("Expected response header %q, got %q", seen, got)
			}
			if tt.wantSame && seen != tt.incoming {
				t.Errorf("Expected %q, got %q", tt.incoming, seen)
			}
			if !tt.wantSame && seen == tt.incoming {
				t.Errorf("Expected a fresh ID, got %q", seen)
			}
			if len(seen) > maxRequestIDLength {
				t.Errorf("Expected ID at most %d chars, got %d", maxRequestIDLength, len(seen))
			}
		})
	}
}
