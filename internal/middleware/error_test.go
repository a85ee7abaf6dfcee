package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler_NoPanic(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	middleware := ErrorHandler(zap.NewNop())(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestErrorHandler_PanicRecovery(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	middleware := ErrorHandler(zap.NewNop())(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	// Should not panic
	middleware.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.Success {
		t.Error("Expected success to be false")
	}

	if body.Error != "Internal Server Error" {
		t.Errorf("Expected error 'Internal Server Error', got '%s'", body.Error)
	}

	if body.Message != "An unexpected error occurred" {
		t.Errorf("Expected message 'An unexpected error occurred', got '%s'", body.Message)
	}

	if body.Path != "/test" {
		t.Errorf("Expected path '/test', got '%s'", body.Path)
	}

	if body.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestErrorHandler_PanicWithNil(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var nilMap map[string]string
		nilMap["key"] = "value" // This will panic
	})

	middleware := ErrorHandler(zap.NewNop())(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}
}

func TestErrorHandler_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected http.ErrAbortHandler to be re-panicked, got %v", rec)
		}
	}()

	req := httptest.NewRequest("GET", "/test", nil)
	ErrorHandler(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), req)
	t.Error("Expected panic to propagate")
}

func TestErrorHandler_IncludesRequestID(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	RequestID(ErrorHandler(zap.NewNop())(handler)).ServeHTTP(w, req)

	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.RequestID != "req-42" {
		t.Errorf("Expected request_id 'req-42', got '%s'", body.RequestID)
	}
}

func TestErrorHandler_LogsNodeRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		wantMap  string
		wantNode string
		route    string
	}{
		{
			name:     "map scoped node",
			target:   "/maps/m-1/nodes/n-2",
			wantMap:  "m-1",
			wantNode: "n-2",
			route:    "/maps/{mapID}/nodes/{id}",
		},
		{
			name:     "node action",
			target:   "/nodes/n-3/suggest",
			wantNode: "n-3",
			route:    "/nodes/{id}/suggest",
		},
		{
			name:   "parse",
			target: "/parse",
			route:  "/parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.ErrorLevel)
			boom := func(w http.ResponseWriter, r *http.Request) { panic("boom") }

			r := mux.NewRouter()
			r.Use(ErrorHandler(zap.New(core)))
			r.HandleFunc("/maps/{mapID}/nodes/{id}", boom)
			r.HandleFunc("/nodes/{id}/suggest", boom)
			r.HandleFunc("/parse", boom)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", tt.target, nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", w.Code)
			}
			entries := logs.FilterMessage("panic_recovered").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 panic_recovered entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["route"] != tt.route {
				t.Errorf("Expected route '%s', got '%v'", tt.route, fields["route"])
			}
			if got, _ := fields["map_id"].(string); got != tt.wantMap {
				t.Errorf("Expected map_id '%s', got '%s'", tt.wantMap, got)
			}
			if got, _ := fields["node_id"].(string); got != tt.wantNode {
				t.Errorf("Expected node_id '%s', got '%s'", tt.wantNode, got)
			}
		})
	}
}
