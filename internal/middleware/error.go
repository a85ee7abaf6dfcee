package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/quicknode/internal/request"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response written by middleware
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler recovers panics and answers with a JSON 500. The panic log names
// the map and node the request was working on.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					fields := append([]zap.Field{
						zap.Any("error", err),
						zap.String("route", routeTemplate(r)),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.String("request_id", request.RequestID(r.Context())),
					}, nodeRouteFields(r)...)
					logger.Error("panic_recovered", append(fields, zap.Stack("stack"))...)
					respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// nodeRouteFields returns the map and node ids captured by the matched route.
// Node ids are the {id} variable on every node route.
func nodeRouteFields(r *http.Request) []zap.Field {
	vars := mux.Vars(r)
	var fields []zap.Field
	if id := vars["mapID"]; id != "" {
		fields = append(fields, zap.String("map_id", id))
	}
	if id := vars["id"]; id != "" {
		fields = append(fields, zap.String("node_id", id))
	}
	return fields
}

// respondErrorJSON sends an error JSON response
func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := ErrorResponse{
		Success:   false,
		Error:     errorType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		RequestID: request.RequestID(r.Context()),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil && logger != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.Int("status_code", status),
			zap.String("path", r.URL.Path),
		)
	}
}
