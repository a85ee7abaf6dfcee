package handlers

import (
	"net/http"
	"strings"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/metrics"
	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/telemetry"
	"github.com/benvon/quicknode/internal/validation"
	"github.com/gorilla/mux"
)

// MaxQuickInputLength is the maximum length for quick-input text
const MaxQuickInputLength = 10000

// ParseHandler exposes the quick-input parser and completion source
type ParseHandler struct {
	cache   *cache.ParseCache
	metrics *metrics.Metrics
}

// NewParseHandler creates a new parse handler. metrics may be nil.
func NewParseHandler(parseCache *cache.ParseCache, m *metrics.Metrics) *ParseHandler {
	return &ParseHandler{cache: parseCache, metrics: m}
}

// RegisterRoutes registers parse and completion routes on the /api/v1 router
func (h *ParseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/parse", h.Parse).Methods("POST")
	r.HandleFunc("/completions", h.Search).Methods("GET")
	r.HandleFunc("/completions", h.Complete).Methods("POST")
	r.HandleFunc("/completions/{kind}", h.CompletionsForKind).Methods("GET")
	r.HandleFunc("/palette", h.Palette).Methods("GET")
}

// Parse parses quick-input text. The text is parsed as submitted so pattern offsets
// index into the caller's string.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req models.ParseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := h.parse(r, "api", req.Text)
	respondJSON(w, http.StatusOK, models.NewParseResponse(result))
}

// parse runs a cached parse inside a span and records pattern metrics
func (h *ParseHandler) parse(r *http.Request, source, text string) quickinput.ParseResult {
	_, span := telemetry.StartParseSpan(r.Context(), source, len(text))
	defer span.End()

	result := h.cache.Parse(text)
	telemetry.RecordParseResult(span, result)
	h.metrics.ObservePatterns(result.Patterns)
	return result
}

// Complete returns completions for the token before the cursor.
// The cursor defaults to the end of the text.
func (h *ParseHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cursor := len(req.Text)
	if req.Cursor != nil {
		cursor = *req.Cursor
	}
	if cursor > len(req.Text) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Cursor is past the end of the text")
		return
	}

	result := quickinput.UniversalCompletionSource(req.Text, cursor)
	if result == nil {
		result = &quickinput.CompletionResult{From: cursor, Options: []quickinput.CompletionItem{}}
	}
	respondJSON(w, http.StatusOK, result)
}

// CompletionsForKind returns the filtered candidates of one pattern kind
func (h *ParseHandler) CompletionsForKind(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if err := validation.ValidatePatternKind(kind); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	options := quickinput.GetCompletionsForPattern(quickinput.PatternKind(kind), query)
	respondJSON(w, http.StatusOK, options)
}

// Search matches ?q= against every candidate table, grouped by section
func (h *ParseHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Query parameter q is required")
		return
	}
	respondJSON(w, http.StatusOK, quickinput.SearchCompletions(query))
}

// Palette returns the full color palette
func (h *ParseHandler) Palette(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, quickinput.ColorPalette())
}
