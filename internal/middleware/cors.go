package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// DefaultFrontendOrigin is allowed when FRONTEND_URL is unset
const DefaultFrontendOrigin = "http://localhost:3000"

// CORS creates rs/cors middleware for the given origins
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{DefaultFrontendOrigin}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	})
	return c.Handler
}

// CORSFromEnv builds CORS middleware from a comma-separated FRONTEND_URL.
// The local development origin is always allowed.
func CORSFromEnv(frontendURL string) func(http.Handler) http.Handler {
	return CORS(ParseOrigins(frontendURL))
}

// ParseOrigins splits a comma-separated origin list, dropping blanks and duplicates.
// DefaultFrontendOrigin is always first.
func ParseOrigins(raw string) []string {
	origins := []string{DefaultFrontendOrigin}
	seen := map[string]bool{DefaultFrontendOrigin: true}
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}
