package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/benvon/quicknode/internal/models"
	"github.com/google/uuid"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	requestIDContextKey contextKey = "request_id"
)

// PrincipalContextKey returns the context key used for the principal. Exposed for tests that inject non-principal values.
func PrincipalContextKey() contextKey { return principalContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
// The port is stripped from RemoteAddr so rate-limit buckets are per host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithPrincipal returns a context with the principal attached.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal from the request context, or nil if missing or wrong type.
func PrincipalFromContext(r *http.Request) *models.Principal {
	p, _ := r.Context().Value(principalContextKey).(*models.Principal)
	return p
}

// UserID returns the caller's ID, or uuid.Nil for anonymous requests.
func UserID(r *http.Request) uuid.UUID {
	if p := PrincipalFromContext(r); p != nil {
		return p.ID
	}
	return uuid.Nil
}

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestID returns the request ID from ctx, or "" when none was set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
