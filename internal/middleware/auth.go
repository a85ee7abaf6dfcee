package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Claims, error)
}

// Auth creates authentication middleware that validates JWT bearer tokens
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.Error(err),
					zap.String("request_id", request.RequestID(r.Context())),
				)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			principal := models.PrincipalFromClaims(claims)
			next.ServeHTTP(w, r.WithContext(request.WithPrincipal(r.Context(), principal)))
		})
	}
}

// StaticPrincipal attaches a fixed principal to every request. It is used when
// authentication is disabled for local development.
func StaticPrincipal(principal *models.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(request.WithPrincipal(r.Context(), principal)))
		})
	}
}

// DevPrincipal derives the local development principal from a subject
func DevPrincipal(subject string) *models.Principal {
	if subject == "" {
		subject = "local-dev"
	}
	return models.PrincipalFromClaims(&models.Claims{Sub: subject, Iss: "quicknode-dev", Name: "Local Developer"})
}
