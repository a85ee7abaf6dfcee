package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/quicknode/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultClockSkew is the leeway allowed on exp, iat and nbf
const DefaultClockSkew = 30 * time.Second

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = errors.New("token missing subject claim")

// Verifier verifies JWT tokens against one issuer's key set
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	jwksURL     string
	audience    string
	now         func() time.Time
}

// NewVerifier creates a new JWT verifier. audience may be empty to skip the aud check.
func NewVerifier(jwksManager *JWKSManager, issuer, jwksURL, audience string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
		jwksURL:     jwksURL,
		audience:    audience,
		now:         time.Now,
	}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.Claims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(DefaultClockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}
	if token.Subject() == "" {
		return nil, ErrMissingSubject
	}

	claims := &models.Claims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	claims.Email = stringClaim(token, "email")
	claims.Name = stringClaim(token, "name")

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
