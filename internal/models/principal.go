package models

import (
	"github.com/google/uuid"
)

// Claims represents the claims extracted from a verified bearer token
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}

// Principal is the authenticated caller of a request
type Principal struct {
	ID      uuid.UUID `json:"id"`
	Subject string    `json:"subject"`
	Email   string    `json:"email,omitempty"`
	Name    string    `json:"name,omitempty"`
}

// PrincipalFromClaims derives a stable principal from token claims.
// Subjects that are already UUIDs are used as-is; others are hashed with the issuer.
func PrincipalFromClaims(claims *Claims) *Principal {
	id, err := uuid.Parse(claims.Sub)
	if err != nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(claims.Iss+"#"+claims.Sub))
	}
	return &Principal{
		ID:      id,
		Subject: claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
	}
}
