// Package auth verifies bearer tokens and carries the resulting principal
// through request context. The parser shape — jwt.NewParser with
// WithValidMethods, ParseWithClaims against a custom claims struct — is
// grounded on verifyAgentToken in the retrieval pack's higress-gateway
// bridge command, adapted from a single-purpose agent token to the
// gateway's end-user bearer token described in spec §4.4.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

// ErrInvalidToken is returned for any verification failure: bad signature,
// wrong algorithm, expired, or malformed claims. Callers must not
// distinguish further, per spec §4.4 (all failures produce a 401).
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Claims is the gateway's expected JWT payload shape (spec §3 GLOSSARY).
type Claims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against a single HMAC-SHA256 secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a Verifier over secret. The parser is restricted to
// HS256 so an attacker cannot downgrade to "none" or an asymmetric
// algorithm the gateway never configured a key for.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Authenticate verifies tokenString and, on success, returns the
// wire.Principal derived from its claims. Any failure collapses to
// ErrInvalidToken (testable property #5: a single bit flipped in the
// signature, or exp <= now, both fail the same way).
func (v *Verifier) Authenticate(tokenString string) (wire.Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return wire.Principal{}, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("auth: unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return wire.Principal{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return wire.Principal{}, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(time.Now()) {
		return wire.Principal{}, ErrInvalidToken
	}

	return wire.Principal{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Roles:     claims.Roles,
	}, nil
}
