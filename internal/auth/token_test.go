package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sign(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func validClaims() Claims {
	return Claims{
		Email: "a@example.com",
		Roles: []string{"user"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acct-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, validClaims(), testSecret)

	p, err := v.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.AccountID != "acct-1" {
		t.Fatalf("AccountID = %q, want acct-1", p.AccountID)
	}
}

// TestAuthenticateRejectsFlippedSignature covers testable property #5: a
// single bit flipped in the signature must fail verification.
func TestAuthenticateRejectsFlippedSignature(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, validClaims(), testSecret)

	// The last base64url character of a 32-byte HMAC carries two unused
	// low bits, so 'A' is changed to 'E' (a significant bit), not 'B'.
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'E'
	} else {
		tampered[last] = 'A'
	}

	if _, err := v.Authenticate(string(tampered)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Second))
	token := sign(t, claims, testSecret)

	if _, err := v.Authenticate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, validClaims(), "a-completely-different-secret-value")

	if _, err := v.Authenticate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestAuthenticateRejectsEmptyToken(t *testing.T) {
	v := NewVerifier(testSecret)
	if _, err := v.Authenticate(""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestAuthenticateRejectsNoneAlgorithm(t *testing.T) {
	v := NewVerifier(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := v.Authenticate(signed); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestBearerTokenStrictPrefix(t *testing.T) {
	cases := map[string]bool{
		"Bearer abc.def.ghi": true,
		"bearer abc.def.ghi": false,
		"Bearer  abc":        true,
		"Bearer":             false,
		"":                   false,
	}
	for header, want := range cases {
		if _, ok := bearerToken(header); ok != want {
			t.Errorf("bearerToken(%q) ok = %v, want %v", header, ok, want)
		}
	}
}
