package auth

import (
	"net/http"
	"strings"

	"github.com/dev-kitchen/api-gateway/internal/apierror"
	"github.com/dev-kitchen/api-gateway/internal/logging"
)

// PublicPrefixes are path prefixes that never require a bearer token
// (spec §4.4's permitted-without-auth table: auth endpoints, actuator,
// API docs, and the health check).
var PublicPrefixes = []string{
	"/api/auth/",
	"/actuator/",
	"/api/health",
	"/swagger",
	"/v3/api-docs",
}

// isPublic reports whether path matches one of PublicPrefixes.
func isPublic(path string) bool {
	for _, prefix := range PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Filter builds the bearer-token authentication middleware described in
// spec §4.4: public paths pass through untouched; everything else must
// carry a well-formed "Authorization: Bearer <token>" header (exact
// prefix, single space, case-sensitive scheme) with a token that verifies,
// or the request is rejected with 401 before it ever reaches the Bridge.
func Filter(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				apierror.WriteError(w, r, apierror.NewError(apierror.KindUnauthorized, "missing or malformed bearer token"))
				return
			}

			principal, err := verifier.Authenticate(token)
			if err != nil {
				apierror.WriteError(w, r, apierror.NewError(apierror.KindUnauthorized, "invalid or expired token"))
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logging.WithFields(ctx, "accountId", principal.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from a "Bearer <token>" header value. The
// scheme must be exactly "Bearer" (case-sensitive) followed by a single
// space, per spec §4.4's strict parsing rule.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return "", false
	}
	return token, true
}
