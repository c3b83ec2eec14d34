package router

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dev-kitchen/api-gateway/internal/logging"
)

// CorrelationIDHeader is the header a client may supply to propagate its
// own trace id; if absent, one is generated. This id seeds the broker
// correlationId the Bridge publishes with (spec §4.3 step 3).
const CorrelationIDHeader = "X-Correlation-Id"

type correlationIDCtxKey int

const correlationIDKey correlationIDCtxKey = iota

// CorrelationID extracts the filter-assigned id from r's context.
func CorrelationID(r *http.Request) string {
	id, _ := r.Context().Value(correlationIDKey).(string)
	return id
}

// CorrelationFilter assigns a request-scoped correlation id before any
// other handler runs, mirroring envelope.TraceID threading
// but sourced per-HTTP-request rather than per-pipeline-hop.
func CorrelationFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, id)

		ctx := context.WithValue(r.Context(), correlationIDKey, id)
		ctx = logging.WithFields(ctx, "correlationId", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unloggedContentTypes are bodies spec §4.6 excludes from logging: binary
// or large payloads that would bloat the access log without aiding
// debugging.
var unloggedContentTypes = []string{
	"multipart/form-data",
	"application/octet-stream",
	"application/pdf",
}

var unloggedContentTypePrefixes = []string{"image/", "video/", "audio/"}

// shouldLogBody reports whether a body with the given Content-Type is
// eligible for logging, per spec §4.6's third bullet.
func shouldLogBody(contentType string) bool {
	contentType, _, _ = strings.Cut(contentType, ";")
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if contentType == "" {
		return true
	}
	for _, excluded := range unloggedContentTypes {
		if contentType == excluded {
			return false
		}
	}
	for _, prefix := range unloggedContentTypePrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return false
		}
	}
	return true
}

// AccessLogFilter emits one log line on entry and one on exit (spec
// §4.6), each carrying method, path, and — unless Content-Type excludes
// it — the request or response body, using the logger already enriched
// by CorrelationFilter. It runs before the Auth Filter, so its lines do not
// carry the accountId field.
func AccessLogFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := logging.FromContext(r.Context())

		reqFields := []interface{}{"method", r.Method, "path", r.URL.Path}
		if shouldLogBody(r.Header.Get("Content-Type")) {
			body, err := readAndRestore(r)
			if err == nil && len(body) > 0 {
				reqFields = append(reqFields, "requestBody", string(body))
			}
		}
		logger.Infow("request received", reqFields...)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		respFields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"durationMs", time.Since(start).Milliseconds(),
		}
		if shouldLogBody(sw.Header().Get("Content-Type")) && sw.body.Len() > 0 {
			respFields = append(respFields, "responseBody", sw.body.String())
		}
		logger.Infow("request completed", respFields...)
	})
}

// readAndRestore drains r.Body so it can be logged, then replaces it with
// a fresh reader over the same bytes so downstream handlers (the Bridge)
// still see the full body.
func readAndRestore(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// statusWriter captures the response status and a copy of the body so
// AccessLogFilter can log both after the handler completes.
type statusWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
