// Package apierror is the gateway's single error taxonomy and HTTP
// translation, shared by the Bridge and the Auth Filter so that both
// produce the same ApiResponse error envelope (spec §7). Grounded on the
// teacher's pattern of a small typed error kind with one exhaustive
// switch (cellorg/internal/envelope's error handling), adapted to the
// HTTP status table spec §7 defines.
package apierror

import (
	"encoding/json"
	"net/http"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

// Kind classifies a failure into one of the outcomes spec §7 maps to an
// HTTP status. Kind values never leak to clients directly; WriteError
// translates them into a wire.ApiResponse.
type Kind int

const (
	KindUnauthorized Kind = iota
	KindBadRequest
	KindPayloadTooLarge
	KindNotFound
	KindTimeout
	KindUpstreamUnavailable
	KindInternal
)

// httpStatus maps each Kind to the status code spec §7 assigns it.
func (k Kind) httpStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) message() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindBadRequest:
		return "Bad Request"
	case KindPayloadTooLarge:
		return "Payload Too Large"
	case KindNotFound:
		return "Not Found"
	case KindTimeout:
		return "Gateway Timeout"
	case KindUpstreamUnavailable:
		return "Service Unavailable"
	default:
		return "Internal Server Error"
	}
}

// Error is a classified failure with a human-readable detail message
// safe to return to the caller (it must never embed internals like a
// broker URL or a stack trace).
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Kind.message() + ": " + e.Detail
}

// NewError builds an *Error for kind with detail.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WriteError renders err as the standard wire.ApiResponse envelope and
// writes it to w. If err is not an *Error it is treated as KindInternal
// and its message is not echoed to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = &Error{Kind: KindInternal, Detail: "internal error"}
	}

	status := apiErr.Kind.httpStatus()
	resp := wire.NewFailure(status, apiErr.Kind.message(), apiErr.Detail)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
