// Package bridge implements the HTTP <-> Broker Bridge (spec §4.3): the
// handler that turns one inbound HTTP request into a published
// RequestEnvelope, waits on the Correlation Registry for the matching
// reply, and translates it back into an HTTP response.
package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dev-kitchen/api-gateway/internal/apierror"
	"github.com/dev-kitchen/api-gateway/internal/auth"
	"github.com/dev-kitchen/api-gateway/internal/logging"
	"github.com/dev-kitchen/api-gateway/internal/metrics"
	"github.com/dev-kitchen/api-gateway/internal/registry"
	"github.com/dev-kitchen/api-gateway/internal/router"
	"github.com/dev-kitchen/api-gateway/internal/wire"
)

// Publisher is the subset of amqpbroker.Broker the Bridge needs. A small
// consumer-defined interface, grounded on cellorg's habit of keeping
// cross-package dependencies narrow (cellorg's BrokerClient is consumed
// through similarly thin call-sites).
type Publisher interface {
	PublishRequest(ctx context.Context, routingKey, correlationID, replyTo string, body []byte) error
}

// Bridge is the http.Handler mounted behind the Auth Filter for every
// routed prefix.
type Bridge struct {
	Publisher    Publisher
	Registry     *registry.Registry
	Routes       *router.Table
	ReplyTo      string
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxInFlight  int
	Metrics      *metrics.Metrics
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	routingKey, ok := b.Routes.Resolve(r.URL.Path)
	if !ok {
		apierror.WriteError(w, r, apierror.NewError(apierror.KindNotFound, "no route matches this path"))
		return
	}

	if b.MaxInFlight > 0 && b.Registry.Len() >= b.MaxInFlight {
		apierror.WriteError(w, r, apierror.NewError(apierror.KindUpstreamUnavailable, "gateway is at capacity"))
		return
	}

	method, ok := wire.ParseMethod(r.Method)
	if !ok {
		apierror.WriteError(w, r, apierror.NewError(apierror.KindBadRequest, "unsupported HTTP method"))
		return
	}

	body, err := readBody(r, b.MaxBodyBytes)
	if errors.Is(err, errBodyTooLarge) {
		apierror.WriteError(w, r, apierror.NewError(apierror.KindPayloadTooLarge, "request body exceeds the configured limit"))
		return
	} else if err != nil {
		apierror.WriteError(w, r, apierror.NewError(apierror.KindBadRequest, "could not read request body"))
		return
	}

	env := wire.RequestEnvelope{
		Path:        r.URL.Path,
		Method:      method,
		Headers:     wire.JoinHeaders(r.Header),
		QueryParams: wire.FirstQueryParams(r.URL.Query()),
		Body:        string(body),
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		env.Principal = &principal
	}

	correlationID := router.CorrelationID(r)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	deadline := time.Now().Add(b.Timeout)
	slot, err := b.Registry.Register(correlationID, deadline, correlationID)
	if err != nil {
		// A collision is only possible if a client-supplied correlation id
		// is already in flight; regenerate once rather than fail the
		// request outright.
		correlationID = uuid.NewString()
		slot, err = b.Registry.Register(correlationID, deadline, correlationID)
		if err != nil {
			logging.FromContext(r.Context()).Errorw("could not register request", "correlationId", correlationID, "error", err)
			apierror.WriteError(w, r, apierror.NewError(apierror.KindInternal, "could not register request"))
			return
		}
	}

	payload, err := encode(env)
	if err != nil {
		b.Registry.Deregister(correlationID)
		logging.FromContext(r.Context()).Errorw("could not encode request", "correlationId", correlationID, "error", err)
		apierror.WriteError(w, r, apierror.NewError(apierror.KindInternal, "could not encode request"))
		return
	}

	if err := b.Publisher.PublishRequest(r.Context(), routingKey, correlationID, b.ReplyTo, payload); err != nil {
		b.Registry.Deregister(correlationID)
		b.observe(routingKey, "publish_failed")
		logging.FromContext(r.Context()).Errorw("publish failed", "correlationId", correlationID, "routingKey", routingKey, "error", err)
		apierror.WriteError(w, r, apierror.NewError(apierror.KindUpstreamUnavailable, "could not reach the upstream service"))
		return
	}

	if b.Metrics != nil {
		b.Metrics.InFlightRequests.Inc()
	}
	reply, outcome := b.Registry.Await(r.Context(), slot)
	if b.Metrics != nil {
		b.Metrics.InFlightRequests.Dec()
	}
	switch outcome {
	case registry.Completed:
		b.observe(routingKey, "completed")
		writeReply(w, reply)
	case registry.TimedOut:
		b.observe(routingKey, "timed_out")
		if b.Metrics != nil {
			b.Metrics.IncTimeout()
		}
		apierror.WriteError(w, r, apierror.NewError(apierror.KindTimeout, "upstream service did not reply in time"))
	case registry.Cancelled:
		b.observe(routingKey, "cancelled")
		logging.FromContext(r.Context()).Debugw("request cancelled before reply", "correlationId", correlationID)
	}
}

func (b *Bridge) observe(routingKey, outcome string) {
	if b.Metrics != nil {
		b.Metrics.ObserveRequest(routingKey, outcome)
	}
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r.Body)
	}
	limited := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeReply(w http.ResponseWriter, env wire.ResponseEnvelope) {
	resp := asAPIResponse(env)

	for header, value := range env.Headers {
		if wire.IsHopByHop(header) {
			continue
		}
		w.Header().Set(header, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOrDefault(env.StatusCode))

	data, err := encode(resp)
	if err != nil {
		return
	}
	_, _ = w.Write(data)
}

// asAPIResponse wraps a ResponseEnvelope's raw body in the standard
// ApiResponse envelope per spec §4.3 step 6.
func asAPIResponse(env wire.ResponseEnvelope) wire.ApiResponse {
	status := statusOrDefault(env.StatusCode)
	if status >= 200 && status < 300 {
		return wire.NewSuccess(status, "OK", env.Body)
	}
	return wire.NewFailure(status, httpStatusText(status), env.Body)
}

// statusOrDefault maps a ResponseEnvelope's status code to one safe to
// pass to http.ResponseWriter.WriteHeader. A missing code defaults to 200;
// anything outside 100-599 is clamped to 502 per spec §7, since net/http
// panics on WriteHeader for any code below 100 or above 999.
func statusOrDefault(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	if status < 100 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}
