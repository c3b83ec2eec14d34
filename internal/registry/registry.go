// Package registry implements the Correlation Registry: the concurrent
// table of in-flight requests and the exactly-once delivery of their
// replies described in spec §4.1.
//
// The design is grounded on two shapes observed in the reference corpus:
// the single-producer-single-consumer response channel per pending call in
// the BrokerClient.call method (cellorg/internal/client/broker.go), and
// the CAS-guarded terminal-state claim used for request/response
// correlation in the broader pack (internal/protocol/router/correlation.go
// in the retrieval set). Neither source has an HTTP-facing timeout/cancel
// race exactly like this one, so the three-way select below (reply,
// context cancellation, deadline) is original to this package.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

// ErrDuplicateCorrelation is returned by Register when the correlation ID
// is already present. Per spec §3 this is never expected in practice and
// is treated as a fatal condition by the caller (the losing request).
var ErrDuplicateCorrelation = errors.New("registry: duplicate correlation id")

// AwaitOutcome is the terminal classification of a call to Await.
type AwaitOutcome int

const (
	Completed AwaitOutcome = iota
	TimedOut
	Cancelled
)

func (o AwaitOutcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CompleteOutcome is the result of a Reply Listener's call to Complete.
type CompleteOutcome int

const (
	Delivered CompleteOutcome = iota
	Orphan
	LateCompletion
)

func (o CompleteOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Orphan:
		return "orphan"
	case LateCompletion:
		return "late_completion"
	default:
		return "unknown"
	}
}

// slot terminal states. Transitions are monotone: pending -> exactly one of
// the others, enforced by a check-and-set under the slot's mutex (see claim).
type slotState int32

const (
	statePending slotState = iota
	stateCompleted
	stateTimedOut
	stateCancelled
)

// PendingSlot is one in-flight request, per spec §3. It is created by
// Register before publish and is terminated by exactly one of: the Reply
// Listener calling Complete, the Bridge's own deadline, or the request
// context being cancelled.
type PendingSlot struct {
	CorrelationID string
	CreatedAt     time.Time
	Deadline      time.Time
	TraceID       string

	state slotState
	mu    sync.Mutex
	ch    chan wire.ResponseEnvelope
}

// claim attempts the one-shot Pending -> target transition. Only the first
// caller (across Complete and Await's own timeout/cancel branch) succeeds.
func (s *PendingSlot) claim(target slotState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != statePending {
		return false
	}
	s.state = target
	return true
}

// MetricSink receives counters for events that never surface to an HTTP
// client. A nil sink is treated as a no-op.
type MetricSink interface {
	IncOrphanReply()
	IncLateCompletion()
}

// Registry is the shared, concurrent table of pending requests. The zero
// value is not usable; construct with New.
type Registry struct {
	mu      sync.Mutex
	slots   map[string]*PendingSlot
	metrics MetricSink
}

// New creates an empty Registry. metrics may be nil.
func New(metrics MetricSink) *Registry {
	return &Registry{
		slots:   make(map[string]*PendingSlot),
		metrics: metrics,
	}
}

// Register inserts a new PendingSlot for id, good until deadline. It fails
// with ErrDuplicateCorrelation if id is already present.
func (r *Registry) Register(id string, deadline time.Time, traceID string) (*PendingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[id]; exists {
		return nil, ErrDuplicateCorrelation
	}

	slot := &PendingSlot{
		CorrelationID: id,
		CreatedAt:     time.Now(),
		Deadline:      deadline,
		TraceID:       traceID,
		ch:            make(chan wire.ResponseEnvelope, 1),
	}
	r.slots[id] = slot
	return slot, nil
}

// Deregister removes id unconditionally. Used by callers that abort before
// ever calling Await (e.g. a publish rejected by the broker, spec §4.3
// step 7's "always deregister" guarantee).
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, id)
}

func (r *Registry) lookup(id string) (*PendingSlot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	return slot, ok
}

// Await blocks until slot is completed, its deadline elapses, or ctx is
// cancelled — whichever happens first — and always deregisters the slot
// before returning (spec §4.1).
func (r *Registry) Await(ctx context.Context, slot *PendingSlot) (wire.ResponseEnvelope, AwaitOutcome) {
	defer r.Deregister(slot.CorrelationID)

	timer := time.NewTimer(time.Until(slot.Deadline))
	defer timer.Stop()

	select {
	case env := <-slot.ch:
		return env, Completed

	case <-ctx.Done():
		if slot.claim(stateCancelled) {
			return wire.ResponseEnvelope{}, Cancelled
		}
		// Complete already won the race; the reply is already queued.
		return <-slot.ch, Completed

	case <-timer.C:
		if slot.claim(stateTimedOut) {
			return wire.ResponseEnvelope{}, TimedOut
		}
		return <-slot.ch, Completed
	}
}

// Complete is called by the Reply Listener for every decoded reply. It
// delivers the envelope to the waiting Await call exactly once.
func (r *Registry) Complete(id string, env wire.ResponseEnvelope) CompleteOutcome {
	slot, ok := r.lookup(id)
	if !ok {
		r.incOrphan()
		return Orphan
	}

	if !slot.claim(stateCompleted) {
		r.incLate()
		return LateCompletion
	}

	// Buffered with capacity 1; claim() guarantees we are the only sender.
	slot.ch <- env
	return Delivered
}

// Len reports the number of in-flight requests, used to enforce the
// optional in-flight ceiling (spec §5, SPEC_FULL.md §[SUPPLEMENTED]).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

func (r *Registry) incOrphan() {
	if r.metrics != nil {
		r.metrics.IncOrphanReply()
	}
}

func (r *Registry) incLate() {
	if r.metrics != nil {
		r.metrics.IncLateCompletion()
	}
}
