package query

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is a query session's lifecycle state.
type State int32

const (
	// StateCreated means the session exists but has not acquired a
	// catalog snapshot yet.
	StateCreated State = iota
	// StateRunning means matching work is in flight.
	StateRunning
	// StateCompleted means the session published its ranked list.
	StateCompleted
	// StateCancelled means the session was superseded or timed out and
	// published nothing.
	StateCancelled
	// StateFailed means snapshot acquisition failed; the error is
	// available from the handle.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle identifies one submitted query session. The ranked list is
// delivered on the stream's result channel, not through the handle; the
// handle exposes lifecycle state, per-session cancellation, and the
// failure outcome when no list will ever arrive.
type Handle struct {
	id       uuid.UUID
	streamID string
	seq      uint64

	state  atomic.Int32
	cancel context.CancelFunc

	mu   sync.Mutex
	err  error
	done chan struct{}
}

func newHandle(streamID string, seq uint64, cancel context.CancelFunc) *Handle {
	return &Handle{
		id:       uuid.New(),
		streamID: streamID,
		seq:      seq,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// StreamID returns the query stream this session belongs to.
func (h *Handle) StreamID() string { return h.streamID }

// State returns the session's current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Cancel abandons the session. Safe to call at any time, from any
// goroutine; cancelling a finished session is a no-op.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the session reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the terminal error: nil for completed sessions, the
// cancellation outcome for superseded ones, or the snapshot/timeout
// failure. Valid once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) toRunning() {
	h.state.CompareAndSwap(int32(StateCreated), int32(StateRunning))
}

func (h *Handle) finish(s State, err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	h.state.Store(int32(s))
	close(h.done)
}
