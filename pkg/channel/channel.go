// Package channel implements the bounded single-writer command queue
// (spec §4.4): many callers enqueue commands concurrently, a single
// reader drains them in FIFO order. Backpressure is expressed by a
// bounded Go channel; a full queue makes Submit block until there is
// room or the caller's context is cancelled.
package channel

import (
	"context"

	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// Envelope pairs a Command with the reply channel its caller waits on.
// Reply is always buffered by one so the single-writer loop never
// blocks delivering a result to a caller that has already given up.
type Envelope struct {
	Cmd   command.Command
	Reply chan command.Result
}

// Queue is the bounded MPSC command channel owned by a tenant's
// processor. The zero value is not usable; use New.
type Queue struct {
	ch     chan Envelope
	closed chan struct{}
}

// New creates a queue with the given capacity (spec §4.4's
// CommandQueueSize).
func New(capacity int) *Queue {
	return &Queue{
		ch:     make(chan Envelope, capacity),
		closed: make(chan struct{}),
	}
}

// Submit enqueues cmd and returns a reply channel the caller should
// receive exactly once from. It blocks until the queue has room, ctx is
// cancelled, or the queue has been shut down.
func (q *Queue) Submit(ctx context.Context, cmd command.Command) (<-chan command.Result, error) {
	reply := make(chan command.Result, 1)
	env := Envelope{Cmd: cmd, Reply: reply}

	select {
	case <-q.closed:
		return nil, errtypes.Shutdown("queue is shut down")
	default:
	}

	select {
	case q.ch <- env:
		return reply, nil
	case <-ctx.Done():
		return nil, errtypes.Cancelled(ctx.Err().Error())
	case <-q.closed:
		return nil, errtypes.Shutdown("queue is shut down")
	}
}

// Receive is called only by the single-writer loop to pull the next
// envelope. ok is false once the queue has been closed and drained.
// q.ch itself is never closed, so a concurrent Submit can never panic
// sending on it; Close only signals via q.closed, and Receive drains
// whatever remains buffered before reporting ok=false.
func (q *Queue) Receive() (Envelope, bool) {
	select {
	case env := <-q.ch:
		return env, true
	case <-q.closed:
		select {
		case env := <-q.ch:
			return env, true
		default:
			return Envelope{}, false
		}
	}
}

// Close stops accepting new submissions. Pending envelopes already in
// the channel remain available to Receive until drained, at which
// point Receive returns ok=false. Close does not wait for the drain;
// callers that need that should close, then loop Receive until !ok.
func (q *Queue) Close() {
	select {
	case <-q.closed:
		return // already closed
	default:
		close(q.closed)
	}
}

// Len reports the number of envelopes currently buffered, for health
// reporting.
func (q *Queue) Len() int {
	return len(q.ch)
}
