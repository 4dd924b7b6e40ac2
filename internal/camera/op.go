package camera

import (
	"context"
	"fmt"
)

// ResultKind tags the outcome of an acquisition operation.
type ResultKind int

// Result kinds.
const (
	// ResultSkipped means no provider call settled the state: the guard
	// turned the call into a no-op or the operation was not bound.
	ResultSkipped ResultKind = iota
	ResultSucceeded
	ResultFailed
)

func (k ResultKind) String() string {
	switch k {
	case ResultSkipped:
		return "skipped"
	case ResultSucceeded:
		return "succeeded"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the settled outcome of a start or stop acquisition call.
// Acquiring is the flag the camera holds after the operation.
type Result struct {
	Kind      ResultKind
	Acquiring bool
	Err       error
}

// Succeeded builds a successful result.
func Succeeded(acquiring bool) Result {
	return Result{Kind: ResultSucceeded, Acquiring: acquiring}
}

// Failed builds a failed result.
func Failed(err error, acquiring bool) Result {
	return Result{Kind: ResultFailed, Acquiring: acquiring, Err: err}
}

// Op is a pending acquisition operation.
type Op struct {
	done   chan struct{}
	result Result
	issued bool
}

func newOp() *Op {
	return &Op{done: make(chan struct{})}
}

// Resolved returns an op that has already settled without a provider call.
func Resolved() *Op {
	op := newOp()
	close(op.done)
	return op
}

func skipped(acquiring bool) *Op {
	op := newOp()
	op.settle(false, Result{Kind: ResultSkipped, Acquiring: acquiring})
	return op
}

func (o *Op) settle(issued bool, r Result) {
	o.issued = issued
	o.result = r
	close(o.done)
}

// Done is closed once the camera state reflects the operation.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation settles or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result blocks until the operation settles and returns its outcome.
func (o *Op) Result() Result {
	<-o.done
	return o.result
}

// Issued blocks until the operation settles and reports whether the provider was called.
func (o *Op) Issued() bool {
	<-o.done
	return o.issued
}
