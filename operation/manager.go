// Package operation tracks the single command in flight on a device and gives every command an id.
package operation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.viam.com/utils"
)

// Operation is a command running on a device.
type Operation struct {
	ID      uuid.UUID
	Method  string
	Started time.Time
}

type opKeyType byte

const opKey = opKeyType(iota)

// Get returns the operation carried by ctx, or nil.
func Get(ctx context.Context) *Operation {
	op, ok := ctx.Value(opKey).(*anOp)
	if !ok {
		return nil
	}
	return &op.Operation
}

// SingleOperationManager ensures only 1 operation is happening a time.
// An operation can be nested, so if there is already an operation in progress,
// it can have sub-operations without an issue.
type SingleOperationManager struct {
	mu        sync.Mutex
	currentOp *anOp
}

// CancelRunning cancels the current operation unless it's mine.
func (sm *SingleOperationManager) CancelRunning(ctx context.Context) {
	if ctx.Value(opKey) != nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancelInLock(ctx)
}

// OpRunning returns if there is a current operation.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp != nil
}

// Current returns the operation in flight, or nil.
func (sm *SingleOperationManager) Current() *Operation {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.currentOp == nil {
		return nil
	}
	op := sm.currentOp.Operation
	return &op
}

// New creates a new operation, cancels previous, returns a new context and function to call when done.
func (sm *SingleOperationManager) New(ctx context.Context, method string) (context.Context, func()) {
	// handle nested ops
	if ctx.Value(opKey) != nil {
		return ctx, func() {}
	}

	sm.mu.Lock()

	// first cancel any old operation
	sm.cancelInLock(ctx)

	theOp := &anOp{Operation: Operation{ID: uuid.New(), Method: method, Started: time.Now()}}

	ctx = context.WithValue(ctx, opKey, theOp)

	ctx, theOp.cancelFunc = context.WithCancel(ctx)
	sm.currentOp = theOp
	sm.mu.Unlock()

	return ctx, func() {
		theOp.cancelFunc()
		sm.mu.Lock()
		if theOp == sm.currentOp {
			sm.currentOp = nil
		}
		sm.mu.Unlock()
	}
}

// WaitForSuccess will call testFunc every pollTime until it returns true, an error, or ctx is done.
func (sm *SingleOperationManager) WaitForSuccess(
	ctx context.Context,
	pollTime time.Duration,
	testFunc func(ctx context.Context) (bool, error),
) error {
	ctx, finish := sm.New(ctx, "wait")
	defer finish()

	for {
		res, err := testFunc(ctx)
		if err != nil {
			return err
		}
		if res {
			return nil
		}

		if !utils.SelectContextOrWait(ctx, pollTime) {
			return ctx.Err()
		}
	}
}

func (sm *SingleOperationManager) cancelInLock(ctx context.Context) {
	myOp := ctx.Value(opKey)
	op := sm.currentOp

	if op == nil || myOp == op {
		return
	}

	op.cancelFunc()

	sm.currentOp = nil
}

type anOp struct {
	Operation
	cancelFunc context.CancelFunc
}
