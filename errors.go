// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import "fmt"

// UnhandledEffectError reports an effect with no matching handler in
// scope, either because no WithHandler was ever installed for it or
// because Forward ran out of outer handlers to try.
type UnhandledEffectError struct {
	Effect Effect
}

func (e *UnhandledEffectError) Error() string {
	return fmt.Sprintf("cesk: unhandled effect %T", e.Effect)
}

// InterpreterInvariantError reports the machine reaching a state its own
// invariants rule out: a malformed continuation head, a program yielding
// something that is neither an Effect nor a Program, or a primitive
// control effect (Resume, Forward, GetContinuation) used outside a
// handler's dynamic extent.
type InterpreterInvariantError struct {
	Reason string
}

func (e *InterpreterInvariantError) Error() string {
	return "cesk: invariant violated: " + e.Reason
}

// MissingEnvKeyError reports a lookup for a key absent from the
// environment chain.
type MissingEnvKeyError struct {
	Key string
}

func (e *MissingEnvKeyError) Error() string {
	return fmt.Sprintf("cesk: missing environment key %q", e.Key)
}

// OneShotViolationError reports an attempt to resume a Continuation that
// has already been resumed once.
type OneShotViolationError struct {
	ID ContID
}

func (e *OneShotViolationError) Error() string {
	return fmt.Sprintf("cesk: continuation %d already resumed", e.ID)
}

// DeadlockError reports a scheduler with no runnable task left to
// advance while servicing a Wait, Gather, or Race.
type DeadlockError struct {
	Waiting TaskID
}

func (e *DeadlockError) Error() string {
	if e.Waiting == "" {
		return "cesk: scheduler deadlock: no runnable task"
	}
	return fmt.Sprintf("cesk: scheduler deadlock waiting on task %s", e.Waiting)
}

// CancellationError reports that a task's result could not be delivered
// because the task was cancelled before completing.
type CancellationError struct {
	Task TaskID
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cesk: task %s was cancelled", e.Task)
}

var (
	_ error = (*UnhandledEffectError)(nil)
	_ error = (*InterpreterInvariantError)(nil)
	_ error = (*MissingEnvKeyError)(nil)
	_ error = (*OneShotViolationError)(nil)
	_ error = (*DeadlockError)(nil)
	_ error = (*CancellationError)(nil)
)
