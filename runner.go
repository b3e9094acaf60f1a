// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import "context"

// RuntimeResult is what a driver (SyncRun, AsyncRun) returns once the
// machine finishes, one way or another.
type RuntimeResult struct {
	Value     any
	Err       error
	Traceback *FrameLocation
}

// Ok reports whether the run finished without error.
func (r RuntimeResult) Ok() bool { return r.Err == nil }

func initialState(program *Program, handlers []HandlerFunc, env *Env, store Store) State {
	k := installHandlers(nil, handlers, env).Push(&ReturnFrame{Program: program, Env: env})
	return State{Control: ControlProgram(program), Env: env, Store: installContinuationRegistry(store), Kont: k}
}

// SyncRun drives program to completion on the calling goroutine. Any
// AsyncEscape the program (or a task it spawns) performs is serviced by
// a background pool bounded to defaultExecutorWeight concurrent
// actions, blocking SyncRun's own goroutine until each escape resolves.
func SyncRun(ctx context.Context, program *Program, handlers []HandlerFunc, env *Env, store Store) RuntimeResult {
	executor := newBackgroundExecutor(ctx)
	st := initialState(program, handlers, env, installEscapeService(store, executor.asEscapeService()))
	return drive(st)
}

// AsyncRun drives program to completion the same way SyncRun does, but
// services AsyncEscape directly against ctx with no concurrency bound —
// appropriate when the caller is itself running inside an async context
// that can already manage however many outstanding operations program's
// tasks produce. Host code resolving a batch of AsyncActions outside of
// a Program entirely should call AwaitAll instead of looping one at a
// time.
func AsyncRun(ctx context.Context, program *Program, handlers []HandlerFunc, env *Env, store Store) RuntimeResult {
	svc := escapeServiceFunc(func(action AsyncAction) (any, error) {
		return action(ctx)
	})
	st := initialState(program, handlers, env, installEscapeService(store, svc))
	return drive(st)
}

func drive(st State) RuntimeResult {
	for {
		res := Step(st)
		switch res.Kind {
		case StepDone:
			return RuntimeResult{Value: res.Value}
		case StepFailed:
			return RuntimeResult{Err: res.Err, Traceback: res.Traceback}
		case StepNewState:
			st = res.State
		case StepAsyncEscape:
			svc := escapeServiceOf(res.EscapeCont.Store)
			if svc == nil {
				return RuntimeResult{Err: &InterpreterInvariantError{Reason: "AsyncEscape used without an escape service installed"}}
			}
			v, err := svc(res.EscapeAction)
			if err != nil {
				st = State{Control: ControlError(err), Env: res.EscapeCont.Env, Store: res.EscapeCont.Store, Kont: res.EscapeCont.Kont}
			} else {
				st = State{Control: ControlValue(v), Env: res.EscapeCont.Env, Store: res.EscapeCont.Store, Kont: res.EscapeCont.Kont}
			}
		}
	}
}
