// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

// Package cesk implements algebraic effects for Go on top of an explicit
// CESK machine: Control, Environment, Store, Kontinuation, plus a Handler
// stack (CESK+H). Programs describe effectful computation; handlers give
// effects meaning; the machine steps between the two one transition at a
// time, so callers can drive it synchronously, asynchronously, or
// cooperatively across many tasks without the machine itself caring which.
//
// # Programs
//
// [Program] is the unit of computation. Three constructors:
//
//   - [ProgramPure]: an already-known value, no work to do
//   - [ProgramFunc]: a synchronous Go function, run without a goroutine
//   - [Suspended]: a function that receives a [Yielder] and can yield
//     effects ([Yielder.Yield]) or nested programs ([Yielder.YieldProgram]),
//     backed by a goroutine so it can suspend mid-body
//
// A Program is driven with [Program.Start], [Program.Resume], and
// [Program.Throw], each returning a [ProgramStep] describing what
// happened: a value, an error, a yielded effect, or a yielded program.
// [Program.Discard] abandons a program that will never be driven again,
// releasing its backing fiber. A Program is owned by at most one
// [Frame] at a time.
//
// Derived combinators built on these three constructors:
//
//   - [Bind]: sequence, passing the first result to a continuation
//   - [Map]: sequence, applying a pure function to the result
//   - [Then]: sequence, discarding the first result
//   - [Safe]: run a recovery program on failure
//   - [Bracket]: acquire/use/release with guaranteed cleanup
//
// # Effects and Handlers
//
// [Effect] is an empty interface; any type naming an operation a program
// wants performed can serve as one. [HandlerFunc] interprets effects:
// given the effect and a [HandlerContext] (the environment, store, and
// handler stack active where the effect is being handled), it returns a
// Program to run in place of the effect. A handler that does not
// recognize an effect should [Forward] it to the next handler outward.
//
// Effect primitives, each yielded through a Yielder from inside a
// program or handler body:
//
//   - [Pure]: resolve immediately with a value, without dispatch
//   - [WithHandler]: install a handler around a nested program
//   - [Resume]: answer the currently dispatching effect and run its
//     continuation to completion before the handler body continues
//   - [Forward]: abandon the current handler, re-dispatching to the
//     next handler outward
//   - [GetContinuation]: capture the effect site's continuation as a
//     [Continuation] value, to resume later via [ResumeContinuation]
//   - [CreateContinuation]: build a continuation from a fresh program
//     rather than capturing one from a live dispatch
//   - [ResumeContinuation]: run a captured continuation to completion
//   - [GetHandlers]: read the handler stack visible at the yield site
//   - [AsyncEscape]: hand a blocking action to the host's async bridge
//   - [Cooperate]: yield a scheduling turn without doing anything else
//
// [ComposeHandlers] and [ClaimType] build one HandlerFunc out of several
// narrower ones, each claiming the effect types it knows how to answer
// and forwarding the rest.
//
// # One-Shot Continuations
//
// Every [Continuation] returned by GetContinuation or CreateContinuation
// may be resumed at most once; a second [ResumeContinuation] against the
// same continuation, or a handler that both falls through normally and
// resumes explicitly, fails with [OneShotViolationError]. A handler that
// returns without yielding [Resume] abandons its effect site's
// continuation: the suspended programs along it are discarded, and the
// handler's value becomes the result of the enclosing WithHandler scope.
//
// # Driving a Program
//
// [SyncRun] and [AsyncRun] both drive a program to completion under a
// handler stack, differing only in how they service [AsyncEscape]:
// SyncRun bounds concurrent escapes through a fixed-weight semaphore,
// AsyncRun dispatches them directly with no bound. Both return a
// [RuntimeResult].
//
// [Step] is the one-transition primitive both runners (and the
// scheduler below) are built on, for callers that want to drive a
// [State] themselves — an event loop polling a channel between steps,
// for instance.
//
// # Scheduling
//
// [WithScheduler] installs a task registry into a Store; programs run
// under it (with [SchedulerHandler] installed) gain [Spawn], [Wait],
// [Gather], [Race], and promise effects ([CreatePromise],
// [CompletePromise], [FailPromise], [CancelTask]) for cooperative
// multitasking among independently stepped [State] values. Tasks only
// switch at a [Cooperate] yield point, an [AsyncEscape], or completion;
// nothing preempts a task that does none of these.
//
// # Example
//
//	type askInt struct{}
//	func (askInt) effect() {}
//
//	body := Suspended(func(y Yielder) (any, error) {
//		v, err := y.Yield(askInt{})
//		if err != nil {
//			return nil, err
//		}
//		return v.(int) * 2, nil
//	})
//
//	answer := func(eff Effect, ctx *HandlerContext) *Program {
//		if _, ok := eff.(askInt); ok {
//			return Suspended(func(y Yielder) (any, error) { return y.Yield(Resume(21)) })
//		}
//		return Suspended(func(y Yielder) (any, error) { return y.Yield(Forward(eff)) })
//	}
//
//	result := SyncRun(context.Background(), body, []HandlerFunc{answer}, EmptyEnv, EmptyStore)
//	// result.Value == 42
package cesk
