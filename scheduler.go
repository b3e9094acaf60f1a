// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import "reflect"

// storeKeySchedulerState is one of the reserved Store keys that are
// mutated in place rather than copied, as documented on Store itself:
// every scheduled task's progress lives in a single shared
// *schedulerState reached through this key, and only the scheduler
// operations in this file touch it.
const storeKeySchedulerState = "cesk.scheduler.state"

type taskStatus int

const (
	taskRunnable taskStatus = iota
	taskWaiting
	taskComplete
	taskCancelled
)

// taskRecord is one spawned task or promise tracked by the scheduler.
// Promises never have a state to step; they sit in taskWaiting until
// CompletePromise or FailPromise resolves them directly. A task that
// escaped to AsyncEscape also sits in taskWaiting, with asyncDone set
// to the channel its goroutine will report back on.
type taskRecord struct {
	id        TaskID
	status    taskStatus
	state     State
	value     any
	err       error
	isPromise bool
	// asyncDone is buffered to exactly 1: the goroutine servicing this
	// task's AsyncEscape always has somewhere to put its single result,
	// so it runs to completion and exits even if nobody — because the
	// run finished, or a Race resolved from some other task — ever
	// reads from it. One channel per task rather than one shared
	// channel for the whole scheduler means an abandoned task's
	// goroutine is never left blocked on a send.
	asyncDone chan asyncCompletion
}

// asyncCompletion is what an in-flight AsyncEscape goroutine reports
// back to advanceUntil once the action resolves.
type asyncCompletion struct {
	id    TaskID
	value any
	err   error
	cont  *escapeContinuation
}

// schedulerState is the task registry shared by every task spawned into
// one run. queue holds runnable task IDs in round-robin order.
// pendingAsync counts tasks currently waiting on their own asyncDone
// channel — what lets advanceUntil run one task's async I/O
// concurrently with another task's ordinary steps instead of blocking
// the whole round-robin on it.
type schedulerState struct {
	queue        []TaskID
	tasks        map[TaskID]*taskRecord
	pendingAsync int
}

// WithScheduler installs a fresh task registry into store under the
// scheduler's reserved key. A program must be run with a store built
// from this (directly or via handler inheritance) before it can use
// Spawn/Wait/Gather/Race or promises.
func WithScheduler(store Store) Store {
	return store.With(storeKeySchedulerState, &schedulerState{tasks: make(map[TaskID]*taskRecord)})
}

func schedulerOf(store Store) *schedulerState {
	v, ok := store.Get(storeKeySchedulerState)
	if !ok {
		panic("cesk: scheduler effect used without WithScheduler installed")
	}
	return v.(*schedulerState)
}

// Spawn starts body as a new concurrently scheduled task and resolves
// to a handle for it.
type Spawn struct{ Program *Program }

func (Spawn) effect() {}

// Wait blocks the caller until task finishes, resolving to its value or
// failing with the task's error or a CancellationError.
type Wait struct{ Task TaskID }

func (Wait) effect() {}

// Gather blocks until every task in Tasks finishes, resolving to their
// values in the same order, or failing on the first error or
// cancellation encountered while scanning that order.
type Gather struct{ Tasks []TaskID }

func (Gather) effect() {}

// Race blocks until the first task in Tasks finishes, resolving to its
// id and value.
type Race struct{ Tasks []TaskID }

func (Race) effect() {}

// CreatePromise allocates a task handle with no backing computation,
// to be resolved later by CompletePromise or FailPromise — e.g. to hand
// a callback-driven result a TaskID before the callback ever fires.
type CreatePromise struct{}

func (CreatePromise) effect() {}

// CompletePromise resolves a promise created by CreatePromise with a
// value.
type CompletePromise struct {
	Promise TaskID
	Value   any
}

func (CompletePromise) effect() {}

// FailPromise resolves a promise created by CreatePromise with an
// error.
type FailPromise struct {
	Promise TaskID
	Err     error
}

func (FailPromise) effect() {}

// CancelTask marks task cancelled. A task already complete is
// unaffected; a task still runnable or waiting will never be advanced
// again and anything waiting on it sees CancellationError.
type CancelTask struct{ Task TaskID }

func (CancelTask) effect() {}

// Task is a handle to a spawned task or promise.
type Task struct{ ID TaskID }

// RaceResult is what Race resolves to.
type RaceResult struct {
	Winner TaskID
	Value  any
}

// SchedulerHandler is the HandlerFunc implementing Spawn, Wait, Gather,
// Race, and the promise ops. Install it with WithHandler around any
// program that uses them, over a store built with WithScheduler.
func SchedulerHandler(eff Effect, ctx *HandlerContext) *Program {
	var op *Program
	switch e := eff.(type) {
	case Spawn:
		op = schedulerSpawn(e, ctx)
	case Wait:
		op = schedulerWait(e, ctx)
	case Gather:
		op = schedulerGather(e, ctx)
	case Race:
		op = schedulerRace(e, ctx)
	case CreatePromise:
		op = schedulerCreatePromise(ctx)
	case CompletePromise:
		op = schedulerCompletePromise(e, ctx)
	case FailPromise:
		op = schedulerFailPromise(e, ctx)
	case CancelTask:
		op = schedulerCancelTask(e, ctx)
	default:
		return Suspended(func(y Yielder) (any, error) { return y.Yield(Forward(eff)) })
	}
	return Suspended(func(y Yielder) (any, error) {
		v, err := y.YieldProgram(op)
		if err != nil {
			return nil, err
		}
		return y.Yield(Resume(v))
	})
}

// spawnInto registers prog as a new runnable task, inheriting the full
// handler stack visible at the spawn site so the task's own effects
// dispatch exactly as they would have at the call site.
func spawnInto(ss *schedulerState, prog *Program, ctx *HandlerContext) TaskID {
	id := newTaskID()
	k := installHandlers(nil, ctx.Handlers, ctx.Env).Push(&ReturnFrame{Program: prog, Env: ctx.Env})
	ss.tasks[id] = &taskRecord{
		id:     id,
		status: taskRunnable,
		state:  State{Control: ControlProgram(prog), Env: ctx.Env, Store: ctx.Store, Kont: k},
	}
	ss.queue = append(ss.queue, id)
	return id
}

func schedulerSpawn(e Spawn, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		return Task{ID: spawnInto(ss, e.Program, ctx)}, nil
	})
}

func schedulerWait(e Wait, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		if err := advanceUntil(ss, ctx.Store, func() bool {
			t, ok := ss.tasks[e.Task]
			return ok && (t.status == taskComplete || t.status == taskCancelled)
		}); err != nil {
			return nil, err
		}
		t, ok := ss.tasks[e.Task]
		if !ok {
			return nil, &InterpreterInvariantError{Reason: "Wait on an unknown task"}
		}
		if t.status == taskCancelled {
			return nil, &CancellationError{Task: e.Task}
		}
		return t.value, t.err
	})
}

func schedulerGather(e Gather, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		allDone := func() bool {
			for _, id := range e.Tasks {
				t, ok := ss.tasks[id]
				if !ok || (t.status != taskComplete && t.status != taskCancelled) {
					return false
				}
			}
			return true
		}
		if err := advanceUntil(ss, ctx.Store, allDone); err != nil {
			return nil, err
		}
		results := make([]any, len(e.Tasks))
		for i, id := range e.Tasks {
			t := ss.tasks[id]
			if t.status == taskCancelled {
				return nil, &CancellationError{Task: id}
			}
			if t.err != nil {
				return nil, t.err
			}
			results[i] = t.value
		}
		return results, nil
	})
}

func schedulerRace(e Race, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		var winner TaskID
		anyDone := func() bool {
			for _, id := range e.Tasks {
				if t, ok := ss.tasks[id]; ok && (t.status == taskComplete || t.status == taskCancelled) {
					winner = id
					return true
				}
			}
			return false
		}
		if err := advanceUntil(ss, ctx.Store, anyDone); err != nil {
			return nil, err
		}
		t := ss.tasks[winner]
		if t.status == taskCancelled {
			return nil, &CancellationError{Task: winner}
		}
		if t.err != nil {
			return nil, t.err
		}
		return RaceResult{Winner: winner, Value: t.value}, nil
	})
}

func schedulerCreatePromise(ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		id := TaskID(newPromiseID())
		ss.tasks[id] = &taskRecord{id: id, status: taskWaiting, isPromise: true}
		return Task{ID: id}, nil
	})
}

func schedulerCompletePromise(e CompletePromise, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		t, ok := ss.tasks[e.Promise]
		if !ok || !t.isPromise {
			return nil, &InterpreterInvariantError{Reason: "CompletePromise on an unknown promise"}
		}
		t.status = taskComplete
		t.value = e.Value
		return nil, nil
	})
}

func schedulerFailPromise(e FailPromise, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		t, ok := ss.tasks[e.Promise]
		if !ok || !t.isPromise {
			return nil, &InterpreterInvariantError{Reason: "FailPromise on an unknown promise"}
		}
		t.status = taskComplete
		t.err = e.Err
		return nil, nil
	})
}

func schedulerCancelTask(e CancelTask, ctx *HandlerContext) *Program {
	return ProgramFunc(func() (any, error) {
		ss := schedulerOf(ctx.Store)
		if t, ok := ss.tasks[e.Task]; ok && (t.status == taskRunnable || t.status == taskWaiting) {
			t.status = taskCancelled
		}
		removeQueued(ss, e.Task)
		return nil, nil
	})
}

func removeQueued(ss *schedulerState, id TaskID) {
	for i, q := range ss.queue {
		if q == id {
			ss.queue = append(ss.queue[:i], ss.queue[i+1:]...)
			return
		}
	}
}

// advanceUntil round-robins every runnable task in ss, stepping each
// one until target is satisfied. A task's turn ends either when it
// finishes, when it crosses a Cooperate() yield point
// (StepResult.Cooperated), or when it performs an AsyncEscape: that
// action is handed to its own goroutine reporting back on its own
// asyncDone channel, and the task moves to taskWaiting, freeing
// advanceUntil to keep round-robining whatever else is runnable
// instead of blocking on that one action. Once every runnable task is
// exhausted, advanceUntil fans in over every pending task's asyncDone
// channel and waits for whichever resolves first. A Race (or any
// target satisfied while other tasks are still mid-escape) can return
// with tasks still pending — their goroutines still complete and exit
// on their own 1-buffered channel rather than blocking forever, since
// nobody is required to ever read it.
func advanceUntil(ss *schedulerState, store Store, target func() bool) error {
	for !target() {
		if len(ss.queue) == 0 {
			if ss.pendingAsync == 0 {
				return &DeadlockError{}
			}
			applyAsyncCompletion(ss, awaitAnyAsyncCompletion(ss))
			continue
		}
		id := ss.queue[0]
		t, ok := ss.tasks[id]
		if !ok || t.status != taskRunnable {
			ss.queue = ss.queue[1:]
			continue
		}
		res := Step(t.state)
		switch res.Kind {
		case StepDone:
			t.status = taskComplete
			t.value = res.Value
			ss.queue = ss.queue[1:]
		case StepFailed:
			t.status = taskComplete
			t.err = res.Err
			ss.queue = ss.queue[1:]
		case StepNewState:
			t.state = res.State
			if res.Cooperated {
				ss.queue = append(ss.queue[1:], id)
			}
		case StepAsyncEscape:
			svc := escapeServiceOf(store)
			if svc == nil {
				return &InterpreterInvariantError{Reason: "AsyncEscape used without an escape service installed"}
			}
			ss.queue = ss.queue[1:]
			t.status = taskWaiting
			t.asyncDone = make(chan asyncCompletion, 1)
			ss.pendingAsync++
			taskID, action, cont, done := id, res.EscapeAction, res.EscapeCont, t.asyncDone
			go func() {
				v, err := svc(action)
				done <- asyncCompletion{id: taskID, value: v, err: err, cont: cont}
			}()
		}
	}
	return nil
}

// awaitAnyAsyncCompletion blocks until the first of ss's currently
// pending tasks reports back on its asyncDone channel.
func awaitAnyAsyncCompletion(ss *schedulerState) asyncCompletion {
	cases := make([]reflect.SelectCase, 0, ss.pendingAsync)
	for _, t := range ss.tasks {
		if t.asyncDone != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(t.asyncDone)})
		}
	}
	_, recv, _ := reflect.Select(cases)
	return recv.Interface().(asyncCompletion)
}

// applyAsyncCompletion folds one resolved AsyncEscape back into its
// task. A task cancelled while its action was still in flight is left
// alone: CancelTask already dropped it from the queue, and there is no
// state left worth resuming.
func applyAsyncCompletion(ss *schedulerState, c asyncCompletion) {
	ss.pendingAsync--
	t, ok := ss.tasks[c.id]
	if !ok || t.status == taskCancelled {
		return
	}
	t.asyncDone = nil
	if c.err != nil {
		t.state = State{Control: ControlError(c.err), Env: c.cont.Env, Store: c.cont.Store, Kont: c.cont.Kont}
	} else {
		t.state = State{Control: ControlValue(c.value), Env: c.cont.Env, Store: c.cont.Store, Kont: c.cont.Kont}
	}
	t.status = taskRunnable
	ss.queue = append(ss.queue, c.id)
}
