// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"testing"

	"code.cesklang.dev/cesk"
)

func TestRaceResolvesToFirstFinisher(t *testing.T) {
	program := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		slow := cesk.Suspended(func(iy cesk.Yielder) (any, error) {
			if _, err := iy.Yield(cesk.Cooperate()); err != nil {
				return nil, err
			}
			return "slow", nil
		})
		fast := cesk.ProgramPure("fast")
		a, err := y.Yield(cesk.Spawn{Program: slow})
		if err != nil {
			return nil, err
		}
		b, err := y.Yield(cesk.Spawn{Program: fast})
		if err != nil {
			return nil, err
		}
		return y.Yield(cesk.Race{Tasks: []cesk.TaskID{a.(cesk.Task).ID, b.(cesk.Task).ID}})
	})
	store := cesk.WithScheduler(cesk.EmptyStore)
	res := cesk.SyncRun(context.Background(), program, []cesk.HandlerFunc{cesk.SchedulerHandler}, cesk.EmptyEnv, store)
	if !res.Ok() {
		t.Fatalf("race failed: %v", res.Err)
	}
	rr := res.Value.(cesk.RaceResult)
	if rr.Value != "fast" {
		t.Fatalf("race winner value = %v, want \"fast\"", rr.Value)
	}
}

func TestPromiseResolvesWaiter(t *testing.T) {
	program := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		p, err := y.Yield(cesk.CreatePromise{})
		if err != nil {
			return nil, err
		}
		id := p.(cesk.Task).ID
		if _, err := y.Yield(cesk.CompletePromise{Promise: id, Value: "resolved"}); err != nil {
			return nil, err
		}
		return y.Yield(cesk.Wait{Task: id})
	})
	store := cesk.WithScheduler(cesk.EmptyStore)
	res := cesk.SyncRun(context.Background(), program, []cesk.HandlerFunc{cesk.SchedulerHandler}, cesk.EmptyEnv, store)
	if !res.Ok() || res.Value != "resolved" {
		t.Fatalf("promise wait result = %+v, want \"resolved\"", res)
	}
}

func TestFailPromisePropagatesErrorToWaiter(t *testing.T) {
	program := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		p, err := y.Yield(cesk.CreatePromise{})
		if err != nil {
			return nil, err
		}
		id := p.(cesk.Task).ID
		if _, err := y.Yield(cesk.FailPromise{Promise: id, Err: errBoom}); err != nil {
			return nil, err
		}
		return y.Yield(cesk.Wait{Task: id})
	})
	store := cesk.WithScheduler(cesk.EmptyStore)
	res := cesk.SyncRun(context.Background(), program, []cesk.HandlerFunc{cesk.SchedulerHandler}, cesk.EmptyEnv, store)
	if res.Ok() || res.Err != errBoom {
		t.Fatalf("expected the promise's failure to surface at Wait, got %+v", res)
	}
}

func TestWaitWithNoRunnableTaskIsDeadlock(t *testing.T) {
	program := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		p, err := y.Yield(cesk.CreatePromise{})
		if err != nil {
			return nil, err
		}
		return y.Yield(cesk.Wait{Task: p.(cesk.Task).ID})
	})
	store := cesk.WithScheduler(cesk.EmptyStore)
	res := cesk.SyncRun(context.Background(), program, []cesk.HandlerFunc{cesk.SchedulerHandler}, cesk.EmptyEnv, store)
	if res.Ok() {
		t.Fatalf("expected a deadlock, got %+v", res)
	}
	if _, ok := res.Err.(*cesk.DeadlockError); !ok {
		t.Fatalf("expected *DeadlockError, got %T: %v", res.Err, res.Err)
	}
}

var errBoom = &cesk.InterpreterInvariantError{Reason: "test failure marker"}
