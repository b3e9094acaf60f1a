// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"testing"

	"code.cesklang.dev/cesk"
)

// Capturing a continuation without ever explicitly resuming it means
// the handler body's own return value implicitly abandons that
// continuation: the addEffect call site's fiber is discarded rather
// than resumed, and the handler's 55 becomes the result of the whole
// run.
func TestGetContinuationWithoutExplicitResumeStillCompletesOnce(t *testing.T) {
	captured := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		if _, ok := eff.(addEffect); !ok {
			return cesk.Suspended(func(y cesk.Yielder) (any, error) { return y.Yield(cesk.Forward(eff)) })
		}
		return cesk.Suspended(func(y cesk.Yielder) (any, error) {
			if _, err := y.Yield(cesk.GetContinuation()); err != nil {
				return nil, err
			}
			return 55, nil
		})
	}
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(addEffect{N: 1})
	})
	res := cesk.SyncRun(context.Background(), body, []cesk.HandlerFunc{captured}, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != 55 {
		t.Fatalf("expected Ok(55), got %+v", res)
	}
}

func TestCreateContinuationRunsFreshProgramOnFirstResume(t *testing.T) {
	trigger := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		if _, ok := eff.(addEffect); !ok {
			return cesk.Suspended(func(y cesk.Yielder) (any, error) { return y.Yield(cesk.Forward(eff)) })
		}
		return cesk.Suspended(func(y cesk.Yielder) (any, error) {
			fresh := cesk.CreateContinuation(cesk.ProgramPure(7), nil)
			k, err := y.Yield(fresh)
			if err != nil {
				return nil, err
			}
			return y.Yield(cesk.ResumeContinuation(k.(*cesk.Continuation), nil))
		})
	}
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(addEffect{N: 0})
	})
	res := cesk.SyncRun(context.Background(), body, []cesk.HandlerFunc{trigger}, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != 7 {
		t.Fatalf("expected Ok(7), got %+v", res)
	}
}

func TestResumeContinuationTwiceIsOneShotViolation(t *testing.T) {
	handler := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		if _, ok := eff.(addEffect); !ok {
			return cesk.Suspended(func(y cesk.Yielder) (any, error) { return y.Yield(cesk.Forward(eff)) })
		}
		return cesk.Suspended(func(y cesk.Yielder) (any, error) {
			kAny, err := y.Yield(cesk.GetContinuation())
			if err != nil {
				return nil, err
			}
			k := kAny.(*cesk.Continuation)
			if _, err := y.Yield(cesk.ResumeContinuation(k, 1)); err != nil {
				return nil, err
			}
			return y.Yield(cesk.ResumeContinuation(k, 2))
		})
	}
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(addEffect{N: 0})
	})
	res := cesk.SyncRun(context.Background(), body, []cesk.HandlerFunc{handler}, cesk.EmptyEnv, cesk.EmptyStore)
	if res.Ok() {
		t.Fatalf("expected a one-shot violation, got %+v", res)
	}
	if _, ok := res.Err.(*cesk.OneShotViolationError); !ok {
		t.Fatalf("expected *OneShotViolationError, got %T: %v", res.Err, res.Err)
	}
}
