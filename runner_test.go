// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"testing"

	"code.cesklang.dev/cesk"
)

func TestRuntimeResultOk(t *testing.T) {
	ok := cesk.RuntimeResult{Value: 1}
	if !ok.Ok() {
		t.Fatal("a result with no error should report Ok")
	}
	failed := cesk.RuntimeResult{Err: &cesk.InterpreterInvariantError{Reason: "x"}}
	if failed.Ok() {
		t.Fatal("a result with an error should not report Ok")
	}
}

func TestSyncRunRunsPlainProgramWithoutEscapes(t *testing.T) {
	res := cesk.SyncRun(context.Background(), cesk.ProgramPure("plain"), nil, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != "plain" {
		t.Fatalf("SyncRun(plain program) = %+v", res)
	}
}

func TestAsyncRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(cesk.AsyncEscape(func(ctx context.Context) (any, error) {
			return nil, ctx.Err()
		}))
	})
	res := cesk.AsyncRun(ctx, body, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if res.Ok() {
		t.Fatal("expected a cancelled context to surface as an error")
	}
}

func TestDriveUnhandledEffectAtTopLevel(t *testing.T) {
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(addEffect{N: 1})
	})
	res := cesk.SyncRun(context.Background(), body, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if res.Ok() {
		t.Fatal("expected an unhandled effect error with no handlers installed")
	}
	if _, ok := res.Err.(*cesk.UnhandledEffectError); !ok {
		t.Fatalf("expected *UnhandledEffectError, got %T: %v", res.Err, res.Err)
	}
}
