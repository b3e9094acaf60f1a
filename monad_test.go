// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"errors"
	"testing"

	"code.cesklang.dev/cesk"
)

func TestBindSequencesAndPassesResult(t *testing.T) {
	m := cesk.ProgramPure(10)
	p := cesk.Bind(m, func(v any) *cesk.Program { return cesk.ProgramPure(v.(int) + 5) })
	res := cesk.SyncRun(context.Background(), p, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != 15 {
		t.Fatalf("Bind result = %+v, want 15", res)
	}
}

func TestBindShortCircuitsOnError(t *testing.T) {
	boom := errors.New("boom")
	m := cesk.ProgramFunc(func() (any, error) { return nil, boom })
	called := false
	p := cesk.Bind(m, func(v any) *cesk.Program {
		called = true
		return cesk.ProgramPure(v)
	})
	res := cesk.SyncRun(context.Background(), p, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if res.Ok() {
		t.Fatalf("expected an error, got %+v", res)
	}
	if called {
		t.Fatal("Bind's continuation ran despite the first program failing")
	}
}

func TestThenDiscardsFirstResult(t *testing.T) {
	p := cesk.Then(cesk.ProgramPure("ignored"), cesk.ProgramPure(99))
	res := cesk.SyncRun(context.Background(), p, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != 99 {
		t.Fatalf("Then result = %+v, want 99", res)
	}
}
