// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"errors"
	"testing"

	"code.cesklang.dev/cesk"
)

func TestBracketRunsReleaseEvenWhenUseFails(t *testing.T) {
	var released any
	acquire := cesk.ProgramPure("resource")
	boom := errors.New("use failed")
	use := func(r any) *cesk.Program {
		return cesk.ProgramFunc(func() (any, error) { return nil, boom })
	}
	release := func(r any) *cesk.Program {
		return cesk.ProgramFunc(func() (any, error) { released = r; return nil, nil })
	}
	p := cesk.Bracket(acquire, use, release)
	res := cesk.SyncRun(context.Background(), p, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if res.Ok() {
		t.Fatalf("expected Bracket to surface use's error, got %+v", res)
	}
	if res.Err != boom {
		t.Fatalf("Bracket error = %v, want %v", res.Err, boom)
	}
	if released != "resource" {
		t.Fatalf("release did not run with the acquired resource: got %v", released)
	}
}

func TestBracketReturnsUseResultOnSuccess(t *testing.T) {
	var released bool
	p := cesk.Bracket(
		cesk.ProgramPure(1),
		func(r any) *cesk.Program { return cesk.ProgramPure(r.(int) + 41) },
		func(r any) *cesk.Program {
			return cesk.ProgramFunc(func() (any, error) { released = true; return nil, nil })
		},
	)
	res := cesk.SyncRun(context.Background(), p, nil, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != 42 {
		t.Fatalf("Bracket result = %+v, want 42", res)
	}
	if !released {
		t.Fatal("release did not run on the success path")
	}
}
