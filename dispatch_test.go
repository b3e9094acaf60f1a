// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"context"
	"testing"

	"code.cesklang.dev/cesk"
)

type pingEffect struct{}

func (pingEffect) effect() {}

func TestHandlerSeesInstallationEnvNotCallSiteEnv(t *testing.T) {
	env := cesk.EmptyEnv.With("label", "outer")
	var sawLabel any

	handler := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		return cesk.ProgramFunc(func() (any, error) {
			sawLabel, _ = ctx.Env.Get("label")
			return nil, nil
		})
	}

	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(pingEffect{})
	})
	installed := cesk.WithHandler(handler, body)
	outerBody := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(installed)
	})

	res := cesk.SyncRun(context.Background(), outerBody, nil, env, cesk.EmptyStore)
	if !res.Ok() {
		t.Fatalf("run failed: %v", res.Err)
	}
	if sawLabel != "outer" {
		t.Fatalf("handler context env = %v, want %q", sawLabel, "outer")
	}
}

func TestInnermostHandlerWinsWhenBothClaim(t *testing.T) {
	inner := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		if _, ok := eff.(pingEffect); ok {
			return cesk.ProgramPure("inner")
		}
		return cesk.Suspended(func(y cesk.Yielder) (any, error) { return y.Yield(cesk.Forward(eff)) })
	}
	outer := func(eff cesk.Effect, ctx *cesk.HandlerContext) *cesk.Program {
		if _, ok := eff.(pingEffect); ok {
			return cesk.ProgramPure("outer")
		}
		return cesk.Suspended(func(y cesk.Yielder) (any, error) { return y.Yield(cesk.Forward(eff)) })
	}
	body := cesk.Suspended(func(y cesk.Yielder) (any, error) {
		return y.Yield(pingEffect{})
	})
	res := cesk.SyncRun(context.Background(), body, []cesk.HandlerFunc{outer, inner}, cesk.EmptyEnv, cesk.EmptyStore)
	if !res.Ok() || res.Value != "inner" {
		t.Fatalf("expected the innermost handler to win, got %+v", res)
	}
}
