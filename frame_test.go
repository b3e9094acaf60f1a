// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk_test

import (
	"testing"

	"code.cesklang.dev/cesk"
)

func TestKontinuationPushAndEmpty(t *testing.T) {
	var k *cesk.Kontinuation
	if !k.Empty() {
		t.Fatal("nil Kontinuation should report Empty")
	}
	frame := &cesk.ReturnFrame{}
	k2 := k.Push(frame)
	if k2.Empty() {
		t.Fatal("Kontinuation with a pushed frame should not be Empty")
	}
	if k2.Head != cesk.Frame(frame) {
		t.Fatalf("Head = %v, want the pushed frame", k2.Head)
	}
	if k2.Rest != k {
		t.Fatal("Push should leave the receiver as Rest, unmodified")
	}
}

func TestKontinuationPushDoesNotMutateReceiver(t *testing.T) {
	base := (&cesk.Kontinuation{}).Push(&cesk.ReturnFrame{})
	a := base.Push(&cesk.WithHandlerFrame{})
	b := base.Push(&cesk.DispatchingFrame{})
	if a == b {
		t.Fatal("two pushes off the same base should not alias")
	}
	if a.Rest != base || b.Rest != base {
		t.Fatal("both pushes should share the same unmodified base")
	}
}
