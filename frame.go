// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Frame is one link of the machine's continuation. Frame is a pure
// marker interface; step.go dispatches on the concrete type with a type
// switch rather than a tag field.
type Frame interface {
	frame()
}

// ReturnFrame is the continuation of a running Program: when the
// program under it produces a value (or error), this frame is where
// control returns to. Started and Location are never set by the step
// function: Started is always false, Location is always nil, and no
// source location is recorded for a frame.
type ReturnFrame struct {
	Program  *Program
	Env      *Env
	Started  bool
	Location *FrameLocation
}

func (*ReturnFrame) frame() {}

// FrameLocation is the shape of a source location for a ReturnFrame.
// Nothing in this package fills one in or assembles a traceback from
// it, so RuntimeResult.Traceback is always nil.
type FrameLocation struct {
	File string
	Line int
	Func string
}

// WithHandlerFrame marks a handler scope installed by WithHandler. It
// carries the handler function and the environment captured at the
// point WithHandler was yielded, so a HandlerFunc always sees the
// lexical environment of its installation site, not the call site of
// the effect it ends up handling.
type WithHandlerFrame struct {
	Handler HandlerFunc
	Env     *Env
}

func (*WithHandlerFrame) frame() {}

// DispatchingFrame marks an effect currently being routed to a handler.
// Handlers is the outermost-first snapshot collected by collectHandlers
// at the moment dispatch began; Index is the handler currently running,
// counting down from len(Handlers)-1 (innermost) toward 0 (outermost) as
// Forward re-dispatches outward. HandlerStarted is never set by the
// step function and is always false. Forwarded records whether the current occupant of Index
// was reached via Forward, which matters for diagnostics only.
// ContinuationID is set once GetContinuation captures this dispatch's
// continuation, so a second capture reuses the same identity.
type DispatchingFrame struct {
	Effect         Effect
	Handlers       []*WithHandlerFrame
	Index          int
	HandlerStarted bool
	Forwarded      bool
	ContinuationID ContID
}

func (*DispatchingFrame) frame() {}

// Kontinuation is the machine's K component: a persistent, singly linked
// stack of frames. Persistent so that GetContinuation can capture a
// shared tail without copying it, and so a Continuation built from a
// slice (continuation.go) can share structure with the chain it was cut
// from.
type Kontinuation struct {
	Head Frame
	Rest *Kontinuation
}

// Push returns a new Kontinuation with f on top of k. k itself is left
// untouched.
func (k *Kontinuation) Push(f Frame) *Kontinuation {
	return &Kontinuation{Head: f, Rest: k}
}

// Empty reports whether k has no frames left.
func (k *Kontinuation) Empty() bool {
	return k == nil
}
