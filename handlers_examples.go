// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// This file rebuilds the teacher package's State/Reader/Writer effect
// libraries (state.go, reader.go, writer.go) as illustrative handlers
// over Effect/HandlerFunc, to show how a user would build one of their
// own. None of the core machine depends on them.

// StateGet reads the cell a NewStateHandler is holding.
type StateGet struct{}

func (StateGet) effect() {}

// StatePut replaces the cell's value.
type StatePut struct{ Value any }

func (StatePut) effect() {}

// StateModify replaces the cell's value with f applied to the current
// one, resolving to the new value.
type StateModify struct{ F func(any) any }

func (StateModify) effect() {}

// NewStateHandler builds a single-cell mutable-state handler seeded
// with initial. The returned func reads the cell's current value after
// the handled program has run.
func NewStateHandler(initial any) (HandlerFunc, func() any) {
	cell := initial
	handler := func(eff Effect, ctx *HandlerContext) *Program {
		switch e := eff.(type) {
		case StateGet:
			return Suspended(func(y Yielder) (any, error) { return y.Yield(Resume(cell)) })
		case StatePut:
			return Suspended(func(y Yielder) (any, error) { cell = e.Value; return y.Yield(Resume(nil)) })
		case StateModify:
			return Suspended(func(y Yielder) (any, error) { cell = e.F(cell); return y.Yield(Resume(cell)) })
		default:
			return Suspended(func(y Yielder) (any, error) { return y.Yield(Forward(eff)) })
		}
	}
	return handler, func() any { return cell }
}

// Ask reads the fixed value a NewReaderHandler was built with.
type Ask struct{}

func (Ask) effect() {}

// NewReaderHandler builds a handler that answers every Ask with value.
func NewReaderHandler(value any) HandlerFunc {
	return func(eff Effect, ctx *HandlerContext) *Program {
		if _, ok := eff.(Ask); ok {
			return Suspended(func(y Yielder) (any, error) { return y.Yield(Resume(value)) })
		}
		return Suspended(func(y Yielder) (any, error) { return y.Yield(Forward(eff)) })
	}
}

// Tell appends Value to a NewWriterHandler's log.
type Tell struct{ Value any }

func (Tell) effect() {}

// NewWriterHandler builds a handler that accumulates Tell values. The
// returned func snapshots the log accumulated so far.
func NewWriterHandler() (HandlerFunc, func() []any) {
	var log []any
	handler := func(eff Effect, ctx *HandlerContext) *Program {
		if t, ok := eff.(Tell); ok {
			return Suspended(func(y Yielder) (any, error) {
				log = append(log, t.Value)
				return y.Yield(Resume(nil))
			})
		}
		return Suspended(func(y Yielder) (any, error) { return y.Yield(Forward(eff)) })
	}
	return handler, func() []any {
		out := make([]any, len(log))
		copy(out, log)
		return out
	}
}
