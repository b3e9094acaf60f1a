// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// collectHandlers walks k and returns every WithHandlerFrame installed
// on it, outermost first, stopping at the nearest DispatchingFrame. A
// handler body that is itself mid-dispatch on another effect must not
// see its own outer handlers as available for that nested dispatch —
// only the busy-boundary prefix does (the handlers of that
// DispatchingFrame's snapshot outward of the one running), matching
// dispatchingBelow's stop-at-one-frame convention used throughout
// step.go. k's top of stack is the most recently installed (innermost)
// handler, so the natural walk order is reversed before returning.
func collectHandlers(k *Kontinuation) []*WithHandlerFrame {
	var innermostFirst, prefix []*WithHandlerFrame
	for n := k; n != nil; n = n.Rest {
		if df, ok := n.Head.(*DispatchingFrame); ok {
			prefix = df.Handlers[:df.Index]
			break
		}
		if wh, ok := n.Head.(*WithHandlerFrame); ok {
			innermostFirst = append(innermostFirst, wh)
		}
	}
	out := make([]*WithHandlerFrame, len(prefix), len(prefix)+len(innermostFirst))
	copy(out, prefix)
	for i := len(innermostFirst) - 1; i >= 0; i-- {
		out = append(out, innermostFirst[i])
	}
	return out
}

// handlerFuncs extracts the bare HandlerFunc values from an
// outermost-first WithHandlerFrame slice, for exposing as
// HandlerContext.Handlers or for inheriting into a spawned task.
func handlerFuncs(frames []*WithHandlerFrame) []HandlerFunc {
	out := make([]HandlerFunc, len(frames))
	for i, f := range frames {
		out[i] = f.Handler
	}
	return out
}

// installHandlers pushes handlers onto base in order, outermost first,
// so the last one pushed ends up innermost (on top) — matching the
// convention collectHandlers expects. Used when a spawned task or a
// resumed fresh Continuation needs to start running under an inherited
// handler stack rather than the literal frames of its creator.
func installHandlers(base *Kontinuation, handlers []HandlerFunc, env *Env) *Kontinuation {
	k := base
	for _, h := range handlers {
		k = k.Push(&WithHandlerFrame{Handler: h, Env: env})
	}
	return k
}
