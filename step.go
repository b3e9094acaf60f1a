// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Step advances the machine by exactly one transition. Callers (drivers
// in runner.go, the scheduler's advanceUntil in scheduler.go) loop on it
// until they see StepDone, StepFailed, or — only for the nested drivers
// that know how to service it — StepAsyncEscape.
func Step(s State) StepResult {
	switch {
	case s.Control.IsProgram():
		return stepBeginProgram(s)
	case s.Control.IsValue():
		return stepPropagateValue(s)
	case s.Control.IsError():
		return stepPropagateError(s)
	case s.Control.IsEffect():
		return stepEffect(s)
	case s.Control.IsCooperateResume():
		return resumeTop(s, nil)
	default:
		return invariantFail(s, "malformed control")
	}
}

func stepBeginProgram(s State) StepResult {
	return stepFromProgramStep(s.Control.program.Start(), s)
}

// stepFromProgramStep turns a ProgramStep produced by Start/Resume/Throw
// into the next machine state. s.Kont's head is always the ReturnFrame
// belonging to the program that produced ps. A value or error result
// means that program is now done with the frame on top of s.Kont, so it
// is popped here — whatever later sees this result (stepPropagateValue,
// stepPropagateError) is guaranteed a *different* frame, never the one
// belonging to the program that just produced it.
func stepFromProgramStep(ps ProgramStep, s State) StepResult {
	switch ps.Kind {
	case StepValue:
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlValue(ps.Value), Env: s.Env, Store: s.Store, Kont: s.Kont.Rest,
		}}
	case StepError:
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlError(ps.Err), Env: s.Env, Store: s.Store, Kont: s.Kont.Rest,
		}}
	case StepYieldEffect:
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlEffect(ps.Effect), Env: s.Env, Store: s.Store, Kont: s.Kont,
		}}
	case StepYieldProgram:
		newKont := s.Kont.Push(&ReturnFrame{Program: ps.Program, Env: s.Env})
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlProgram(ps.Program), Env: s.Env, Store: s.Store, Kont: newKont,
		}}
	default:
		return invariantFail(s, "program produced an unrecognized step kind")
	}
}

// dispatchingBelow reports the DispatchingFrame directly below the top
// of k, if any — the shape every handler body's K has while its effect
// is under dispatch.
func dispatchingBelow(k *Kontinuation) (*DispatchingFrame, bool) {
	if k == nil || k.Rest == nil {
		return nil, false
	}
	df, ok := k.Rest.Head.(*DispatchingFrame)
	return df, ok
}

// nextEnv picks the environment that should govern execution once
// control reaches k, falling back to fallback for frames (or the
// absence of one) that carry no environment of their own.
func nextEnv(k *Kontinuation, fallback *Env) *Env {
	if k == nil {
		return fallback
	}
	switch f := k.Head.(type) {
	case *ReturnFrame:
		return f.Env
	case *WithHandlerFrame:
		return f.Env
	default:
		return fallback
	}
}

func stepPropagateValue(s State) StepResult {
	if s.Kont == nil {
		return StepResult{Kind: StepDone, Value: s.Control.value, Store: s.Store}
	}
	rest := s.Kont.Rest
	switch f := s.Kont.Head.(type) {
	case *ReturnFrame:
		// f belongs to a different, still-suspended program than the one
		// that just produced this value (stepFromProgramStep already
		// popped that one's own frame) — it yielded this one a nested
		// Program via YieldProgram and is waiting on the result.
		return stepFromProgramStep(f.Program.Resume(s.Control.value), State{
			Env: f.Env, Store: s.Store, Kont: s.Kont,
		})
	case *WithHandlerFrame:
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlValue(s.Control.value), Env: nextEnv(rest, f.Env), Store: s.Store, Kont: rest,
		}}
	case *DispatchingFrame:
		if err := consumeDispatchContinuation(f, s.Store); err != nil {
			return StepResult{Kind: StepNewState, State: State{
				Control: ControlError(err), Env: s.Env, Store: s.Store, Kont: abandonContinuation(rest),
			}}
		}
		// The handler fell through with a plain value instead of
		// yielding Resume: the captured effect-site continuation is
		// implicitly abandoned, so every fiber reachable from it is
		// discarded rather than left blocked forever, and the handler's
		// value becomes the result of the whole WithHandler scope.
		dropped := abandonContinuation(rest)
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlValue(s.Control.value), Env: nextEnv(dropped, s.Env), Store: s.Store, Kont: dropped,
		}}
	default:
		return invariantFail(s, "unrecognized frame while propagating a value")
	}
}

// abandonContinuation discards the Program of every consecutive
// ReturnFrame starting at k, stopping at the first frame that is not a
// ReturnFrame (or at the end of the chain). It returns the Kontinuation
// propagation should continue from. Used where a dispatch's captured
// continuation is abandoned rather than resumed: every fiber goroutine
// that continuation would otherwise have left permanently blocked is
// released instead.
func abandonContinuation(k *Kontinuation) *Kontinuation {
	for k != nil {
		rf, ok := k.Head.(*ReturnFrame)
		if !ok {
			break
		}
		rf.Program.Discard()
		k = k.Rest
	}
	return k
}

func stepPropagateError(s State) StepResult {
	if s.Kont == nil {
		return StepResult{Kind: StepFailed, Err: s.Control.err, Store: s.Store}
	}
	rest := s.Kont.Rest
	switch f := s.Kont.Head.(type) {
	case *ReturnFrame:
		// Give the program a chance to recover before unwinding past it.
		return stepFromProgramStep(f.Program.Throw(s.Control.err), State{
			Env: f.Env, Store: s.Store, Kont: s.Kont,
		})
	case *WithHandlerFrame:
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlError(s.Control.err), Env: nextEnv(rest, f.Env), Store: s.Store, Kont: rest,
		}}
	case *DispatchingFrame:
		_ = consumeDispatchContinuation(f, s.Store)
		// Same abandonment as stepPropagateValue's DispatchingFrame case:
		// the handler let an error fall through instead of yielding
		// Resume, so the captured effect-site continuation never runs
		// and its fibers must be released rather than leaked.
		dropped := abandonContinuation(rest)
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlError(s.Control.err), Env: nextEnv(dropped, s.Env), Store: s.Store, Kont: dropped,
		}}
	default:
		return invariantFail(s, "unrecognized frame while propagating an error")
	}
}

func stepEffect(s State) StepResult {
	switch eff := s.Control.effect.(type) {
	case pureEffect:
		return resumeTop(s, eff.value)
	case withHandlerEffect:
		return stepWithHandler(eff, s)
	case resumeEffect:
		return stepResume(eff, s)
	case forwardEffect:
		return stepForward(eff, s)
	case getContinuationEffect:
		return stepGetContinuation(s)
	case createContinuationEffect:
		return stepCreateContinuation(eff, s)
	case resumeContinuationEffect:
		return stepResumeContinuation(eff, s)
	case getHandlersEffect:
		return stepGetHandlers(s)
	case asyncEscapeEffect:
		return StepResult{Kind: StepAsyncEscape, EscapeAction: eff.action, EscapeCont: &escapeContinuation{
			Env: s.Env, Store: s.Store, Kont: s.Kont,
		}}
	case cooperateEffect:
		// Defer the resume to a separate Step transition (see
		// ControlCooperateResume) instead of resuming s's program inline:
		// that gives advanceUntil a chance to run another task's turn
		// before this one's continuation does any further work.
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlCooperateResume(), Env: s.Env, Store: s.Store, Kont: s.Kont,
		}, Cooperated: true}
	default:
		return stepDispatching(eff, s)
	}
}

// topReturnFrame returns s.Kont's head as a ReturnFrame, if s.Kont has
// one at all.
func topReturnFrame(s State) (*ReturnFrame, bool) {
	if s.Kont == nil {
		return nil, false
	}
	top, ok := s.Kont.Head.(*ReturnFrame)
	return top, ok
}

// resumeTop resumes the program owning s.Kont's top frame with value.
// The frame stays on top while the program keeps yielding; if the
// program completes, stepFromProgramStep pops it, so the later Step call
// seeing ControlValue/ControlError works against the frame below.
func resumeTop(s State, value any) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return invariantFail(s, "effect yielded with no running program on top")
	}
	return stepFromProgramStep(top.Program.Resume(value), State{Env: top.Env, Store: s.Store, Kont: s.Kont})
}

func throwTop(s State, err error) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return StepResult{Kind: StepFailed, Err: err, Store: s.Store}
	}
	return stepFromProgramStep(top.Program.Throw(err), State{Env: top.Env, Store: s.Store, Kont: s.Kont})
}

func invariantFail(s State, reason string) StepResult {
	err := &InterpreterInvariantError{Reason: reason}
	if _, ok := topReturnFrame(s); ok {
		return throwTop(s, err)
	}
	return StepResult{Kind: StepFailed, Err: err, Store: s.Store}
}

func stepWithHandler(eff withHandlerEffect, s State) StepResult {
	newKont := s.Kont.
		Push(&WithHandlerFrame{Handler: eff.handler, Env: s.Env}).
		Push(&ReturnFrame{Program: eff.body, Env: s.Env})
	return StepResult{Kind: StepNewState, State: State{
		Control: ControlProgram(eff.body), Env: s.Env, Store: s.Store, Kont: newKont,
	}}
}

// stepDispatching starts a fresh dispatch of eff against the innermost
// handler visible from s.Kont.
func stepDispatching(eff Effect, s State) StepResult {
	handlers := collectHandlers(s.Kont)
	if len(handlers) == 0 {
		return throwTop(s, &UnhandledEffectError{Effect: eff})
	}
	idx := len(handlers) - 1
	h := handlers[idx]
	df := &DispatchingFrame{Effect: eff, Handlers: handlers, Index: idx}
	ctx := &HandlerContext{Env: h.Env, Store: s.Store, Effect: eff, Handlers: handlerFuncs(handlers)}
	prog := h.Handler(eff, ctx)
	newKont := s.Kont.Push(df).Push(&ReturnFrame{Program: prog, Env: h.Env})
	return StepResult{Kind: StepNewState, State: State{
		Control: ControlProgram(prog), Env: h.Env, Store: s.Store, Kont: newKont,
	}}
}

// stepResume is yielded by a running handler body to hand value back to
// the effect site under dispatch. It runs that site's continuation to
// completion before resuming the handler body with the result, matching
// Resume's documented "suspends the handler until that continuation
// completes" contract.
func stepResume(eff resumeEffect, s State) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return invariantFail(s, "Resume used outside a handler")
	}
	df, ok := dispatchingBelow(s.Kont)
	if !ok {
		return throwTop(s, &InterpreterInvariantError{Reason: "Resume used outside a handler"})
	}
	if err := consumeDispatchContinuation(df, s.Store); err != nil {
		return throwTop(s, err)
	}
	rest := s.Kont.Rest.Rest
	runSt := State{Control: ControlValue(eff.value), Env: nextEnv(rest, top.Env), Store: s.Store, Kont: rest}
	val, newStore, err := runToCompletion(runSt)
	if err != nil {
		return throwTop(State{Env: top.Env, Store: newStore, Kont: s.Kont}, err)
	}
	return resumeTop(State{Env: top.Env, Store: newStore, Kont: s.Kont}, val)
}

// stepForward abandons the currently running handler body and
// re-dispatches eff.inner to the next handler outward, reusing the same
// handler snapshot and the same underlying effect-site continuation.
func stepForward(eff forwardEffect, s State) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return invariantFail(s, "Forward used outside a handler")
	}
	df, ok := dispatchingBelow(s.Kont)
	if !ok {
		return throwTop(s, &InterpreterInvariantError{Reason: "Forward used outside a handler"})
	}
	if df.Index <= 0 {
		// No outer handler to forward to: the handler body's own frame is
		// abandoned (Discard, not Throw — it's already being dropped, not
		// asked to recover), and the error propagates into whatever sits
		// below the DispatchingFrame instead of back into the frame just
		// discarded.
		top.Program.Discard()
		rest := s.Kont.Rest.Rest
		return StepResult{Kind: StepNewState, State: State{
			Control: ControlError(&UnhandledEffectError{Effect: eff.inner}), Env: nextEnv(rest, top.Env), Store: s.Store, Kont: rest,
		}}
	}
	top.Program.Discard()
	newIdx := df.Index - 1
	h := df.Handlers[newIdx]
	newDf := &DispatchingFrame{
		Effect: eff.inner, Handlers: df.Handlers, Index: newIdx,
		Forwarded: true, ContinuationID: df.ContinuationID,
	}
	ctx := &HandlerContext{Env: h.Env, Store: s.Store, Effect: eff.inner, Handlers: handlerFuncs(df.Handlers)}
	prog := h.Handler(eff.inner, ctx)
	rest := s.Kont.Rest.Rest
	newKont := rest.Push(newDf).Push(&ReturnFrame{Program: prog, Env: h.Env})
	return StepResult{Kind: StepNewState, State: State{
		Control: ControlProgram(prog), Env: h.Env, Store: s.Store, Kont: newKont,
	}}
}

func stepGetContinuation(s State) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return invariantFail(s, "GetContinuation used outside a handler")
	}
	df, ok := dispatchingBelow(s.Kont)
	if !ok {
		return throwTop(s, &InterpreterInvariantError{Reason: "GetContinuation used outside a handler"})
	}
	if df.ContinuationID == 0 {
		df.ContinuationID = nextContID()
	}
	cont := &Continuation{
		ID:       df.ContinuationID,
		Kont:     s.Kont.Rest.Rest,
		Env:      top.Env,
		Handlers: handlerFuncs(df.Handlers),
	}
	return resumeTop(s, cont)
}

func stepCreateContinuation(eff createContinuationEffect, s State) StepResult {
	cont := &Continuation{
		ID:       nextContID(),
		Fresh:    true,
		Program:  eff.program,
		Env:      EmptyEnv,
		Handlers: eff.handlers,
	}
	return resumeTop(s, cont)
}

func stepResumeContinuation(eff resumeContinuationEffect, s State) StepResult {
	top, ok := topReturnFrame(s)
	if !ok {
		return invariantFail(s, "ResumeContinuation used outside a running program")
	}
	if !markContinuationConsumed(s.Store, eff.cont.ID) {
		return throwTop(s, &OneShotViolationError{ID: eff.cont.ID})
	}
	var runSt State
	if eff.cont.Fresh {
		k := installHandlers(nil, eff.cont.Handlers, eff.cont.Env).Push(&ReturnFrame{Program: eff.cont.Program, Env: eff.cont.Env})
		runSt = State{Control: ControlProgram(eff.cont.Program), Env: eff.cont.Env, Store: s.Store, Kont: k}
	} else {
		runSt = State{
			Control: ControlValue(eff.value),
			Env:     nextEnv(eff.cont.Kont, eff.cont.Env),
			Store:   s.Store,
			Kont:    eff.cont.Kont,
		}
	}
	val, newStore, err := runToCompletion(runSt)
	if err != nil {
		return throwTop(State{Env: top.Env, Store: newStore, Kont: s.Kont}, err)
	}
	return resumeTop(State{Env: top.Env, Store: newStore, Kont: s.Kont}, val)
}

func stepGetHandlers(s State) StepResult {
	if _, ok := topReturnFrame(s); !ok {
		return invariantFail(s, "GetHandlers used outside a running program")
	}
	// Inside a handler body, report the same busy-boundary snapshot
	// GetContinuation would capture for this dispatch (df.Handlers),
	// not a fresh, unbounded walk of the whole Kontinuation.
	if df, ok := dispatchingBelow(s.Kont); ok {
		return resumeTop(s, handlerFuncs(df.Handlers))
	}
	return resumeTop(s, handlerFuncs(collectHandlers(s.Kont)))
}

// consumeDispatchContinuation marks a dispatch's captured continuation
// (if GetContinuation was ever called for it) as resumed, reporting a
// OneShotViolationError if something already resumed it through
// ResumeContinuation. A dispatch nobody ever captured a continuation
// for has nothing to check here: its sole resumption path is this one.
func consumeDispatchContinuation(df *DispatchingFrame, store Store) error {
	if df.ContinuationID == 0 {
		return nil
	}
	if !markContinuationConsumed(store, df.ContinuationID) {
		return &OneShotViolationError{ID: df.ContinuationID}
	}
	return nil
}

// runToCompletion drives st to a final value/error, transparently
// servicing any AsyncEscape requests through the escape service
// installed in the store (see async.go). It is used wherever a
// primitive needs a fully resolved downstream result before it can
// resume its caller: Resume, ResumeContinuation, and the top-level
// drivers' own event loops build on the same Step/StepResult contract
// directly rather than through this helper.
func runToCompletion(st State) (value any, store Store, err error) {
	for {
		res := Step(st)
		switch res.Kind {
		case StepDone:
			return res.Value, res.Store, nil
		case StepFailed:
			return nil, res.Store, res.Err
		case StepNewState:
			st = res.State
		case StepAsyncEscape:
			svc := escapeServiceOf(res.EscapeCont.Store)
			if svc == nil {
				return nil, res.EscapeCont.Store, &InterpreterInvariantError{
					Reason: "AsyncEscape used without an escape service installed",
				}
			}
			v, escErr := svc(res.EscapeAction)
			if escErr != nil {
				st = State{Control: ControlError(escErr), Env: res.EscapeCont.Env, Store: res.EscapeCont.Store, Kont: res.EscapeCont.Kont}
			} else {
				st = State{Control: ControlValue(v), Env: res.EscapeCont.Env, Store: res.EscapeCont.Store, Kont: res.EscapeCont.Kont}
			}
		}
	}
}
