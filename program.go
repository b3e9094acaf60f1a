// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import "errors"

// Body is the user code running inside a Suspended Program. It receives
// a Yielder it uses to surrender control to the interpreter, and returns
// the program's final value or an error.
type Body func(y Yielder) (any, error)

// Yielder is the only way a Program body can suspend itself. Each call
// blocks until the interpreter sends back a resumption value or an
// error for the yielded item.
type Yielder interface {
	// Yield suspends the body on eff and blocks for the handler's
	// response.
	Yield(eff Effect) (any, error)
	// YieldProgram suspends the body on a nested Program the same way.
	YieldProgram(p *Program) (any, error)
}

var errAbandoned = errors.New("cesk: program abandoned")

// Program is a computation producing a value of an unspecified type,
// built by one of three constructors: a pure value with no effects, a
// synchronous ProgramFunc run without a goroutine, or a Suspended
// computation backed by a goroutine fiber. Only one
// goroutine is ever runnable for a given Program at a time: the holder
// of the driving side of the channel pair is the only party able to make
// progress, which is what gives the machine its "a Program is referenced
// by at most one Frame" invariant for free.
type Program struct {
	pure     bool
	value    any
	sync     bool
	syncBody func() (any, error)
	body     Body
	fiber    *fiber
}

// ProgramPure builds a Program that resolves immediately to v with no
// suspension.
func ProgramPure(v any) *Program {
	return &Program{pure: true, value: v}
}

// ProgramFunc builds a Program that runs body to completion without
// ever suspending. This is the common case for handler bodies that only
// need to read ctx and compute a result — it avoids paying for a fiber
// goroutine when the body never calls Yield.
func ProgramFunc(body func() (any, error)) *Program {
	return &Program{sync: true, syncBody: body}
}

// Suspended builds a Program whose body may call methods on its Yielder
// to suspend on effects or nested programs.
func Suspended(body Body) *Program {
	return &Program{
		body: body,
		fiber: &fiber{
			out:  make(chan yieldMsg),
			in:   make(chan resumeMsg),
			done: make(chan fiberResult, 1),
		},
	}
}

// ProgramStepKind tags what a Program produced on a Start/Resume/Throw
// call.
type ProgramStepKind int

const (
	// StepValue means the program returned cleanly.
	StepValue ProgramStepKind = iota
	// StepError means the program's body returned an error.
	StepError
	// StepYieldEffect means the body yielded an Effect and is waiting
	// for a response.
	StepYieldEffect
	// StepYieldProgram means the body yielded a nested Program and is
	// waiting for its result.
	StepYieldProgram
)

// ProgramStep is the outcome of advancing a Program by one yield.
type ProgramStep struct {
	Kind    ProgramStepKind
	Effect  Effect
	Program *Program
	Value   any
	Err     error
}

// Start begins executing p and returns its first yield or result.
func (p *Program) Start() ProgramStep {
	switch {
	case p.pure:
		return ProgramStep{Kind: StepValue, Value: p.value}
	case p.sync:
		v, err := p.syncBody()
		if err != nil {
			return ProgramStep{Kind: StepError, Err: err}
		}
		return ProgramStep{Kind: StepValue, Value: v}
	default:
		f := p.fiber
		if !f.started {
			f.started = true
			go f.run(p.body)
		}
		return f.receive()
	}
}

// Resume sends v into p as the result of its most recent yield.
func (p *Program) Resume(v any) ProgramStep {
	if p.fiber == nil || p.fiber.finished {
		panic("cesk: Resume on a program with nothing suspended")
	}
	p.fiber.in <- resumeMsg{value: v}
	return p.fiber.receive()
}

// Throw sends err into p as the result of its most recent yield, giving
// the body a chance to recover.
func (p *Program) Throw(err error) ProgramStep {
	if p.fiber == nil || p.fiber.finished {
		panic("cesk: Throw on a program with nothing suspended")
	}
	p.fiber.in <- resumeMsg{err: err}
	return p.fiber.receive()
}

// Discard abandons a suspended Program without resuming it, releasing
// the goroutine backing it. Safe to call on a Program that was never
// started or has already finished.
func (p *Program) Discard() {
	if p.fiber == nil || !p.fiber.started || p.fiber.finished {
		return
	}
	select {
	case p.fiber.in <- resumeMsg{err: errAbandoned}:
		<-p.fiber.done
		p.fiber.finished = true
	default:
	}
}

type yieldKind int

const (
	yieldEffect yieldKind = iota
	yieldProgram
)

type yieldMsg struct {
	kind    yieldKind
	effect  Effect
	program *Program
}

type resumeMsg struct {
	value any
	err   error
}

type fiberResult struct {
	value any
	err   error
}

// fiber is the goroutine/channel pair backing a Suspended Program. Only
// the driver goroutine reads from out/done and writes to in; only the
// body goroutine does the reverse, so no field here needs a lock.
type fiber struct {
	out      chan yieldMsg
	in       chan resumeMsg
	done     chan fiberResult
	started  bool
	finished bool
}

func (f *fiber) run(body Body) {
	y := &fiberYielder{f: f}
	v, err := body(y)
	f.done <- fiberResult{value: v, err: err}
}

func (f *fiber) receive() ProgramStep {
	select {
	case m := <-f.out:
		if m.kind == yieldProgram {
			return ProgramStep{Kind: StepYieldProgram, Program: m.program}
		}
		return ProgramStep{Kind: StepYieldEffect, Effect: m.effect}
	case r := <-f.done:
		f.finished = true
		if r.err != nil {
			return ProgramStep{Kind: StepError, Err: r.err}
		}
		return ProgramStep{Kind: StepValue, Value: r.value}
	}
}

type fiberYielder struct{ f *fiber }

func (y *fiberYielder) Yield(eff Effect) (any, error) {
	y.f.out <- yieldMsg{kind: yieldEffect, effect: eff}
	r := <-y.f.in
	return r.value, r.err
}

func (y *fiberYielder) YieldProgram(p *Program) (any, error) {
	y.f.out <- yieldMsg{kind: yieldProgram, program: p}
	r := <-y.f.in
	return r.value, r.err
}
