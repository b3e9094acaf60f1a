// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Program combinators mirroring the teacher package's Bind/Map/Then over
// Cont[R, A], adapted to the fiber-backed Program: each yields its
// operands through the caller's own Yielder rather than composing
// closures directly, so they interleave with effects the same way any
// other nested program does.

// Bind runs m, then passes its result to f to get the next Program.
func Bind(m *Program, f func(any) *Program) *Program {
	return Suspended(func(y Yielder) (any, error) {
		v, err := y.YieldProgram(m)
		if err != nil {
			return nil, err
		}
		return y.YieldProgram(f(v))
	})
}

// Map runs m and applies a pure function to its result.
func Map(m *Program, f func(any) any) *Program {
	return Suspended(func(y Yielder) (any, error) {
		v, err := y.YieldProgram(m)
		if err != nil {
			return nil, err
		}
		return f(v), nil
	})
}

// Then runs m, discards its result, then runs n.
func Then(m, n *Program) *Program {
	return Suspended(func(y Yielder) (any, error) {
		if _, err := y.YieldProgram(m); err != nil {
			return nil, err
		}
		return y.YieldProgram(n)
	})
}
