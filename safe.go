// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Safe runs body and, if it fails, runs recover(err) in its place. This
// generalizes the teacher package's OnError combinator from a
// closure-based Cont[Resumed, A] to a Program, driven through the
// caller's own Yielder so it composes with effects the same way any
// other nested program does.
func Safe(body *Program, recover func(err error) *Program) *Program {
	return Suspended(func(y Yielder) (any, error) {
		v, err := y.YieldProgram(body)
		if err == nil {
			return v, nil
		}
		return y.YieldProgram(recover(err))
	})
}

// Bracket runs acquire, passes its result to use, and always runs
// release with that same result afterward, even if use failed — the
// Program-level counterpart of the teacher package's Bracket. release's
// own error only surfaces if use itself succeeded.
func Bracket(acquire *Program, use func(resource any) *Program, release func(resource any) *Program) *Program {
	return Suspended(func(y Yielder) (any, error) {
		resource, err := y.YieldProgram(acquire)
		if err != nil {
			return nil, err
		}
		value, useErr := y.YieldProgram(use(resource))
		_, relErr := y.YieldProgram(release(resource))
		if useErr != nil {
			return nil, useErr
		}
		if relErr != nil {
			return nil, relErr
		}
		return value, nil
	})
}
