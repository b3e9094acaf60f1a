// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Env is an immutable reader-style environment: a persistent chain of
// key/value scopes. With extends a scope without touching the receiver,
// so a captured *Env remains valid no matter what happens to the chain
// built on top of it afterward.
type Env struct {
	parent *Env
	key    string
	value  any
	bound  bool
}

// EmptyEnv is the environment with no bindings.
var EmptyEnv = &Env{}

// With returns a new Env extending e with key bound to value. e itself
// is never mutated.
func (e *Env) With(key string, value any) *Env {
	return &Env{parent: e, key: key, value: value, bound: true}
}

// Lookup walks the scope chain from innermost to outermost, returning
// the nearest binding for key.
func (e *Env) Lookup(key string) (any, bool) {
	for n := e; n != nil; n = n.parent {
		if n.bound && n.key == key {
			return n.value, true
		}
	}
	return nil, false
}

// Get behaves like Lookup but reports a MissingEnvKeyError instead of a
// boolean, for call sites that want to propagate the failure as a
// machine-level error.
func (e *Env) Get(key string) (any, error) {
	if v, ok := e.Lookup(key); ok {
		return v, nil
	}
	return nil, &MissingEnvKeyError{Key: key}
}
