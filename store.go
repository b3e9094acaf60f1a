// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

// Store is the mutable-state component of the machine, represented as an
// immutable, copy-on-write value. With and Delete always return a new
// Store; no handler is ever given a reference it can write through
// in place. This is deliberate: the source interpreter this model is
// drawn from sometimes mutates its store dict directly, which produces
// aliasing bugs across task snapshots (see SPEC_FULL.md §9); store-passing
// style rules that class of bug out structurally.
//
// Two reserved keys are explicitly documented exceptions, each installed
// once and mutated in place thereafter: the scheduler's task registry,
// touched only from within scheduler.go (matching the spec's own
// carve-out that scheduler-reserved keys are "mutated only inside the
// scheduler handler."), and the one-shot continuation registry, touched
// only from within continuation.go.
type Store struct {
	m map[string]any
}

// EmptyStore is the store with no entries.
var EmptyStore = Store{}

// Get looks up key in s.
func (s Store) Get(key string) (any, bool) {
	if s.m == nil {
		return nil, false
	}
	v, ok := s.m[key]
	return v, ok
}

// With returns a new Store equal to s with key bound to value.
func (s Store) With(key string, value any) Store {
	m := make(map[string]any, len(s.m)+1)
	for k, v := range s.m {
		m[k] = v
	}
	m[key] = value
	return Store{m: m}
}

// Delete returns a new Store equal to s with key removed.
func (s Store) Delete(key string) Store {
	if _, ok := s.m[key]; !ok {
		return s
	}
	m := make(map[string]any, len(s.m))
	for k, v := range s.m {
		if k != key {
			m[k] = v
		}
	}
	return Store{m: m}
}

// Len reports the number of bindings in s.
func (s Store) Len() int { return len(s.m) }
