// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import "sync"

// Continuation is a first-class, one-shot delimited continuation
// captured by GetContinuation or built fresh by CreateContinuation.
// Resuming it twice through ResumeContinuation fails with
// OneShotViolationError, enforced by the run's continuation registry
// regardless of which of the two constructors produced it —
// generalizing the teacher package's Affine[R,A]/atomic-CAS one-shot
// guard (affine.go) to a registry keyed by ContID instead of a field
// embedded in the value itself, since a Continuation here can be
// captured, stored, and handed to an entirely different task before it
// is ever resumed.
type Continuation struct {
	ID ContID

	// Fresh continuations (from CreateContinuation) start Program from
	// scratch under Handlers the first and only time they are resumed.
	Fresh   bool
	Program *Program

	// Captured continuations (from GetContinuation) resume by splicing
	// the resume value into Kont, restoring Env.
	Kont *Kontinuation
	Env  *Env

	Handlers []HandlerFunc
}

// storeKeyContinuationRegistry is the reserved Store key holding the
// run's one-shot registry. ContID (ident.go) is only ever distinct
// within a single run, so the registry lives scoped to that run's
// Store rather than as a package-level map that would otherwise grow
// for as long as the host process does.
const storeKeyContinuationRegistry = "cesk.continuation.registry"

// installContinuationRegistry installs a fresh, empty one-shot registry
// into store. Called once by initialState (runner.go) per top-level
// run.
func installContinuationRegistry(store Store) Store {
	return store.With(storeKeyContinuationRegistry, &sync.Map{})
}

func continuationRegistryOf(store Store) *sync.Map {
	v, ok := store.Get(storeKeyContinuationRegistry)
	if !ok {
		panic("cesk: continuation registry missing — Store was not built via initialState")
	}
	return v.(*sync.Map)
}

// markContinuationConsumed reports whether id was not yet consumed
// against store's run, and records it as consumed either way. Safe for
// concurrent use across scheduled tasks.
func markContinuationConsumed(store Store, id ContID) bool {
	_, already := continuationRegistryOf(store).LoadOrStore(id, struct{}{})
	return !already
}
