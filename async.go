// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AsyncAction is external async I/O a Program escapes to via
// AsyncEscape. ctx is cancelled if the driving run is cancelled.
type AsyncAction func(ctx context.Context) (any, error)

// storeKeyEscapeService is the reserved Store key both drivers install
// their escape-service function under. A nested continuation run
// (Resume, ResumeContinuation, a scheduled task's advanceUntil turn)
// looks the service up from whatever Store it is carrying rather than
// needing it threaded through as an extra parameter everywhere.
const storeKeyEscapeService = "cesk.async.escapeService"

type escapeServiceFunc func(AsyncAction) (any, error)

func installEscapeService(store Store, svc escapeServiceFunc) Store {
	return store.With(storeKeyEscapeService, svc)
}

func escapeServiceOf(store Store) escapeServiceFunc {
	v, ok := store.Get(storeKeyEscapeService)
	if !ok {
		return nil
	}
	svc, _ := v.(escapeServiceFunc)
	return svc
}

// defaultExecutorWeight bounds the number of AsyncActions SyncRun allows
// to run concurrently in the background, mirroring a thread pool sized
// at 4 workers.
const defaultExecutorWeight = 4

// backgroundExecutor runs AsyncActions for the synchronous driver, which
// has no event loop of its own to await them on directly: it runs each
// escaped action on the calling goroutine once a slot of a weighted
// semaphore is free, so at most defaultExecutorWeight actions run at
// once across all callers.
type backgroundExecutor struct {
	ctx context.Context
	sem *semaphore.Weighted
}

func newBackgroundExecutor(ctx context.Context) *backgroundExecutor {
	return &backgroundExecutor{ctx: ctx, sem: semaphore.NewWeighted(defaultExecutorWeight)}
}

// run waits for a semaphore slot, then executes action on the calling
// goroutine and returns its result.
func (e *backgroundExecutor) run(action AsyncAction) (any, error) {
	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)
	return action(e.ctx)
}

func (e *backgroundExecutor) asEscapeService() escapeServiceFunc {
	return e.run
}

// AwaitAll runs actions concurrently and collects their results in
// order, for host code that wants to resolve a batch of AsyncActions
// directly rather than one at a time through AsyncEscape. The first
// action to fail cancels the rest via the shared group context.
func AwaitAll(ctx context.Context, actions []AsyncAction) ([]any, error) {
	results := make([]any, len(actions))
	g, gctx := errgroup.WithContext(ctx)
	for i, action := range actions {
		i, action := i, action
		g.Go(func() error {
			v, err := action(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
