// Copyright 2026 The Cesk Authors. Use of this source code is governed
// by a BSD-style license that can be found in the LICENSE file.

package cesk

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Process-local monotonic counters for continuation and frame identity.
// These never need to be globally unique or sortable, only distinct
// within a single run, so a counter is cheaper than a UUID here.
var (
	contIDCounter  atomic.Uint64
	frameIDCounter atomic.Uint64
)

// ContID identifies a first-class Continuation within a single run.
// The one-shot registry (continuation.go) is keyed by this type.
type ContID uint64

func nextContID() ContID {
	return ContID(contIDCounter.Add(1))
}

// FrameID identifies a single Return frame for traceback bookkeeping.
type FrameID uint64

func nextFrameID() FrameID {
	return FrameID(frameIDCounter.Add(1))
}

// TaskID is a globally unique, time-sortable handle for a scheduler task
// or promise. UUIDv7 keeps handles sortable by creation order even when
// generated concurrently by different goroutines.
type TaskID string

// PromiseID is a globally unique handle for a scheduler-managed promise,
// distinguished from TaskID only by name; promises share the task
// registry internally (see scheduler.go).
type PromiseID string

func newTaskID() TaskID {
	return TaskID(uuid.Must(uuid.NewV7()).String())
}

func newPromiseID() PromiseID {
	return PromiseID(uuid.Must(uuid.NewV7()).String())
}
