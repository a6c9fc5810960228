// Package scheduler implements the task scheduler (spec §4.7): SpawnFunc
// hands a function off to run to completion on its own goroutine, Await
// blocks for its result. Grounded on original_source's TaskSystem
// (enqueue/await over a thread pool of std::future<Value>), translated to
// Go's goroutine+channel idiom in place of a future/promise pair.
package scheduler

import (
	"sync"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

type taskResult struct {
	value values.Value
	err   error
}

// TaskSystem implements vm.Scheduler. Concurrency is bounded by a
// worker-count semaphore (the Go analogue of original_source's
// ThreadPool), sized at construction.
type TaskSystem struct {
	mu      sync.Mutex
	nextID  int64
	results map[int64]chan taskResult
	sem     chan struct{}
}

// New creates a TaskSystem that runs at most workers spawned tasks
// concurrently; workers <= 0 is treated as 1.
func New(workers int) *TaskSystem {
	if workers <= 0 {
		workers = 1
	}
	return &TaskSystem{
		nextID:  1,
		results: make(map[int64]chan taskResult),
		sem:     make(chan struct{}, workers),
	}
}

// Spawn implements vm.Scheduler.Spawn: fn runs on its own goroutine, gated
// by the worker semaphore, and its result is buffered for a later Await.
func (t *TaskSystem) Spawn(fn func() (values.Value, error)) int64 {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	ch := make(chan taskResult, 1)
	t.results[id] = ch
	t.mu.Unlock()

	go func() {
		t.sem <- struct{}{}
		defer func() { <-t.sem }()
		v, err := fn()
		ch <- taskResult{value: v, err: err}
	}()

	return id
}

// Await implements vm.Scheduler.Await: blocks until handle's task
// completes, then frees its result slot. Awaiting an unknown or
// already-awaited handle is a TaskError (spec §7: "TaskError — scheduler/
// await failures").
func (t *TaskSystem) Await(handle int64) (values.Value, error) {
	t.mu.Lock()
	ch, ok := t.results[handle]
	t.mu.Unlock()
	if !ok {
		return values.Nil, errs.NewTask(errs.ErrTaskHandleNotFound, "no pending task with handle %d", handle)
	}

	res := <-ch

	t.mu.Lock()
	delete(t.results, handle)
	t.mu.Unlock()

	return res.value, res.err
}
