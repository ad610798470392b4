// Package runtime drives the background execution contexts: the timer
// heap that fires deferred mutations and the workers supervising it. It
// orchestrates, it holds no domain rules.
package runtime

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// fireEvent is one pending fire-once timer. The closure owns everything
// it needs (captured ids and bodies, never live references into
// request-local state) and applies its mutation through the same locked
// store APIs used by synchronous requests.
type fireEvent struct {
	at  time.Time
	run func(ctx context.Context)
}

type fireQueue []fireEvent

func (q fireQueue) Len() int           { return len(q) }
func (q fireQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q fireQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *fireQueue) Push(x any)        { *q = append(*q, x.(fireEvent)) }
func (q *fireQueue) Pop() any {
	old := *q
	n := len(old)
	evt := old[n-1]
	*q = old[:n-1]
	return evt
}

// TimerHeap owns a min-heap of pending fire events drained by a single
// worker goroutine. Timers are fire-once: an event is removed when it
// fires and cancellation is not supported.
type TimerHeap struct {
	mu    sync.Mutex
	queue fireQueue
	wake  chan struct{}
	log   *slog.Logger
}

func NewTimerHeap(log *slog.Logger) *TimerHeap {
	return &TimerHeap{
		wake: make(chan struct{}, 1),
		log:  log,
	}
}

// Schedule enqueues run to fire at the given instant and wakes the
// worker so a nearer deadline takes effect immediately.
func (t *TimerHeap) Schedule(at time.Time, run func(ctx context.Context)) {
	t.mu.Lock()
	heap.Push(&t.queue, fireEvent{at: at, run: run})
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of events not yet fired.
func (t *TimerHeap) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Run drains the heap until the context is cancelled. Due events run on
// this goroutine, outside the heap lock; they only contend on the store
// locks they mutate through, so fire events for different channels never
// wait on each other's timers.
func (t *TimerHeap) Run(ctx context.Context) error {
	for {
		t.mu.Lock()
		if len(t.queue) == 0 {
			t.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.wake:
			}
			continue
		}

		wait := time.Until(t.queue[0].at)
		if wait <= 0 {
			evt := heap.Pop(&t.queue).(fireEvent)
			t.mu.Unlock()
			evt.run(ctx)
			continue
		}
		t.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-t.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
