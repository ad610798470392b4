package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startHeap(t *testing.T) *TimerHeap {
	t.Helper()
	timers := NewTimerHeap(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = timers.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return timers
}

func TestTimerHeap_FiresInDeadlineOrder(t *testing.T) {
	req := require.New(t)
	timers := startHeap(t)

	var mu sync.Mutex
	var fired []string
	record := func(name string) func(context.Context) {
		return func(context.Context) {
			mu.Lock()
			fired = append(fired, name)
			mu.Unlock()
		}
	}

	now := time.Now()
	// Scheduled out of order on purpose.
	timers.Schedule(now.Add(300*time.Millisecond), record("third"))
	timers.Schedule(now.Add(100*time.Millisecond), record("first"))
	timers.Schedule(now.Add(200*time.Millisecond), record("second"))

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 3
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	req.Equal([]string{"first", "second", "third"}, fired)
	req.Zero(timers.Pending())
}

func TestTimerHeap_WakesForNearerDeadline(t *testing.T) {
	req := require.New(t)
	timers := startHeap(t)

	fired := make(chan string, 2)
	timers.Schedule(time.Now().Add(30*time.Second), func(context.Context) { fired <- "far" })
	// The worker is already sleeping towards the far deadline; a nearer
	// one must preempt it.
	timers.Schedule(time.Now().Add(100*time.Millisecond), func(context.Context) { fired <- "near" })

	select {
	case name := <-fired:
		req.Equal("near", name)
	case <-time.After(3 * time.Second):
		t.Fatal("near deadline never fired")
	}
	req.Equal(1, timers.Pending())
}

func TestTimerHeap_EventsAreFireOnce(t *testing.T) {
	req := require.New(t)
	timers := startHeap(t)

	count := 0
	var mu sync.Mutex
	timers.Schedule(time.Now().Add(50*time.Millisecond), func(context.Context) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	req.Equal(1, count)
	req.Zero(timers.Pending())
}
