package rendezvous

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// the shared log file's rotation goroutine lives for the whole process
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
		goleak.IgnoreAnyFunction("gopkg.in/natefinch/lumberjack.v2.(*Logger).millRun"),
	)
}

func TestAwaitResolved(t *testing.T) {
	ch := New("feedback", false)
	ch.Open()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.Resolve(true)
	}()

	v, outcome := ch.Await(context.Background(), time.Second)

	assert.True(t, v)
	assert.Equal(t, Resolved, outcome)
	assert.False(t, ch.Pending())
}

func TestAwaitTimeoutReturnsSentinel(t *testing.T) {
	ch := New("vision", []byte("none"))
	ch.Open()

	start := time.Now()
	v, outcome := ch.Await(context.Background(), 30*time.Millisecond)

	assert.Equal(t, []byte("none"), v)
	assert.Equal(t, TimedOut, outcome)
	assert.True(t, time.Since(start) >= 30*time.Millisecond)
	assert.False(t, ch.Resolve([]byte("late")), "resolving after timeout is a no-op")
}

func TestAwaitCanceled(t *testing.T) {
	ch := New("feedback", 0)
	ch.Open()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, outcome := ch.Await(ctx, time.Second)
	assert.Equal(t, 0, v)
	assert.Equal(t, Canceled, outcome)
}

func TestAwaitNotOpen(t *testing.T) {
	ch := New("feedback", "none")

	v, outcome := ch.Await(context.Background(), time.Second)
	assert.Equal(t, "none", v)
	assert.Equal(t, NotOpen, outcome)
}

func TestResolveIsOneShot(t *testing.T) {
	ch := New("feedback", 0)

	assert.False(t, ch.Resolve(1), "no slot open")

	ch.Open()
	assert.True(t, ch.Pending())
	assert.True(t, ch.Resolve(1))
	assert.False(t, ch.Resolve(2), "already resolved")

	v, outcome := ch.Await(context.Background(), time.Second)
	assert.Equal(t, 1, v)
	assert.Equal(t, Resolved, outcome)
}

func TestResolveToken(t *testing.T) {
	ch := New("feedback", 0)
	id := ch.Open()

	assert.False(t, ch.ResolveToken("stale-token", 5))
	assert.True(t, ch.ResolveToken(id, 7))

	v, _ := ch.Await(context.Background(), time.Second)
	assert.Equal(t, 7, v)
}

func TestOpenReplacesStaleSlot(t *testing.T) {
	ch := New("feedback", 0)
	first := ch.Open()
	second := ch.Open()

	assert.NotEqual(t, first, second)
	assert.False(t, ch.ResolveToken(first, 1))
	assert.True(t, ch.Resolve(2))

	v, outcome := ch.Await(context.Background(), time.Second)
	assert.Equal(t, 2, v)
	assert.Equal(t, Resolved, outcome)
}

func TestConcurrentResolversOnlyOneWins(t *testing.T) {
	ch := New("feedback", -1)
	ch.Open()

	var wg sync.WaitGroup
	wins := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if ch.Resolve(n) {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for n := range wins {
		winners = append(winners, n)
	}
	v, outcome := ch.Await(context.Background(), time.Second)

	assert.Len(t, winners, 1)
	assert.Equal(t, winners[0], v)
	assert.Equal(t, Resolved, outcome)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "canceled", Canceled.String())
	assert.Equal(t, "not_open", NotOpen.String())
}
