package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTLMap_Compute(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewTTLMap[int](time.Minute, WithClock[int](clock.Now))

	incr := func(v int, exp time.Time, found bool) (int, time.Time) {
		if !found {
			return 1, clock.Now().Add(10 * time.Second)
		}
		return v + 1, exp
	}

	assert.Equal(t, 1, m.Compute("k", incr))
	assert.Equal(t, 2, m.Compute("k", incr))

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, m.Compute("k", incr), "expired entry restarts")
}

func TestTTLMap_ComputeDefaultsToMapTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewTTLMap[int](time.Minute, WithClock[int](clock.Now))

	m.Compute("k", func(int, time.Time, bool) (int, time.Time) { return 7, time.Time{} })
	clock.Advance(59 * time.Second)
	assert.Equal(t, 0, m.Sweep())

	var seen int
	var found bool
	m.Compute("k", func(v int, exp time.Time, ok bool) (int, time.Time) {
		seen, found = v, ok
		return v, exp
	})
	assert.True(t, found)
	assert.Equal(t, 7, seen)
}

func TestTTLMap_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewTTLMap[int](time.Second, WithClock[int](clock.Now))
	put := func(v int) func(int, time.Time, bool) (int, time.Time) {
		return func(int, time.Time, bool) (int, time.Time) { return v, time.Time{} }
	}

	m.Compute("a", put(1))
	m.Compute("b", put(2))
	clock.Advance(2 * time.Second)
	m.Compute("c", put(3))

	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 0, m.Sweep())
}

func TestTTLMap_ConcurrentCompute(t *testing.T) {
	m := NewTTLMap[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Compute("k", func(v int, exp time.Time, _ bool) (int, time.Time) { return v + 1, exp })
		}()
	}
	wg.Wait()

	assert.Equal(t, 51, m.Compute("k", func(v int, exp time.Time, _ bool) (int, time.Time) { return v + 1, exp }))
}
