package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTime struct {
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	return f.now
}

func (f *fakeTime) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFakeTime() *fakeTime {
	return &fakeTime{now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func TestGetSet(t *testing.T) {
	cache := New[string](Options{Time: newFakeTime()})

	_, ok := cache.Get("missing")
	require.False(t, ok)

	cache.Set("a", "1")
	value, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", value)

	cache.Set("a", "2")
	value, ok = cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", value)
	require.Equal(t, Stats{Size: 1}, cache.Stats())
}

func TestTTLBoundary(t *testing.T) {
	clock := newFakeTime()
	cache := New[int](Options{Time: clock})
	require.Equal(t, DefaultTTL, cache.TTL())

	cache.Set("key", 42)

	clock.advance(DefaultTTL - time.Millisecond)
	value, ok := cache.Get("key")
	require.True(t, ok)
	require.Equal(t, 42, value)

	clock.advance(2 * time.Millisecond)
	_, ok = cache.Get("key")
	require.False(t, ok)

	// the expired read evicted the entry
	require.Equal(t, 0, cache.Stats().Size)
}

func TestExactlyTTLIsExpired(t *testing.T) {
	clock := newFakeTime()
	cache := New[int](Options{TTL: time.Second, Time: clock})

	cache.Set("key", 1)
	clock.advance(time.Second)
	_, ok := cache.Get("key")
	require.False(t, ok)
}

func TestSetRefreshesWrittenAt(t *testing.T) {
	clock := newFakeTime()
	cache := New[int](Options{TTL: time.Minute, Time: clock})

	cache.Set("key", 1)
	clock.advance(50 * time.Second)
	cache.Set("key", 2)
	clock.advance(50 * time.Second)

	value, ok := cache.Get("key")
	require.True(t, ok)
	require.Equal(t, 2, value)
}

func TestLazyEviction(t *testing.T) {
	clock := newFakeTime()
	cache := New[int](Options{TTL: time.Minute, Time: clock})

	cache.Set("a", 1)
	cache.Set("b", 2)
	clock.advance(2 * time.Minute)

	// nothing is removed until it is observed
	require.Equal(t, 2, cache.Stats().Size)
	_, ok := cache.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Stats().Size)
}

func TestSweep(t *testing.T) {
	clock := newFakeTime()
	cache := New[int](Options{TTL: time.Minute, Time: clock})

	cache.Set("old-1", 1)
	cache.Set("old-2", 2)
	clock.advance(40 * time.Second)
	cache.Set("fresh", 3)
	clock.advance(30 * time.Second)

	require.Equal(t, 2, cache.Sweep())
	require.Equal(t, 1, cache.Stats().Size)
	_, ok := cache.Get("fresh")
	require.True(t, ok)
}

func TestClear(t *testing.T) {
	cache := New[int](Options{})
	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprint(i), i)
	}
	require.Equal(t, 10, cache.Stats().Size)

	cache.Clear()
	require.Equal(t, 0, cache.Stats().Size)
	_, ok := cache.Get("1")
	require.False(t, ok)
}

func TestMaxEntries(t *testing.T) {
	cache := New[int](Options{MaxEntries: 2, Time: newFakeTime()})

	cache.Set("a", 1)
	cache.Set("b", 2)
	// touch a so b becomes the least recently used
	_, ok := cache.Get("a")
	require.True(t, ok)
	cache.Set("c", 3)

	require.Equal(t, 2, cache.Stats().Size)
	_, ok = cache.Get("b")
	require.False(t, ok)
	_, ok = cache.Get("a")
	require.True(t, ok)
	_, ok = cache.Get("c")
	require.True(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	cache := New[int](Options{})
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d-%d", i, j%10)
				cache.Set(key, j)
				cache.Get(key)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 80, cache.Stats().Size)
}
