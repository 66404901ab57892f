package cache

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time           { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "again")
	v, _ = c.Get("a")
	assert.Equal(t, "again", v)
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
}

func TestLRUCache_ExpiryIsSlidingAndCleaned(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("kept", "x")
	c.Set("dropped", "y")

	clock.advance(45 * time.Second)
	_, ok := c.Get("kept")
	require.True(t, ok)

	clock.advance(30 * time.Second)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, []string{"dropped"}, evicted)

	_, ok = c.Get("kept")
	assert.True(t, ok, "get refreshed the expiry")
}

func TestLRUCache_GetOrCreate(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	calls := 0
	create := func() string {
		calls++
		return "fresh"
	}

	v, existed := c.GetOrCreate("k", create)
	assert.False(t, existed)
	assert.Equal(t, "fresh", v)

	v, existed = c.GetOrCreate("k", create)
	assert.True(t, existed)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)

	clock.advance(2 * time.Minute)
	_, existed = c.GetOrCreate("k", create)
	assert.False(t, existed, "expired entry is rebuilt")
	assert.Equal(t, 2, calls)
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	c.Set("a", "1")
	clock.advance(2 * time.Minute)

	m := NewManager(slog.Default())
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
