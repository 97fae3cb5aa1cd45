package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache_SetGetExpire(t *testing.T) {
	c := NewInMemoryCacheWithInterval[string, int](time.Minute, 0)
	defer c.Close()

	clock := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return clock }

	c.Set("a", 1, 0)
	c.Set("b", 2, time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock = clock.Add(2 * time.Second)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should have expired")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())

	c.cleanup()
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Set("c", 3, 0)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache[int, int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(base*1000+j, j, 0)
				c.Get(base*1000 + j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 800, c.Size())
	c.Close()
}
