package emueeprom

import (
	"testing"

	assertion "github.com/stretchr/testify/assert"
)

func TestFixedCacheGetSet(t *testing.T) {
	assert := assertion.New(t)
	c := newFixedCache(16)
	_, ok := c.get(3)
	assert.False(ok)

	c.set(3, 99)
	v, ok := c.get(3)
	assert.True(ok)
	assert.Equal(uint16(99), v)
}

func TestFixedCacheDeferredWrites(t *testing.T) {
	assert := assertion.New(t)
	c := newFixedCache(16)
	assert.False(c.hasDeferred())

	c.setDeferred(1, 10)
	assert.True(c.hasDeferred())
	v, ok := c.get(1)
	assert.True(ok)
	assert.Equal(uint16(10), v)

	c.clearDeferred()
	assert.False(c.hasDeferred())
	// clearing the deferred set does not unset the cached value itself.
	v, ok = c.get(1)
	assert.True(ok)
	assert.Equal(uint16(10), v)
}

func TestFixedCacheResetClearsEverything(t *testing.T) {
	assert := assertion.New(t)
	c := newFixedCache(16)
	c.setDeferred(1, 10)
	c.set(2, 20)
	c.reset()

	_, ok := c.get(1)
	assert.False(ok)
	_, ok = c.get(2)
	assert.False(ok)
	assert.False(c.hasDeferred())
}

func TestFixedCacheForEachSkipsSentinels(t *testing.T) {
	assert := assertion.New(t)
	c := newFixedCache(8)
	c.set(0, 100)
	c.set(5, 200)

	seen := map[uint16]uint16{}
	c.forEach(func(key, value uint16) {
		seen[key] = value
	})
	assert.Equal(map[uint16]uint16{0: 100, 5: 200}, seen)
}

func TestFixedCacheGetOutOfRange(t *testing.T) {
	assert := assertion.New(t)
	c := newFixedCache(4)
	_, ok := c.get(999)
	assert.False(ok)
}
