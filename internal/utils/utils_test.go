package utils

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c, err := NewCache[string](2, time.Minute, clock)
	require.NoError(t, err)

	c.Set("1", "alice")
	v, ok := c.Get("1")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("1")
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	c, err := NewCache[int](2, time.Hour, clockwork.NewFakeClock())
	require.NoError(t, err)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestStringToInt64(t *testing.T) {
	assert.Equal(t, int64(42), StringToInt64("42", 0))
	assert.Equal(t, int64(-1), StringToInt64("x", -1))
}

func TestTimeAgo(t *testing.T) {
	now := int64(100000)
	assert.Equal(t, "now", TimeAgo(now, now))
	assert.Equal(t, "30 seconds ago", TimeAgo(now-30, now))
	assert.Equal(t, "1 minute ago", TimeAgo(now-60, now))
	assert.Equal(t, "5 hours ago", TimeAgo(now-5*3600, now))
	assert.Equal(t, "2 days ago", TimeAgo(now-2*86400, now))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
