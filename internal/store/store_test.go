package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contract runs the behaviour every Store implementation must share.
// advance may be nil when the backend's clock cannot be controlled.
func contract(t *testing.T, newStore func(t *testing.T) Store, advance func(d time.Duration)) {
	ctx := context.Background()

	t.Run("strings", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "k", "v"))
		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", v)

		exists, err := s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, s.Del(ctx, "k"))
		exists, err = s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("incr", func(t *testing.T) {
		s := newStore(t)
		n, err := s.Incr(ctx, "news.count")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = s.Incr(ctx, "news.count")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("setnx", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.SetNX(ctx, "url:http://a", "1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetNX(ctx, "url:http://a", "2", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)

		v, _, err := s.Get(ctx, "url:http://a")
		require.NoError(t, err)
		assert.Equal(t, "1", v)

		ttl, err := s.TTL(ctx, "url:http://a")
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("ttl of plain key is zero", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "plain", "x"))
		ttl, err := s.TTL(ctx, "plain")
		require.NoError(t, err)
		assert.Zero(t, ttl)

		ttl, err = s.TTL(ctx, "absent")
		require.NoError(t, err)
		assert.Zero(t, ttl)
	})

	if advance != nil {
		t.Run("expiry", func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.SetEX(ctx, "limit", "1", time.Minute))
			ok, err := s.SetNX(ctx, "guard", "1", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			advance(time.Minute + time.Second)

			_, found, err := s.Get(ctx, "limit")
			require.NoError(t, err)
			assert.False(t, found)

			ok, err = s.SetNX(ctx, "guard", "2", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "expired guard must be claimable again")
		})
	}

	t.Run("hashes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.HSet(ctx, "news:1", map[string]string{"title": "hello", "up": "0"}))

		v, ok, err := s.HGet(ctx, "news:1", "title")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello", v)

		_, ok, err = s.HGet(ctx, "news:1", "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := s.HIncrBy(ctx, "news:1", "up", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		n, err = s.HIncrBy(ctx, "news:1", "comments", -1)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)

		all, err := s.HGetAll(ctx, "news:1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"title": "hello", "up": "3", "comments": "-1"}, all)

		all, err = s.HGetAll(ctx, "news:404")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("sorted sets", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ZAdd(ctx, "news.top", "1", 5))
		require.NoError(t, s.ZAdd(ctx, "news.top", "2", 9))
		require.NoError(t, s.ZAdd(ctx, "news.top", "3", 1))
		require.NoError(t, s.ZAdd(ctx, "news.top", "1", 7))

		n, err := s.ZCard(ctx, "news.top")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		asc, err := s.ZRange(ctx, "news.top", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "1", "2"}, asc)

		desc, err := s.ZRevRange(ctx, "news.top", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "1"}, desc)

		withScores, err := s.ZRevRangeWithScores(ctx, "news.top", 1, -1)
		require.NoError(t, err)
		assert.Equal(t, []Member{{Member: "1", Score: 7}, {Member: "3", Score: 1}}, withScores)

		empty, err := s.ZRevRange(ctx, "news.top", 10, 20)
		require.NoError(t, err)
		assert.Empty(t, empty)

		sc, ok, err := s.ZScore(ctx, "news.top", "2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 9.0, sc)

		require.NoError(t, s.ZRem(ctx, "news.top", "2", "missing"))
		_, ok, err = s.ZScore(ctx, "news.top", "2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zadd exclusive", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.ZAddExclusive(ctx, "news.up:1", []string{"news.down:1"}, "7", 100)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ZAddExclusive(ctx, "news.up:1", []string{"news.down:1"}, "7", 200)
		require.NoError(t, err)
		assert.False(t, ok, "same set")

		ok, err = s.ZAddExclusive(ctx, "news.down:1", []string{"news.up:1"}, "7", 300)
		require.NoError(t, err)
		assert.False(t, ok, "opposite set")

		sc, _, err := s.ZScore(ctx, "news.up:1", "7")
		require.NoError(t, err)
		assert.Equal(t, 100.0, sc)
	})

	t.Run("zadd exclusive concurrent", func(t *testing.T) {
		s := newStore(t)
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key, other := "news.up:9", "news.down:9"
				if i%2 == 1 {
					key, other = other, key
				}
				ok, err := s.ZAddExclusive(ctx, key, []string{other}, "42", float64(i))
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		up, err := s.ZCard(ctx, "news.up:9")
		require.NoError(t, err)
		down, err := s.ZCard(ctx, "news.down:9")
		require.NoError(t, err)
		assert.Equal(t, int64(1), up+down)
	})

	t.Run("del if equals", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.SetNX(ctx, "url:http://a", "7", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		deleted, err := s.DelIfEquals(ctx, "url:http://a", "3")
		require.NoError(t, err)
		assert.False(t, deleted, "value held by another owner")
		v, found, err := s.Get(ctx, "url:http://a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "7", v)

		deleted, err = s.DelIfEquals(ctx, "url:http://a", "7")
		require.NoError(t, err)
		assert.True(t, deleted)
		_, found, err = s.Get(ctx, "url:http://a")
		require.NoError(t, err)
		assert.False(t, found)

		deleted, err = s.DelIfEquals(ctx, "url:http://a", "7")
		require.NoError(t, err)
		assert.False(t, deleted, "missing key")
	})

	t.Run("del removes every kind", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.HSet(ctx, "a", map[string]string{"f": "1"}))
		require.NoError(t, s.ZAdd(ctx, "b", "m", 1))
		require.NoError(t, s.Del(ctx, "a", "b"))
		for _, k := range []string{"a", "b"} {
			ok, err := s.Exists(ctx, k)
			require.NoError(t, err)
			assert.False(t, ok, k)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	var clock *clockwork.FakeClock
	contract(t, func(t *testing.T) Store {
		clock = clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		return NewMemoryStore(clock)
	}, func(d time.Duration) { clock.Advance(d) })
}

func TestRangeBounds(t *testing.T) {
	tests := []struct {
		start, stop, n int64
		lo, hi         int64
		ok             bool
	}{
		{0, -1, 5, 0, 5, true},
		{1, 2, 5, 1, 3, true},
		{-2, -1, 5, 3, 5, true},
		{3, 100, 5, 3, 5, true},
		{5, 10, 5, 0, 0, false},
		{0, -1, 0, 0, 0, false},
		{-100, 0, 5, 0, 1, true},
		{3, 1, 5, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.start, tt.stop, tt.n), func(t *testing.T) {
			lo, hi, ok := rangeBounds(tt.start, tt.stop, tt.n)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.lo, lo)
				assert.Equal(t, tt.hi, hi)
			}
		})
	}
}
