package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/racers-escrow/internal/race-feed/dto"
	"github.com/radieske/racers-escrow/internal/shared/cache/cachetest"
)

func TestFeedCache_SetGetRecent(t *testing.T) {
	ctx := context.Background()
	rdb := cachetest.Redis(t)
	c := NewFeedCache(rdb, time.Minute)

	_, ok, err := c.Get(ctx, "race_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, &dto.RaceSnapshot{RaceID: "race_1", TotalPot: 10, UpdatedAtMs: 1000}))
	require.NoError(t, c.Set(ctx, &dto.RaceSnapshot{RaceID: "race_2", TotalPot: 20, UpdatedAtMs: 2000}))
	require.NoError(t, c.Set(ctx, &dto.RaceSnapshot{RaceID: "race_1", TotalPot: 15, UpdatedAtMs: 3000}))

	s, ok, err := c.Get(ctx, "race_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(15), s.TotalPot)

	list, err := c.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "race_1", list[0].RaceID)
	assert.Equal(t, "race_2", list[1].RaceID)

	// snapshot expirado sai do índice
	require.NoError(t, rdb.Del(ctx, key("race_2")).Err())
	list, err = c.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	n, err := rdb.ZCard(ctx, keyIndex).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
