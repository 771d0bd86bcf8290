package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/racers-escrow/internal/shared/cache/cachetest"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

type snapshot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestRaceCache_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(cachetest.Redis(t), time.Minute)

	var got snapshot
	ok, gen, err := c.GetRace(ctx, "race_1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, gen)

	require.NoError(t, c.SetRace(ctx, "race_1", gen, snapshot{ID: "race_1", Status: "WAITING"}))
	require.NoError(t, c.SetSummary(ctx, "race_1", gen, snapshot{ID: "race_1", Status: "WAITING"}))

	ok, _, err = c.GetRace(ctx, "race_1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "WAITING", got.Status)

	// notificação de outra entidade não invalida
	require.NoError(t, c.Notify(ctx, events.Envelope{Type: events.TypeDeposited}))
	ok, _, _ = c.GetSummary(ctx, "race_1", &got)
	assert.True(t, ok)

	require.NoError(t, c.Notify(ctx, events.Envelope{Type: events.TypeRaceStarted, RaceID: "race_1"}))
	ok, gen, err = c.GetRace(ctx, "race_1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
	ok, _, err = c.GetSummary(ctx, "race_1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRaceCache_SetAfterInvalidationIsDropped(t *testing.T) {
	ctx := context.Background()
	c := New(cachetest.Redis(t), time.Minute)

	var got snapshot
	ok, gen, err := c.GetSummary(ctx, "race_1", &got)
	require.NoError(t, err)
	require.False(t, ok)

	// a corrida muda entre a leitura no banco e a escrita no cache
	require.NoError(t, c.Notify(ctx, events.Envelope{Type: events.TypeRaceStarted, RaceID: "race_1"}))
	require.NoError(t, c.SetSummary(ctx, "race_1", gen, snapshot{ID: "race_1", Status: "WAITING"}))

	ok, gen, err = c.GetSummary(ctx, "race_1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetSummary(ctx, "race_1", gen, snapshot{ID: "race_1", Status: "RACING"}))
	ok, _, err = c.GetSummary(ctx, "race_1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "RACING", got.Status)
}
