package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

func envelope(t *testing.T, e events.Event, ts int64) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(e, time.UnixMilli(ts))
	require.NoError(t, err)
	return env
}

func TestSnapshot_FollowsRace(t *testing.T) {
	var s RaceSnapshot
	steps := []events.Event{
		events.RaceCreated{RaceID: "race_1", Round: 3, Duration: 30},
		events.BetPlaced{RaceID: "race_1", Outcome: 1, Amount: 40, TotalPot: 40},
		events.BetPlaced{RaceID: "race_1", Outcome: 2, Amount: 60, TotalPot: 100},
		events.RaceCountdown{RaceID: "race_1", TotalPot: 100},
		events.RaceStarted{RaceID: "race_1", StartTime: 10, EndTime: 40, TotalPot: 100},
		events.RaceFinished{RaceID: "race_1", Winner: 1, Seed: 9, TotalPot: 100, TotalBets: 2},
		events.WinningsClaimed{RaceID: "race_1", Amount: 40, Payout: 34, Profit: -6},
		events.BetLost{RaceID: "race_1", Outcome: 2, Winner: 1, Amount: 60},
		events.RakebackClaimed{RaceID: "race_1", Amount: 2, TotalPot: 100},
	}
	for i, e := range steps {
		ok, err := s.Apply(envelope(t, e, int64(1000+i)))
		require.NoError(t, err)
		require.True(t, ok, e.EventType())
	}

	assert.Equal(t, "race_1", s.RaceID)
	assert.Equal(t, uint64(3), s.Round)
	assert.Equal(t, string(escrow.RaceCompleted), s.Status)
	require.NotNil(t, s.Winner)
	assert.Equal(t, uint8(1), *s.Winner)
	assert.Equal(t, uint64(100), s.TotalPot)
	assert.Equal(t, uint32(2), s.TotalBets)
	assert.Equal(t, uint64(34), s.PaidOut)
	assert.Equal(t, uint64(2), s.RakebackOut)
	assert.Equal(t, uint32(2), s.Claims)
	assert.Equal(t, events.TypeRakebackClaimed, s.LastEvent)
}

func TestSnapshot_IgnoresStaleAndForeign(t *testing.T) {
	var s RaceSnapshot
	ok, err := s.Apply(envelope(t, events.RaceStarted{RaceID: "race_1", TotalPot: 5}, 2000))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(envelope(t, events.RaceCreated{RaceID: "race_1"}, 1000))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, string(escrow.RaceRacing), s.Status)

	ok, err = s.Apply(envelope(t, events.Deposited{User: "u", Amount: 1}, 3000))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Apply(events.Envelope{Type: "bogus", RaceID: "race_1", TsUnixMs: 4000})
	assert.Error(t, err)
}

func TestSnapshot_SkipsRedelivery(t *testing.T) {
	var s RaceSnapshot
	claim := envelope(t, events.WinningsClaimed{RaceID: "race_1", Amount: 40, Payout: 34}, 1000)

	ok, err := s.Apply(claim)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, s.Seen(claim.ID))

	ok, err = s.Apply(claim)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(34), s.PaidOut)
	assert.Equal(t, uint32(1), s.Claims)
}

func TestSnapshot_AppliedIDsAreBounded(t *testing.T) {
	var s RaceSnapshot
	first := envelope(t, events.BetLost{RaceID: "race_1", Amount: 1}, 1)
	_, err := s.Apply(first)
	require.NoError(t, err)
	for i := 0; i < maxAppliedIDs; i++ {
		_, err := s.Apply(envelope(t, events.BetLost{RaceID: "race_1", Amount: 1}, int64(2+i)))
		require.NoError(t, err)
	}

	assert.Len(t, s.AppliedIDs, maxAppliedIDs)
	assert.False(t, s.Seen(first.ID))
	assert.Equal(t, uint32(maxAppliedIDs+1), s.Claims)
}

func TestSnapshot_CountersSurviveOutOfOrderTimestamps(t *testing.T) {
	var s RaceSnapshot
	ok, err := s.Apply(envelope(t, events.BetLost{RaceID: "race_1", Outcome: 2, Winner: 1, Amount: 60}, 1001))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(envelope(t, events.RakebackClaimed{RaceID: "race_1", Amount: 2, TotalPot: 100}, 1000))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, uint64(2), s.RakebackOut)
	assert.Equal(t, uint32(1), s.Claims)
	assert.Equal(t, events.TypeBetLost, s.LastEvent)
	assert.Equal(t, int64(1001), s.UpdatedAtMs)
}

func TestSnapshot_LateBetCountsWithoutRewindingPot(t *testing.T) {
	var s RaceSnapshot
	ok, err := s.Apply(envelope(t, events.BetPlaced{RaceID: "race_1", Outcome: 2, Amount: 60, TotalPot: 100}, 2000))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(envelope(t, events.BetPlaced{RaceID: "race_1", Outcome: 1, Amount: 40, TotalPot: 40}, 1000))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, uint32(2), s.TotalBets)
	assert.Equal(t, uint64(100), s.TotalPot)
	assert.Equal(t, int64(2000), s.StateAtMs)
}
