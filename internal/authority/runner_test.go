package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/escrow/memory"
)

var (
	authorityKey = escrow.Pubkey{0xA0}
	alice        = escrow.Pubkey{0x01}
)

// fakeClock avança só quando o runner dorme.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	onNap  func(n int)
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.onNap != nil {
		c.onNap(len(c.sleeps))
	}
	return ctx.Err()
}

func newRunner(engine *escrow.Engine, clock *fakeClock) *Runner {
	return &Runner{
		Log:           zap.NewNop(),
		Races:         engine,
		Authority:     authorityKey,
		BettingWindow: 10 * time.Second,
		Countdown:     5 * time.Second,
		Duration:      20 * time.Second,
		Settle:        3 * time.Second,
		Racers:        8,
		Now:           clock.Now,
		Sleep:         clock.Sleep,
		Pick:          func(int) escrow.OutcomeID { return 3 },
		Seed:          func() uint64 { return 42 },
	}
}

func newEngine(clock *fakeClock) *escrow.Engine {
	return escrow.NewEngine(memory.New(), escrow.NewProgramLocator(escrow.Pubkey{0xAA}),
		escrow.WithClock(escrow.ClockFunc(clock.Now)))
}

func TestRunner_RunOnce(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	engine := newEngine(clock)
	_, err := engine.InitializeVault(ctx, alice)
	require.NoError(t, err)
	_, err = engine.Deposit(ctx, alice, 100)
	require.NoError(t, err)

	// aposta durante a janela de Waiting
	clock.onNap = func(n int) {
		if n == 1 {
			_, _, err := engine.PlaceBet(ctx, "race_1700000000", 3, 50, alice)
			require.NoError(t, err)
		}
	}

	r := newRunner(engine, clock)
	race, err := r.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, "race_1700000000", race.ID)
	assert.Equal(t, uint64(1_700_000_000/20), race.Round)
	assert.Equal(t, int64(20), race.Duration)
	assert.Equal(t, escrow.RaceCompleted, race.Status)
	require.NotNil(t, race.Winner)
	assert.Equal(t, escrow.OutcomeID(3), *race.Winner)
	assert.Equal(t, uint64(50), race.TotalPot)
	assert.Equal(t, []time.Duration{10 * time.Second, 5 * time.Second, 20 * time.Second}, clock.sleeps)

	claim, err := engine.ClaimWinnings(ctx, race.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), claim.Payout)
}

func TestRunner_RunContinuesAfterFailure(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	engine := newEngine(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a mesma corrida já existe: o primeiro ciclo falha com DUPLICATE_RACE
	_, err := engine.CreateRace(ctx, "race_1700000000", 0, 20, authorityKey)
	require.NoError(t, err)

	var results []string
	r := newRunner(engine, clock)
	r.OnRace = func(result string) {
		results = append(results, result)
		if len(results) == 2 {
			cancel()
		}
	}

	err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{string(escrow.CodeDuplicateRace), "completed"}, results)
}

func TestPickWinner(t *testing.T) {
	seen := map[escrow.OutcomeID]bool{}
	for i := 0; i < 2000; i++ {
		w := PickWinner(8)
		require.GreaterOrEqual(t, w, escrow.OutcomeID(1))
		require.LessOrEqual(t, w, escrow.OutcomeID(8))
		seen[w] = true
	}
	assert.Len(t, seen, 8)
	assert.Equal(t, escrow.OutcomeID(1), PickWinner(0))
}
