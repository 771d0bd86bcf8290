package repo

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/shared/db"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// setupTestDB sobe um Postgres em container e aplica as migrações.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	conn, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn))
	// idempotente
	require.NoError(t, db.Migrate(ctx, conn))
	return conn
}

var (
	program   = escrow.Pubkey{0xAA, 0x01}
	authority = escrow.Pubkey{0xA0}
	alice     = escrow.Pubkey{0x01}
	bob       = escrow.Pubkey{0x02}
	carol     = escrow.Pubkey{0x03}
)

func TestPostgres_Scenario(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgres(conn)
	engine := escrow.NewEngine(store, escrow.NewProgramLocator(program))

	for _, u := range []escrow.Pubkey{alice, bob, carol} {
		_, err := engine.InitializeVault(ctx, u)
		require.NoError(t, err)
		_, err = engine.Deposit(ctx, u, 100)
		require.NoError(t, err)
	}
	_, err := engine.InitializeVault(ctx, alice)
	require.Equal(t, escrow.CodeDuplicateVault, escrow.CodeOf(err))

	_, err = engine.CreateRace(ctx, "race_1", 1, 30, authority)
	require.NoError(t, err)
	_, err = engine.CreateRace(ctx, "race_1", 1, 30, authority)
	require.Equal(t, escrow.CodeDuplicateRace, escrow.CodeOf(err))

	_, _, err = engine.PlaceBet(ctx, "race_1", 1, 40, alice)
	require.NoError(t, err)
	_, _, err = engine.PlaceBet(ctx, "race_1", 2, 30, bob)
	require.NoError(t, err)
	_, _, err = engine.PlaceBet(ctx, "race_1", 3, 30, carol)
	require.NoError(t, err)
	_, _, err = engine.PlaceBet(ctx, "race_1", 3, 30, carol)
	require.Equal(t, escrow.CodeUserAlreadyBet, escrow.CodeOf(err))

	_, err = engine.StartRace(ctx, "race_1", authority)
	require.NoError(t, err)
	r, err := engine.FinishRace(ctx, "race_1", 1, 7, authority)
	require.NoError(t, err)
	require.Equal(t, uint64(100), r.TotalPot)

	win, err := engine.ClaimWinnings(ctx, "race_1", alice)
	require.NoError(t, err)
	require.Equal(t, uint64(34), win.Payout)
	require.Equal(t, int64(-6), win.Profit)

	_, err = engine.ClaimWinnings(ctx, "race_1", bob)
	require.NoError(t, err)
	rb, err := engine.ClaimRakeback(ctx, "race_1", bob)
	require.NoError(t, err)
	require.Equal(t, uint64(2), rb.Rakeback)
	_, err = engine.ClaimRakeback(ctx, "race_1", bob)
	require.Equal(t, escrow.CodeBetNotLost, escrow.CodeOf(err))

	v, err := engine.Vault(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(94), v.Balance)
	require.Equal(t, uint64(100), v.TotalDeposited)

	bal, err := engine.EscrowBalance(ctx, "race_1")
	require.NoError(t, err)
	require.Equal(t, uint64(100-34-2), bal)

	p, err := engine.Profile(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, p.ActiveBets)
	require.Equal(t, uint64(34), p.TotalWon)

	p, err = engine.Profile(ctx, carol)
	require.NoError(t, err)
	require.True(t, p.HasActiveBet("race_1"))

	require.NoError(t, store.View(ctx, func(tx escrow.Tx) error {
		bets, err := tx.Bets("race_1")
		require.NoError(t, err)
		require.Len(t, bets, 3)
		return nil
	}))

	finished, err := engine.Race(ctx, "race_1")
	require.NoError(t, err)
	require.Equal(t, escrow.RaceCompleted, finished.Status)
	require.Equal(t, escrow.OutcomeID(1), *finished.Winner)
}

func TestPostgres_OutboxLifecycle(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgres(conn)
	engine := escrow.NewEngine(store, escrow.NewProgramLocator(program))

	_, err := engine.CreateRace(ctx, "r", 1, 30, authority)
	require.NoError(t, err)
	_, err = engine.BeginCountdown(ctx, "r", authority)
	require.NoError(t, err)
	// rejeitada: não grava notificação
	_, err = engine.StartRace(ctx, "r", alice)
	require.Error(t, err)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, events.TypeRaceCreated, pending[0].Envelope.Type)
	require.Equal(t, events.TypeRaceCountdown, pending[1].Envelope.Type)
	require.Equal(t, "r", pending[0].Envelope.RaceID)

	ev, err := pending[0].Envelope.Decode()
	require.NoError(t, err)
	require.Equal(t, authority.String(), ev.(*events.RaceCreated).Authority)

	require.NoError(t, store.MarkPublished(ctx, pending[0].Seq))
	require.NoError(t, store.MarkFailed(ctx, pending[1].Seq, "broker down", false))

	pending, err = store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, store.MarkFailed(ctx, pending[0].Seq, "broker down", true))
	pending, err = store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestPostgres_ConcurrentWriteConflicts(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgres(conn)
	addr := escrow.Address{0x42}

	require.NoError(t, store.Update(ctx, func(tx escrow.Tx) error {
		return tx.PutRace(addr, &escrow.Race{ID: "r", Status: escrow.RaceWaiting, Authority: authority})
	}))

	err := store.Update(ctx, func(tx escrow.Tx) error {
		r, err := tx.Race(addr)
		if err != nil {
			return err
		}

		require.NoError(t, store.Update(ctx, func(other escrow.Tx) error {
			r2, err := other.Race(addr)
			if err != nil {
				return err
			}
			r2.TotalPot = 7
			return other.PutRace(addr, r2)
		}))

		r.TotalPot = 99
		return tx.PutRace(addr, r)
	})
	require.ErrorIs(t, err, escrow.ErrWriteConflict)

	require.NoError(t, store.View(ctx, func(tx escrow.Tx) error {
		r, err := tx.Race(addr)
		require.NoError(t, err)
		require.Equal(t, uint64(7), r.TotalPot)
		return nil
	}))
}

func TestPostgres_DebitNeverGoesNegative(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgres(conn)
	addr := escrow.Address{0x43}

	require.NoError(t, store.Update(ctx, func(tx escrow.Tx) error {
		return tx.Credit(addr, 10)
	}))
	err := store.Update(ctx, func(tx escrow.Tx) error {
		return tx.Debit(addr, 11)
	})
	require.ErrorIs(t, err, escrow.ErrInsufficientFunds)

	require.NoError(t, store.Update(ctx, func(tx escrow.Tx) error {
		return tx.Debit(addr, 10)
	}))
	require.NoError(t, store.View(ctx, func(tx escrow.Tx) error {
		bal, err := tx.Balance(addr)
		require.NoError(t, err)
		require.Zero(t, bal)
		return nil
	}))
}

func TestPostgres_CreditWrapsLikePot(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgres(conn)
	addr := escrow.Address{0x44}

	require.NoError(t, store.Update(ctx, func(tx escrow.Tx) error {
		return tx.Credit(addr, math.MaxUint64)
	}))
	require.NoError(t, store.Update(ctx, func(tx escrow.Tx) error {
		return tx.Credit(addr, 2)
	}))
	require.NoError(t, store.View(ctx, func(tx escrow.Tx) error {
		bal, err := tx.Balance(addr)
		require.NoError(t, err)
		require.Equal(t, uint64(1), bal)
		return nil
	}))
}
