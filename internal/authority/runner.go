package authority

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
)

// Races são as operações de ciclo de vida assinadas pela autoridade.
type Races interface {
	CreateRace(ctx context.Context, id string, round uint64, duration int64, authority escrow.Pubkey) (*escrow.Race, error)
	BeginCountdown(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error)
	StartRace(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error)
	FinishRace(ctx context.Context, id string, winner escrow.OutcomeID, seed uint64, caller escrow.Pubkey) (*escrow.Race, error)
}

// Runner conduz corridas em sequência como autoridade:
// create -> (BettingWindow) -> countdown -> (Countdown) -> start -> (Duration) -> finish -> (Settle).
type Runner struct {
	Log       *zap.Logger
	Races     Races
	Authority escrow.Pubkey

	BettingWindow time.Duration // apostas abertas em Waiting
	Countdown     time.Duration // apostas ainda abertas em Countdown
	Duration      time.Duration // corrida em andamento
	Settle        time.Duration // intervalo até a próxima corrida
	Racers        int           // corredores numerados de 1 a Racers

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	Pick  func(racers int) escrow.OutcomeID
	Seed  func() uint64

	OnRace func(result string) // métricas: "completed" ou código do erro
}

// Run executa corridas até o contexto ser cancelado. Uma corrida que falha
// é registrada e abandonada; a próxima começa após Settle.
func (r *Runner) Run(ctx context.Context) error {
	for {
		race, err := r.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result := "completed"
		if err != nil {
			result = string(escrow.CodeOf(err))
			r.Log.Warn("race cycle aborted", zap.Error(err))
		} else {
			r.Log.Info("race cycle completed",
				zap.String("race_id", race.ID),
				zap.Uint64("total_pot", race.TotalPot),
				zap.Uint32("total_bets", race.TotalBets),
			)
		}
		if r.OnRace != nil {
			r.OnRace(result)
		}
		if err := r.sleep(ctx, r.Settle); err != nil {
			return err
		}
	}
}

// RunOnce conduz uma corrida completa e devolve o registro final.
func (r *Runner) RunOnce(ctx context.Context) (*escrow.Race, error) {
	now := r.now()
	id := fmt.Sprintf("race_%d", now.Unix())
	seconds := int64(r.Duration / time.Second)
	var round uint64
	if seconds > 0 {
		round = uint64(now.Unix() / seconds)
	}

	if _, err := r.Races.CreateRace(ctx, id, round, seconds, r.Authority); err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}
	if err := r.sleep(ctx, r.BettingWindow); err != nil {
		return nil, err
	}
	if _, err := r.Races.BeginCountdown(ctx, id, r.Authority); err != nil {
		return nil, fmt.Errorf("countdown %s: %w", id, err)
	}
	if err := r.sleep(ctx, r.Countdown); err != nil {
		return nil, err
	}
	if _, err := r.Races.StartRace(ctx, id, r.Authority); err != nil {
		return nil, fmt.Errorf("start %s: %w", id, err)
	}
	if err := r.sleep(ctx, r.Duration); err != nil {
		return nil, err
	}

	winner := r.pick()
	race, err := r.Races.FinishRace(ctx, id, winner, r.seed(), r.Authority)
	if err != nil {
		return nil, fmt.Errorf("finish %s: %w", id, err)
	}
	return race, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) pick() escrow.OutcomeID {
	if r.Pick != nil {
		return r.Pick(r.Racers)
	}
	return PickWinner(r.Racers)
}

func (r *Runner) seed() uint64 {
	if r.Seed != nil {
		return r.Seed()
	}
	return rand.Uint64()
}

// PickWinner sorteia um corredor entre 1 e racers.
func PickWinner(racers int) escrow.OutcomeID {
	if racers < 1 {
		racers = 1
	}
	return escrow.OutcomeID(1 + rand.IntN(racers))
}
