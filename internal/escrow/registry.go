package escrow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// CreateRace registra uma corrida nova em Waiting com pot zerado.
func (e *Engine) CreateRace(ctx context.Context, id string, round uint64, duration int64, authority Pubkey) (*Race, error) {
	if id == "" {
		return nil, WithMetadata(CodeInvalidArgument, "race id is required", nil)
	}
	addr, bump, err := e.locate(raceSeeds(id))
	if err != nil {
		return nil, err
	}

	var out *Race
	err = e.run(ctx, "create_race", func(tx Tx, emit emitFunc) error {
		_, err := tx.Race(addr)
		switch {
		case err == nil:
			return WithMetadata(CodeDuplicateRace, ErrDuplicateRace.Message, raceMeta(id))
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("load race %s: %w", id, err)
		}

		r := &Race{
			ID:        id,
			Round:     round,
			Status:    RaceWaiting,
			Duration:  duration,
			Authority: authority,
			Bump:      bump,
		}
		if err := tx.PutRace(addr, r); err != nil {
			return err
		}
		out = r.Clone()
		return emit(events.RaceCreated{
			RaceID:    id,
			Round:     round,
			Duration:  duration,
			Authority: authority.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("race created",
		zap.String("race_id", id),
		zap.Uint64("round", round),
		zap.Int64("duration", duration),
		zap.String("authority", authority.String()),
	)
	return out, nil
}

// BeginCountdown leva a corrida de Waiting para Countdown. A corrida continua
// aceitando apostas.
func (e *Engine) BeginCountdown(ctx context.Context, id string, caller Pubkey) (*Race, error) {
	r, err := e.advance(ctx, "begin_countdown", id, caller, RaceCountdown, func(r *Race, emit emitFunc) error {
		return emit(events.RaceCountdown{
			RaceID:    r.ID,
			Authority: caller.String(),
			TotalPot:  r.TotalPot,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("race countdown", zap.String("race_id", id), zap.Uint64("total_pot", r.TotalPot))
	return r, nil
}

// StartRace fecha as apostas e marca o início. EndTime é apenas informativo:
// nada transiciona a corrida automaticamente.
func (e *Engine) StartRace(ctx context.Context, id string, caller Pubkey) (*Race, error) {
	r, err := e.advance(ctx, "start_race", id, caller, RaceRacing, func(r *Race, emit emitFunc) error {
		r.StartTime = e.clock.Now().Unix()
		r.EndTime = r.StartTime + r.Duration
		return emit(events.RaceStarted{
			RaceID:    r.ID,
			Authority: caller.String(),
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			TotalPot:  r.TotalPot,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("race started",
		zap.String("race_id", id),
		zap.Int64("start_time", r.StartTime),
		zap.Int64("end_time", r.EndTime),
		zap.Uint64("total_pot", r.TotalPot),
	)
	return r, nil
}

// FinishRace registra o vencedor informado pela autoridade. O seed vai apenas
// para a notificação.
func (e *Engine) FinishRace(ctx context.Context, id string, winner OutcomeID, seed uint64, caller Pubkey) (*Race, error) {
	r, err := e.advance(ctx, "finish_race", id, caller, RaceCompleted, func(r *Race, emit emitFunc) error {
		w := winner
		r.Winner = &w
		return emit(events.RaceFinished{
			RaceID:    r.ID,
			Authority: caller.String(),
			Winner:    uint8(winner),
			Seed:      seed,
			TotalPot:  r.TotalPot,
			TotalBets: r.TotalBets,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("race finished",
		zap.String("race_id", id),
		zap.Uint8("winner", uint8(winner)),
		zap.Uint64("seed", seed),
		zap.Uint64("total_pot", r.TotalPot),
		zap.Uint32("total_bets", r.TotalBets),
	)
	return r, nil
}

// advance aplica uma transição de status restrita à autoridade da corrida.
// Autorização é checada antes do status.
func (e *Engine) advance(ctx context.Context, op, id string, caller Pubkey, next RaceStatus, mutate func(*Race, emitFunc) error) (*Race, error) {
	addr, _, err := e.locate(raceSeeds(id))
	if err != nil {
		return nil, err
	}

	var out *Race
	err = e.run(ctx, op, func(tx Tx, emit emitFunc) error {
		r, err := loadRace(tx, addr, id)
		if err != nil {
			return err
		}
		if caller != r.Authority {
			return WithMetadata(CodeUnauthorized, ErrUnauthorized.Message, map[string]string{
				"race_id": id,
				"caller":  caller.String(),
			})
		}
		if !r.Status.CanTransitionTo(next) {
			return WithMetadata(CodeInvalidRaceStatus, ErrInvalidRaceStatus.Message, map[string]string{
				"race_id": id,
				"status":  string(r.Status),
				"target":  string(next),
			})
		}

		r.Status = next
		if err := mutate(r, emit); err != nil {
			return err
		}
		if err := tx.PutRace(addr, r); err != nil {
			return err
		}
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
