package escrow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// MaxBet é o teto de uma aposta em unidades base.
const MaxBet uint64 = 100_000_000_000

// PlaceBet move amount do vault do apostador para o escrow da corrida e abre
// a aposta Active. Ordem das checagens: status da corrida, valor, aposta
// ativa, saldo.
func (e *Engine) PlaceBet(ctx context.Context, raceID string, outcome OutcomeID, amount uint64, bettor Pubkey) (*Bet, *Race, error) {
	raceAddr, _, err := e.locate(raceSeeds(raceID))
	if err != nil {
		return nil, nil, err
	}
	betAddr, betBump, err := e.locate(betSeeds(raceID, bettor))
	if err != nil {
		return nil, nil, err
	}
	profileAddr, profileBump, err := e.locate(profileSeeds(bettor))
	if err != nil {
		return nil, nil, err
	}
	vaultAddr, _, err := e.locate(vaultSeeds(bettor))
	if err != nil {
		return nil, nil, err
	}

	var (
		outBet  *Bet
		outRace *Race
	)
	err = e.run(ctx, "place_bet", func(tx Tx, emit emitFunc) error {
		r, err := loadRace(tx, raceAddr, raceID)
		if err != nil {
			return err
		}
		if !r.Status.AcceptingBets() {
			return WithMetadata(CodeRaceNotAcceptingBets, ErrRaceNotAcceptingBets.Message, map[string]string{
				"race_id": raceID,
				"status":  string(r.Status),
			})
		}
		if amount == 0 || amount > MaxBet {
			return WithMetadata(CodeInvalidBetAmount, ErrInvalidBetAmount.Message, map[string]string{
				"race_id": raceID,
				"amount":  strconv.FormatUint(amount, 10),
			})
		}

		p, err := loadOrNewProfile(tx, profileAddr, bettor, profileBump)
		if err != nil {
			return err
		}
		if p.HasActiveBet(raceID) {
			return WithMetadata(CodeUserAlreadyBet, ErrUserAlreadyBet.Message, betMeta(raceID, bettor))
		}
		// um registro de aposta por (corrida, apostador), mesmo já liquidado
		if _, err := tx.Bet(betAddr); err == nil {
			return WithMetadata(CodeUserAlreadyBet, ErrUserAlreadyBet.Message, betMeta(raceID, bettor))
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load bet %s/%s: %w", raceID, bettor, err)
		}

		funds, err := tx.Balance(vaultAddr)
		if err != nil {
			return fmt.Errorf("vault balance %s: %w", bettor, err)
		}
		if funds < amount {
			return WithMetadata(CodeInsufficientBalance, ErrInsufficientBalance.Message, map[string]string{
				"user":    bettor.String(),
				"balance": strconv.FormatUint(funds, 10),
				"amount":  strconv.FormatUint(amount, 10),
			})
		}

		if err := transfer(tx, vaultAddr, raceAddr, amount); err != nil {
			return err
		}

		b := &Bet{
			RaceID:   raceID,
			Bettor:   bettor,
			Outcome:  outcome,
			Amount:   amount,
			Status:   BetActive,
			PlacedAt: e.clock.Now().Unix(),
			Bump:     betBump,
		}
		if err := tx.PutBet(betAddr, b); err != nil {
			return err
		}

		// sem proteção de overflow no acumulado
		r.TotalPot += amount
		r.TotalBets++
		if err := tx.PutRace(raceAddr, r); err != nil {
			return err
		}

		if err := p.RegisterActiveBet(raceID, betAddr); err != nil {
			return err
		}
		p.TotalWagered += amount
		if err := tx.PutProfile(profileAddr, p); err != nil {
			return err
		}

		outBet, outRace = b.Clone(), r.Clone()
		return emit(events.BetPlaced{
			RaceID:   raceID,
			User:     bettor.String(),
			Outcome:  uint8(outcome),
			Amount:   amount,
			TotalPot: r.TotalPot,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	e.log.Info("bet placed",
		zap.String("race_id", raceID),
		zap.String("user", bettor.String()),
		zap.Uint8("outcome", uint8(outcome)),
		zap.Uint64("amount", amount),
		zap.Uint64("total_pot", outRace.TotalPot),
	)
	return outBet, outRace, nil
}

func loadOrNewProfile(tx Tx, addr Address, wallet Pubkey, bump uint8) (*UserProfile, error) {
	p, err := tx.Profile(addr)
	if errors.Is(err, ErrNotFound) {
		return NewUserProfile(wallet, bump), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", wallet, err)
	}
	return p, nil
}
