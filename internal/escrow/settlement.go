package escrow

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

const (
	WinnerPayoutPercent = 86
	RakebackPercent     = 10
	// RakebackDivisor é um número fixo de perdedores, não a contagem real.
	RakebackDivisor  = 4
	HouseEdgePercent = 4
)

// WinnerPayout é 86% do stake individual, arredondado para baixo. Não depende
// do pot nem de quantos venceram.
func WinnerPayout(amount uint64) uint64 {
	return amount * WinnerPayoutPercent / 100
}

// RakebackAmount é floor(floor(pot*10/100)/4).
func RakebackAmount(totalPot uint64) uint64 {
	pool := totalPot * RakebackPercent / 100
	return pool / RakebackDivisor
}

// Claim é o resultado de uma liquidação.
type Claim struct {
	RaceID   string    `json:"race_id"`
	User     Pubkey    `json:"user"`
	Outcome  OutcomeID `json:"outcome"`
	Winner   OutcomeID `json:"winner"`
	Status   BetStatus `json:"status"`
	Amount   uint64    `json:"amount"`
	Payout   uint64    `json:"payout"`
	Profit   int64     `json:"profit"`
	Rakeback uint64    `json:"rakeback"`
}

// ClaimWinnings liquida a aposta Active: vencedor recebe WinnerPayout do
// escrow da corrida; perdedor vai para Lost sem transferência.
func (e *Engine) ClaimWinnings(ctx context.Context, raceID string, bettor Pubkey) (*Claim, error) {
	addrs, err := e.claimAddrs(raceID, bettor)
	if err != nil {
		return nil, err
	}

	var out *Claim
	err = e.run(ctx, "claim_winnings", func(tx Tx, emit emitFunc) error {
		r, err := loadCompletedRace(tx, addrs.race, raceID)
		if err != nil {
			return err
		}
		b, err := loadBet(tx, addrs.bet, raceID, bettor)
		if err != nil {
			return err
		}
		if b.Status != BetActive {
			return WithMetadata(CodeBetAlreadyClaimed, ErrBetAlreadyClaimed.Message, map[string]string{
				"race_id": raceID,
				"user":    bettor.String(),
				"status":  string(b.Status),
			})
		}
		p, err := loadOrNewProfile(tx, addrs.profile, bettor, addrs.profileBump)
		if err != nil {
			return err
		}

		c := &Claim{
			RaceID:  raceID,
			User:    bettor,
			Outcome: b.Outcome,
			Winner:  *r.Winner,
			Amount:  b.Amount,
		}

		if r.IsWinner(b.Outcome) {
			payout := WinnerPayout(b.Amount)
			if err := checkEscrow(tx, addrs.race, raceID, payout); err != nil {
				return err
			}
			if !b.Status.CanTransitionTo(BetWon) {
				return WithMetadata(CodeBetAlreadyClaimed, ErrBetAlreadyClaimed.Message, betMeta(raceID, bettor))
			}
			b.Status = BetWon
			b.Payout = payout
			if err := transfer(tx, addrs.race, addrs.vault, payout); err != nil {
				return err
			}
			p.ClearActiveBet(raceID)
			p.TotalWon += payout

			c.Payout = payout
			c.Profit = int64(payout) - int64(b.Amount)
			err = emit(events.WinningsClaimed{
				RaceID: raceID,
				User:   bettor.String(),
				Amount: b.Amount,
				Payout: payout,
				Profit: c.Profit,
			})
		} else {
			b.Status = BetLost
			p.ClearActiveBet(raceID)
			err = emit(events.BetLost{
				RaceID:  raceID,
				User:    bettor.String(),
				Outcome: uint8(b.Outcome),
				Winner:  uint8(*r.Winner),
				Amount:  b.Amount,
			})
		}
		if err != nil {
			return err
		}

		if err := tx.PutBet(addrs.bet, b); err != nil {
			return err
		}
		if err := tx.PutProfile(addrs.profile, p); err != nil {
			return err
		}
		c.Status = b.Status
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("winnings claimed",
		zap.String("race_id", raceID),
		zap.String("user", bettor.String()),
		zap.String("status", string(out.Status)),
		zap.Uint64("amount", out.Amount),
		zap.Uint64("payout", out.Payout),
		zap.Int64("profit", out.Profit),
	)
	return out, nil
}

// ClaimRakeback devolve a parte fixa do pool de rakeback a uma aposta Lost.
func (e *Engine) ClaimRakeback(ctx context.Context, raceID string, bettor Pubkey) (*Claim, error) {
	addrs, err := e.claimAddrs(raceID, bettor)
	if err != nil {
		return nil, err
	}

	var out *Claim
	err = e.run(ctx, "claim_rakeback", func(tx Tx, emit emitFunc) error {
		r, err := loadCompletedRace(tx, addrs.race, raceID)
		if err != nil {
			return err
		}
		b, err := loadBet(tx, addrs.bet, raceID, bettor)
		if err != nil {
			return err
		}
		if b.Status != BetLost {
			return WithMetadata(CodeBetNotLost, ErrBetNotLost.Message, map[string]string{
				"race_id": raceID,
				"user":    bettor.String(),
				"status":  string(b.Status),
			})
		}
		if r.IsWinner(b.Outcome) {
			return WithMetadata(CodeUserWon, ErrUserWon.Message, betMeta(raceID, bettor))
		}

		rakeback := RakebackAmount(r.TotalPot)
		if err := checkEscrow(tx, addrs.race, raceID, rakeback); err != nil {
			return err
		}

		b.Status = BetRakebackClaimed
		b.Rakeback = rakeback
		if err := transfer(tx, addrs.race, addrs.vault, rakeback); err != nil {
			return err
		}
		if err := tx.PutBet(addrs.bet, b); err != nil {
			return err
		}

		// a entrada já saiu no ClaimWinnings; a remoção é idempotente
		p, err := loadOrNewProfile(tx, addrs.profile, bettor, addrs.profileBump)
		if err != nil {
			return err
		}
		if p.HasActiveBet(raceID) {
			p.ClearActiveBet(raceID)
			if err := tx.PutProfile(addrs.profile, p); err != nil {
				return err
			}
		}

		out = &Claim{
			RaceID:   raceID,
			User:     bettor,
			Outcome:  b.Outcome,
			Winner:   *r.Winner,
			Status:   b.Status,
			Amount:   b.Amount,
			Rakeback: rakeback,
		}
		return emit(events.RakebackClaimed{
			RaceID:   raceID,
			User:     bettor.String(),
			Amount:   rakeback,
			TotalPot: r.TotalPot,
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("rakeback claimed",
		zap.String("race_id", raceID),
		zap.String("user", bettor.String()),
		zap.Uint64("rakeback", out.Rakeback),
	)
	return out, nil
}

type claimAddrs struct {
	race, bet, profile, vault Address
	profileBump               uint8
}

func (e *Engine) claimAddrs(raceID string, bettor Pubkey) (claimAddrs, error) {
	var a claimAddrs
	var err error
	if a.race, _, err = e.locate(raceSeeds(raceID)); err != nil {
		return a, err
	}
	if a.bet, _, err = e.locate(betSeeds(raceID, bettor)); err != nil {
		return a, err
	}
	if a.profile, a.profileBump, err = e.locate(profileSeeds(bettor)); err != nil {
		return a, err
	}
	if a.vault, _, err = e.locate(vaultSeeds(bettor)); err != nil {
		return a, err
	}
	return a, nil
}

func loadCompletedRace(tx Tx, addr Address, raceID string) (*Race, error) {
	r, err := loadRace(tx, addr, raceID)
	if err != nil {
		return nil, err
	}
	if r.Status != RaceCompleted || r.Winner == nil {
		return nil, WithMetadata(CodeRaceNotCompleted, ErrRaceNotCompleted.Message, map[string]string{
			"race_id": raceID,
			"status":  string(r.Status),
		})
	}
	return r, nil
}

// checkEscrow compara com o saldo real do escrow, nunca com TotalPot.
func checkEscrow(tx Tx, raceAddr Address, raceID string, amount uint64) error {
	bal, err := tx.Balance(raceAddr)
	if err != nil {
		return err
	}
	if bal < amount {
		return WithMetadata(CodeInsufficientEscrow, ErrInsufficientEscrow.Message, map[string]string{
			"race_id": raceID,
			"escrow":  strconv.FormatUint(bal, 10),
			"amount":  strconv.FormatUint(amount, 10),
		})
	}
	return nil
}
