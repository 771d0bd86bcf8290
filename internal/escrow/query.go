package escrow

import (
	"context"
	"sort"
)

// Race devolve o registro da corrida.
func (e *Engine) Race(ctx context.Context, id string) (*Race, error) {
	addr, _, err := e.locate(raceSeeds(id))
	if err != nil {
		return nil, err
	}
	var out *Race
	err = e.store.View(ctx, func(tx Tx) error {
		r, err := loadRace(tx, addr, id)
		out = r
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return out, nil
}

// Bet devolve a aposta do usuário na corrida.
func (e *Engine) Bet(ctx context.Context, raceID string, bettor Pubkey) (*Bet, error) {
	addr, _, err := e.locate(betSeeds(raceID, bettor))
	if err != nil {
		return nil, err
	}
	var out *Bet
	err = e.store.View(ctx, func(tx Tx) error {
		b, err := loadBet(tx, addr, raceID, bettor)
		out = b
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return out, nil
}

// Profile devolve o perfil; usuário sem apostas recebe um perfil vazio.
func (e *Engine) Profile(ctx context.Context, wallet Pubkey) (*UserProfile, error) {
	addr, bump, err := e.locate(profileSeeds(wallet))
	if err != nil {
		return nil, err
	}
	var out *UserProfile
	err = e.store.View(ctx, func(tx Tx) error {
		p, err := loadOrNewProfile(tx, addr, wallet, bump)
		out = p
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return out, nil
}

// Vault devolve o cofre com o saldo atual.
func (e *Engine) Vault(ctx context.Context, user Pubkey) (*Vault, error) {
	addr, _, err := e.locate(vaultSeeds(user))
	if err != nil {
		return nil, err
	}
	var out *Vault
	err = e.store.View(ctx, func(tx Tx) error {
		v, err := loadVault(tx, addr, user)
		if err != nil {
			return err
		}
		if v.Balance, err = tx.Balance(addr); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return out, nil
}

// EscrowBalance é o saldo real retido pela corrida.
func (e *Engine) EscrowBalance(ctx context.Context, raceID string) (uint64, error) {
	addr, _, err := e.locate(raceSeeds(raceID))
	if err != nil {
		return 0, err
	}
	var bal uint64
	err = e.store.View(ctx, func(tx Tx) error {
		if _, err := loadRace(tx, addr, raceID); err != nil {
			return err
		}
		var err error
		bal, err = tx.Balance(addr)
		return err
	})
	if err != nil {
		return 0, translateStoreError(err)
	}
	return bal, nil
}

// OutcomeStake agrega as apostas de um resultado.
type OutcomeStake struct {
	Outcome OutcomeID `json:"outcome"`
	Bets    int       `json:"bets"`
	Amount  uint64    `json:"amount"`
	Percent float64   `json:"percent"`
}

// Summary é a visão agregada da corrida. HouseEdge, WinnerPool e RakebackPool
// são proporcionais ao pot e apenas informativos: a liquidação não os usa.
type Summary struct {
	Race          *Race          `json:"race"`
	EscrowBalance uint64         `json:"escrow_balance"`
	Bets          int            `json:"bets"`
	Outcomes      []OutcomeStake `json:"outcomes"`
	HouseEdge     uint64         `json:"house_edge"`
	WinnerPool    uint64         `json:"winner_pool"`
	RakebackPool  uint64         `json:"rakeback_pool"`
}

// Summary lê corrida, saldo e apostas na mesma transação de leitura.
func (e *Engine) Summary(ctx context.Context, raceID string) (*Summary, error) {
	addr, _, err := e.locate(raceSeeds(raceID))
	if err != nil {
		return nil, err
	}
	var (
		r    *Race
		bal  uint64
		bets []*Bet
	)
	err = e.store.View(ctx, func(tx Tx) error {
		var err error
		if r, err = loadRace(tx, addr, raceID); err != nil {
			return err
		}
		if bal, err = tx.Balance(addr); err != nil {
			return err
		}
		bets, err = tx.Bets(raceID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	byOutcome := make(map[OutcomeID]*OutcomeStake)
	var staked uint64
	for _, b := range bets {
		s, ok := byOutcome[b.Outcome]
		if !ok {
			s = &OutcomeStake{Outcome: b.Outcome}
			byOutcome[b.Outcome] = s
		}
		s.Bets++
		s.Amount += b.Amount
		staked += b.Amount
	}

	out := &Summary{
		Race:          r,
		EscrowBalance: bal,
		Bets:          len(bets),
		Outcomes:      make([]OutcomeStake, 0, len(byOutcome)),
		HouseEdge:     r.TotalPot * HouseEdgePercent / 100,
		WinnerPool:    r.TotalPot * WinnerPayoutPercent / 100,
		RakebackPool:  r.TotalPot * RakebackPercent / 100,
	}
	for _, s := range byOutcome {
		if staked > 0 {
			s.Percent = float64(s.Amount) * 100 / float64(staked)
		}
		out.Outcomes = append(out.Outcomes, *s)
	}
	sort.Slice(out.Outcomes, func(i, j int) bool { return out.Outcomes[i].Outcome < out.Outcomes[j].Outcome })
	return out, nil
}
