package dto

import "github.com/radieske/racers-escrow/internal/escrow"

type RaceResponse struct {
	Address   string `json:"address"`
	ID        string `json:"id"`
	Round     uint64 `json:"round"`
	Status    string `json:"status"`
	Duration  int64  `json:"duration"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	TotalPot  uint64 `json:"total_pot"`
	TotalBets uint32 `json:"total_bets"`
	Winner    *uint8 `json:"winner"`
	Authority string `json:"authority"`
}

func FromRace(addr escrow.Address, r *escrow.Race) RaceResponse {
	out := RaceResponse{
		Address:   addr.String(),
		ID:        r.ID,
		Round:     r.Round,
		Status:    string(r.Status),
		Duration:  r.Duration,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		TotalPot:  r.TotalPot,
		TotalBets: r.TotalBets,
		Authority: r.Authority.String(),
	}
	if r.Winner != nil {
		w := uint8(*r.Winner)
		out.Winner = &w
	}
	return out
}

type BetResponse struct {
	Address  string `json:"address"`
	RaceID   string `json:"race_id"`
	User     string `json:"user"`
	Outcome  uint8  `json:"outcome"`
	Amount   uint64 `json:"amount"`
	Status   string `json:"status"`
	Payout   uint64 `json:"payout"`
	Rakeback uint64 `json:"rakeback"`
	PlacedAt int64  `json:"placed_at"`
}

func FromBet(addr escrow.Address, b *escrow.Bet) BetResponse {
	return BetResponse{
		Address:  addr.String(),
		RaceID:   b.RaceID,
		User:     b.Bettor.String(),
		Outcome:  uint8(b.Outcome),
		Amount:   b.Amount,
		Status:   string(b.Status),
		Payout:   b.Payout,
		Rakeback: b.Rakeback,
		PlacedAt: b.PlacedAt,
	}
}

// PlaceBetResponse traz a aposta e o pot atualizado.
type PlaceBetResponse struct {
	Bet      BetResponse `json:"bet"`
	TotalPot uint64      `json:"total_pot"`
}

type ClaimResponse struct {
	RaceID   string `json:"race_id"`
	User     string `json:"user"`
	Status   string `json:"status"`
	Outcome  uint8  `json:"outcome"`
	Winner   uint8  `json:"winner"`
	Amount   uint64 `json:"amount"`
	Payout   uint64 `json:"payout"`
	Profit   int64  `json:"profit"`
	Rakeback uint64 `json:"rakeback"`
}

func FromClaim(c *escrow.Claim) ClaimResponse {
	return ClaimResponse{
		RaceID:   c.RaceID,
		User:     c.User.String(),
		Status:   string(c.Status),
		Outcome:  uint8(c.Outcome),
		Winner:   uint8(c.Winner),
		Amount:   c.Amount,
		Payout:   c.Payout,
		Profit:   c.Profit,
		Rakeback: c.Rakeback,
	}
}

type ProfileResponse struct {
	Wallet       string            `json:"wallet"`
	TotalWagered uint64            `json:"total_wagered"`
	TotalWon     uint64            `json:"total_won"`
	ActiveBets   map[string]string `json:"active_bets"` // race id -> endereço da aposta
}

func FromProfile(p *escrow.UserProfile) ProfileResponse {
	out := ProfileResponse{
		Wallet:       p.Wallet.String(),
		TotalWagered: p.TotalWagered,
		TotalWon:     p.TotalWon,
		ActiveBets:   make(map[string]string, len(p.ActiveBets)),
	}
	for race, addr := range p.ActiveBets {
		out.ActiveBets[race] = addr.String()
	}
	return out
}

type OutcomeStake struct {
	Outcome uint8   `json:"outcome"`
	Bets    int     `json:"bets"`
	Amount  uint64  `json:"amount"`
	Percent float64 `json:"percent"`
}

// SummaryResponse é a distribuição de apostas por corredor. Os pools são
// informativos; a liquidação não os usa.
type SummaryResponse struct {
	Race          RaceResponse   `json:"race"`
	EscrowBalance uint64         `json:"escrow_balance"`
	Bets          int            `json:"bets"`
	Outcomes      []OutcomeStake `json:"outcomes"`
	HouseEdge     uint64         `json:"house_edge"`
	WinnerPool    uint64         `json:"winner_pool"`
	RakebackPool  uint64         `json:"rakeback_pool"`
}

func FromSummary(addr escrow.Address, s *escrow.Summary) SummaryResponse {
	out := SummaryResponse{
		Race:          FromRace(addr, s.Race),
		EscrowBalance: s.EscrowBalance,
		Bets:          s.Bets,
		Outcomes:      make([]OutcomeStake, 0, len(s.Outcomes)),
		HouseEdge:     s.HouseEdge,
		WinnerPool:    s.WinnerPool,
		RakebackPool:  s.RakebackPool,
	}
	for _, o := range s.Outcomes {
		out.Outcomes = append(out.Outcomes, OutcomeStake{
			Outcome: uint8(o.Outcome),
			Bets:    o.Bets,
			Amount:  o.Amount,
			Percent: o.Percent,
		})
	}
	return out
}
