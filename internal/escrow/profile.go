package escrow

// UserProfile indexa as apostas ativas do usuário por corrida.
// Existe entrada para uma corrida se e somente se a aposta está Active.
type UserProfile struct {
	Wallet       Pubkey             `json:"wallet"`
	TotalWagered uint64             `json:"total_wagered"`
	TotalWon     uint64             `json:"total_won"`
	ActiveBets   map[string]Address `json:"active_bets"`
	Bump         uint8              `json:"bump"`
}

func NewUserProfile(wallet Pubkey, bump uint8) *UserProfile {
	return &UserProfile{
		Wallet:     wallet,
		ActiveBets: make(map[string]Address),
		Bump:       bump,
	}
}

func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.ActiveBets = make(map[string]Address, len(p.ActiveBets))
	for k, v := range p.ActiveBets {
		c.ActiveBets[k] = v
	}
	return &c
}

func (p *UserProfile) HasActiveBet(raceID string) bool {
	_, ok := p.ActiveBets[raceID]
	return ok
}

// RegisterActiveBet rejeita uma segunda aposta ativa na mesma corrida.
func (p *UserProfile) RegisterActiveBet(raceID string, bet Address) error {
	if p.HasActiveBet(raceID) {
		return WithMetadata(CodeUserAlreadyBet, ErrUserAlreadyBet.Message, betMeta(raceID, p.Wallet))
	}
	if p.ActiveBets == nil {
		p.ActiveBets = make(map[string]Address)
	}
	p.ActiveBets[raceID] = bet
	return nil
}

// ClearActiveBet é idempotente: remover entrada inexistente não é erro.
func (p *UserProfile) ClearActiveBet(raceID string) {
	delete(p.ActiveBets, raceID)
}
