package escrow

// OutcomeID identifica um resultado possível da corrida (o corredor).
type OutcomeID uint8

// RaceStatus é o estado do ciclo de vida da corrida.
type RaceStatus string

const (
	RaceWaiting   RaceStatus = "WAITING"
	RaceCountdown RaceStatus = "COUNTDOWN"
	RaceRacing    RaceStatus = "RACING"
	RaceCompleted RaceStatus = "COMPLETED"
)

// raceTransitions é a tabela de transições válidas; Completed é terminal.
var raceTransitions = map[RaceStatus][]RaceStatus{
	RaceWaiting:   {RaceCountdown, RaceRacing},
	RaceCountdown: {RaceRacing},
	RaceRacing:    {RaceCompleted},
	RaceCompleted: nil,
}

func (s RaceStatus) Valid() bool {
	_, ok := raceTransitions[s]
	return ok
}

func (s RaceStatus) CanTransitionTo(next RaceStatus) bool {
	for _, n := range raceTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// AcceptingBets vale para Waiting e Countdown.
func (s RaceStatus) AcceptingBets() bool {
	return s == RaceWaiting || s == RaceCountdown
}

// BetStatus é o estado de uma aposta.
type BetStatus string

const (
	BetActive          BetStatus = "ACTIVE"
	BetWon             BetStatus = "WON"
	BetLost            BetStatus = "LOST"
	BetRakebackClaimed BetStatus = "RAKEBACK_CLAIMED"
)

// Lost não é terminal: ainda pode ir para RakebackClaimed.
var betTransitions = map[BetStatus][]BetStatus{
	BetActive:          {BetWon, BetLost},
	BetWon:             nil,
	BetLost:            {BetRakebackClaimed},
	BetRakebackClaimed: nil,
}

func (s BetStatus) Valid() bool {
	_, ok := betTransitions[s]
	return ok
}

func (s BetStatus) CanTransitionTo(next BetStatus) bool {
	for _, n := range betTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s BetStatus) Terminal() bool {
	return s.Valid() && len(betTransitions[s]) == 0
}

// Race é o registro de uma corrida. TotalPot é histórico: a liquidação só
// debita o saldo de escrow da corrida, nunca este campo.
type Race struct {
	ID        string     `json:"id"`
	Round     uint64     `json:"round"`
	Status    RaceStatus `json:"status"`
	Duration  int64      `json:"duration"`
	StartTime int64      `json:"start_time"`
	EndTime   int64      `json:"end_time"`
	TotalPot  uint64     `json:"total_pot"`
	TotalBets uint32     `json:"total_bets"`
	Winner    *OutcomeID `json:"winner"`
	Authority Pubkey     `json:"authority"`
	Bump      uint8      `json:"bump"`
}

func (r *Race) Clone() *Race {
	c := *r
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	return &c
}

// IsWinner informa se o resultado é o vencedor registrado.
func (r *Race) IsWinner(o OutcomeID) bool {
	return r.Winner != nil && *r.Winner == o
}

// Bet é a aposta de um usuário em uma corrida.
type Bet struct {
	RaceID   string    `json:"race_id"`
	Bettor   Pubkey    `json:"bettor"`
	Outcome  OutcomeID `json:"outcome"`
	Amount   uint64    `json:"amount"`
	Status   BetStatus `json:"status"`
	Payout   uint64    `json:"payout"`
	Rakeback uint64    `json:"rakeback"`
	PlacedAt int64     `json:"placed_at"`
	Bump     uint8     `json:"bump"`
}

func (b *Bet) Clone() *Bet {
	c := *b
	return &c
}

// Vault guarda os totais do cofre do usuário; o saldo vive no ledger de
// saldos do store e é preenchido nas respostas.
type Vault struct {
	User           Pubkey `json:"user"`
	Balance        uint64 `json:"balance"`
	TotalDeposited uint64 `json:"total_deposited"`
	TotalWithdrawn uint64 `json:"total_withdrawn"`
	Bump           uint8  `json:"bump"`
}

func (v *Vault) Clone() *Vault {
	c := *v
	return &c
}
