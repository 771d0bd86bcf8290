package events

const (
	TypeBetPlaced       = "bet_placed"
	TypeWinningsClaimed = "winnings_claimed"
	TypeBetLost         = "bet_lost"
	TypeRakebackClaimed = "rakeback_claimed"
)

type BetPlaced struct {
	RaceID   string `json:"race_id"`
	User     string `json:"user"`
	Outcome  uint8  `json:"outcome"`
	Amount   uint64 `json:"amount"`
	TotalPot uint64 `json:"total_pot"`
}

func (BetPlaced) EventType() string { return TypeBetPlaced }
func (e BetPlaced) Race() string    { return e.RaceID }

// WinningsClaimed.Profit é payout - stake e fica negativo para todo vencedor
// enquanto o payout for 86% do stake.
type WinningsClaimed struct {
	RaceID string `json:"race_id"`
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
	Payout uint64 `json:"payout"`
	Profit int64  `json:"profit"`
}

func (WinningsClaimed) EventType() string { return TypeWinningsClaimed }
func (e WinningsClaimed) Race() string    { return e.RaceID }

type BetLost struct {
	RaceID  string `json:"race_id"`
	User    string `json:"user"`
	Outcome uint8  `json:"outcome"`
	Winner  uint8  `json:"winner"`
	Amount  uint64 `json:"amount"`
}

func (BetLost) EventType() string { return TypeBetLost }
func (e BetLost) Race() string    { return e.RaceID }

type RakebackClaimed struct {
	RaceID   string `json:"race_id"`
	User     string `json:"user"`
	Amount   uint64 `json:"amount"`
	TotalPot uint64 `json:"total_pot"`
}

func (RakebackClaimed) EventType() string { return TypeRakebackClaimed }
func (e RakebackClaimed) Race() string    { return e.RaceID }
