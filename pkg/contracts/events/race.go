package events

const (
	TypeRaceCreated   = "race_created"
	TypeRaceCountdown = "race_countdown"
	TypeRaceStarted   = "race_started"
	TypeRaceFinished  = "race_finished"
)

type RaceCreated struct {
	RaceID    string `json:"race_id"`
	Round     uint64 `json:"round"`
	Duration  int64  `json:"duration"`
	Authority string `json:"authority"`
}

func (RaceCreated) EventType() string { return TypeRaceCreated }
func (e RaceCreated) Race() string    { return e.RaceID }

type RaceCountdown struct {
	RaceID    string `json:"race_id"`
	Authority string `json:"authority"`
	TotalPot  uint64 `json:"total_pot"`
}

func (RaceCountdown) EventType() string { return TypeRaceCountdown }
func (e RaceCountdown) Race() string    { return e.RaceID }

type RaceStarted struct {
	RaceID    string `json:"race_id"`
	Authority string `json:"authority"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	TotalPot  uint64 `json:"total_pot"`
}

func (RaceStarted) EventType() string { return TypeRaceStarted }
func (e RaceStarted) Race() string    { return e.RaceID }

// RaceFinished carrega o seed informado pela autoridade; nenhum cálculo o utiliza.
type RaceFinished struct {
	RaceID    string `json:"race_id"`
	Authority string `json:"authority"`
	Winner    uint8  `json:"winner"`
	Seed      uint64 `json:"seed"`
	TotalPot  uint64 `json:"total_pot"`
	TotalBets uint32 `json:"total_bets"`
}

func (RaceFinished) EventType() string { return TypeRaceFinished }
func (e RaceFinished) Race() string    { return e.RaceID }
