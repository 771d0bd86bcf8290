package dto

import (
	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// maxAppliedIDs limita a janela de ids lembrados para descartar reentregas.
const maxAppliedIDs = 256

// RaceSnapshot é a visão ao vivo de uma corrida montada a partir das
// notificações do escrow.
//
// Notificações que gravam a corrida (criação, status, apostas) sobrescrevem
// campos e só valem se não forem mais antigas que StateAtMs. Liquidações
// somam contadores e valem sempre, uma vez por id.
type RaceSnapshot struct {
	RaceID      string   `json:"race_id"`
	Round       uint64   `json:"round"`
	Status      string   `json:"status"`
	Duration    int64    `json:"duration"`
	StartTime   int64    `json:"start_time"`
	EndTime     int64    `json:"end_time"`
	TotalPot    uint64   `json:"total_pot"`
	TotalBets   uint32   `json:"total_bets"`
	Winner      *uint8   `json:"winner"`
	PaidOut     uint64   `json:"paid_out"`
	RakebackOut uint64   `json:"rakeback_out"`
	Claims      uint32   `json:"claims"`
	LastEvent   string   `json:"last_event"`
	StateAtMs   int64    `json:"state_at_ms"`
	UpdatedAtMs int64    `json:"updated_at_ms"`
	AppliedIDs  []string `json:"applied_ids,omitempty"`
}

// Seen informa se a notificação já foi aplicada.
func (s *RaceSnapshot) Seen(id string) bool {
	if id == "" {
		return false
	}
	for _, a := range s.AppliedIDs {
		if a == id {
			return true
		}
	}
	return false
}

func (s *RaceSnapshot) remember(id string) {
	if id == "" {
		return
	}
	s.AppliedIDs = append(s.AppliedIDs, id)
	if n := len(s.AppliedIDs) - maxAppliedIDs; n > 0 {
		s.AppliedIDs = append([]string(nil), s.AppliedIDs[n:]...)
	}
}

// Apply aplica a notificação ao snapshot. Devolve false para notificações
// sem corrida, já aplicadas, ou que só sobrescreveriam campos com dados
// mais antigos.
func (s *RaceSnapshot) Apply(env events.Envelope) (bool, error) {
	if env.RaceID == "" || s.Seen(env.ID) {
		return false, nil
	}
	ev, err := env.Decode()
	if err != nil {
		return false, err
	}

	fresh := env.TsUnixMs >= s.StateAtMs
	state := true
	switch e := ev.(type) {
	case *events.RaceCreated:
		if fresh {
			s.Round = e.Round
			s.Duration = e.Duration
			s.Status = string(escrow.RaceWaiting)
		}
	case *events.RaceCountdown:
		if fresh {
			s.Status = string(escrow.RaceCountdown)
			s.TotalPot = e.TotalPot
		}
	case *events.RaceStarted:
		if fresh {
			s.Status = string(escrow.RaceRacing)
			s.StartTime = e.StartTime
			s.EndTime = e.EndTime
			s.TotalPot = e.TotalPot
		}
	case *events.RaceFinished:
		if fresh {
			s.Status = string(escrow.RaceCompleted)
			w := e.Winner
			s.Winner = &w
			s.TotalPot = e.TotalPot
			s.TotalBets = e.TotalBets
		}
	case *events.BetPlaced:
		// a contagem vale mesmo fora de ordem; o pot só se for o mais recente
		s.TotalBets++
		if fresh {
			s.TotalPot = e.TotalPot
		}
		fresh = true
	case *events.WinningsClaimed:
		state = false
		s.PaidOut += e.Payout
		s.Claims++
	case *events.BetLost:
		state = false
		s.Claims++
	case *events.RakebackClaimed:
		state = false
		s.RakebackOut += e.Amount
	default:
		return false, nil
	}
	if state && !fresh {
		return false, nil
	}

	s.RaceID = env.RaceID
	s.remember(env.ID)
	if state && env.TsUnixMs > s.StateAtMs {
		s.StateAtMs = env.TsUnixMs
	}
	if env.TsUnixMs >= s.UpdatedAtMs {
		s.UpdatedAtMs = env.TsUnixMs
		s.LastEvent = env.Type
	}
	return true, nil
}
