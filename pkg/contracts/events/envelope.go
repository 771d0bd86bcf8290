package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event é qualquer notificação emitida por uma operação confirmada do escrow.
type Event interface {
	EventType() string
	Race() string
}

// Envelope é o formato de fio de toda notificação (outbox, kafka, redis, ws).
type Envelope struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	RaceID   string          `json:"race_id,omitempty"`
	TsUnixMs int64           `json:"ts_unix_ms"`
	Payload  json.RawMessage `json:"payload"`
}

// NewEnvelope serializa o evento e gera um id novo.
func NewEnvelope(e Event, ts time.Time) (Envelope, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return Envelope{
		ID:       uuid.NewString(),
		Type:     e.EventType(),
		RaceID:   e.Race(),
		TsUnixMs: ts.UnixMilli(),
		Payload:  b,
	}, nil
}

// Decode desserializa o payload no evento concreto indicado por Type.
func (e Envelope) Decode() (Event, error) {
	var dst Event
	switch e.Type {
	case TypeRaceCreated:
		dst = &RaceCreated{}
	case TypeRaceCountdown:
		dst = &RaceCountdown{}
	case TypeRaceStarted:
		dst = &RaceStarted{}
	case TypeRaceFinished:
		dst = &RaceFinished{}
	case TypeBetPlaced:
		dst = &BetPlaced{}
	case TypeWinningsClaimed:
		dst = &WinningsClaimed{}
	case TypeBetLost:
		dst = &BetLost{}
	case TypeRakebackClaimed:
		dst = &RakebackClaimed{}
	case TypeVaultInitialized:
		dst = &VaultInitialized{}
	case TypeDeposited:
		dst = &Deposited{}
	case TypeWithdrawn:
		dst = &Withdrawn{}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return dst, nil
}

// OutboxEntry é uma notificação ainda não publicada, como lida do outbox.
type OutboxEntry struct {
	Seq      int64
	Attempts int
	Envelope Envelope
}
