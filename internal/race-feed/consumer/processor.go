package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/race-feed/dto"
	"github.com/radieske/racers-escrow/internal/race-feed/pubsub"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Snapshots interface {
	Get(ctx context.Context, raceID string) (*dto.RaceSnapshot, bool, error)
	Set(ctx context.Context, s *dto.RaceSnapshot) error
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome notificações do escrow do Kafka, atualiza o snapshot
// da corrida no Redis e repassa ao canal Pub/Sub do websocket
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log         *zap.Logger
	Reader      Reader
	Cache       Snapshots
	Broadcaster Broadcaster
	Channel     string

	OnConsumed  func()       // métricas (counter++)
	OnCached    func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.Handle(ctx, m.Value)
	}
}

// Handle processa uma mensagem já lida.
func (p *Processor) Handle(ctx context.Context, value []byte) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return
	}
	if env.RaceID == "" {
		return // notificações de cofre não entram no feed
	}

	snap, dup, err := p.snapshot(ctx, env)
	if dup {
		p.Log.Debug("redelivered notification skipped", zap.String("id", env.ID), zap.String("race_id", env.RaceID))
		return
	}
	if err != nil {
		p.Log.Warn("snapshot update failed", zap.String("race_id", env.RaceID), zap.String("type", env.Type), zap.Error(err))
		p.fail("cache")
		// não bloqueia o broadcast se falhar o cache
	} else if p.OnCached != nil {
		p.OnCached()
	}

	b, _ := json.Marshal(pubsub.WSUpdate{RaceID: env.RaceID, Event: env, Snapshot: snap})
	bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(bctx, p.Channel, b); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

// snapshot aplica a notificação ao snapshot em cache; devolve o snapshot
// atualizado ou nil se nada mudou. dup indica que o envelope já tinha sido
// aplicado (reentrega do Kafka).
func (p *Processor) snapshot(ctx context.Context, env events.Envelope) (snap *dto.RaceSnapshot, dup bool, err error) {
	snap, ok, err := p.Cache.Get(ctx, env.RaceID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		snap = &dto.RaceSnapshot{RaceID: env.RaceID}
	}
	if snap.Seen(env.ID) {
		return nil, true, nil
	}
	changed, err := snap.Apply(env)
	if err != nil || !changed {
		return nil, false, err
	}
	if err := p.Cache.Set(ctx, snap); err != nil {
		return nil, false, err
	}
	return snap, false, nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
