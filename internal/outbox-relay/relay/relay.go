package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/outbox-relay/publisher"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// Outbox é a fila transacional de notificações do escrow.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]events.OutboxEntry, error)
	MarkPublished(ctx context.Context, seq int64) error
	MarkFailed(ctx context.Context, seq int64, cause string, dead bool) error
}

type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

type DeadLetterPublisher interface {
	PublishDead(ctx context.Context, dl publisher.DeadLetter) error
}

// Relay drena o outbox para o Kafka em ordem de seq.
// Uma falha interrompe o lote para não reordenar notificações da mesma
// corrida; após MaxAttempts a notificação vai para o DLQ e sai da fila.
type Relay struct {
	Log         *zap.Logger
	Outbox      Outbox
	Publisher   Publisher
	DLQ         DeadLetterPublisher // opcional
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int

	OnPublished func() // métricas
	OnFailed    func()
	OnDead      func()
}

// Run executa RunOnce até o contexto ser cancelado. Lotes cheios são
// seguidos imediatamente de outro.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Warn("relay batch failed", zap.Error(err))
		}
		if err == nil && n >= r.BatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunOnce processa um lote e devolve quantas entradas saíram da fila.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	entries, err := r.Outbox.Pending(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, e := range entries {
		perr := r.Publisher.Publish(ctx, e.Envelope)
		if perr == nil {
			if err := r.Outbox.MarkPublished(ctx, e.Seq); err != nil {
				return done, err
			}
			done++
			if r.OnPublished != nil {
				r.OnPublished()
			}
			continue
		}

		if r.OnFailed != nil {
			r.OnFailed()
		}
		attempts := e.Attempts + 1
		dead := r.MaxAttempts > 0 && attempts >= r.MaxAttempts && r.deadLetter(ctx, e, attempts, perr)
		r.Log.Warn("publish notification failed",
			zap.Int64("seq", e.Seq),
			zap.String("type", e.Envelope.Type),
			zap.String("race_id", e.Envelope.RaceID),
			zap.Int("attempts", attempts),
			zap.Bool("dead", dead),
			zap.Error(perr),
		)
		if err := r.Outbox.MarkFailed(ctx, e.Seq, perr.Error(), dead); err != nil {
			return done, err
		}
		if !dead {
			return done, nil
		}
		done++
		if r.OnDead != nil {
			r.OnDead()
		}
	}
	return done, nil
}

// deadLetter envia ao DLQ; sem DLQ configurado a entrada sai da fila só com o log.
func (r *Relay) deadLetter(ctx context.Context, e events.OutboxEntry, attempts int, cause error) bool {
	if r.DLQ == nil {
		return true
	}
	err := r.DLQ.PublishDead(ctx, publisher.DeadLetter{
		Seq:      e.Seq,
		Attempts: attempts,
		Error:    cause.Error(),
		Envelope: e.Envelope,
	})
	if err != nil {
		r.Log.Error("dlq publish failed", zap.Int64("seq", e.Seq), zap.Error(err))
		return false
	}
	return true
}
