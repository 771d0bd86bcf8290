package publisher

import (
	"context"
	"encoding/json"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/racers-escrow/internal/shared/kafka"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// KafkaPublisher publica notificações do outbox em um tópico.
type KafkaPublisher struct {
	Writer *kafkago.Writer
}

func NewKafkaPublisher(w *kafkago.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env events.Envelope) error {
	msg, err := kafka.EnvelopeMessage(env)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, msg)
}

// DeadLetter é o registro enviado ao DLQ quando a notificação esgota as tentativas.
type DeadLetter struct {
	Seq      int64           `json:"seq"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error"`
	Envelope events.Envelope `json:"envelope"`
}

func (p *KafkaPublisher) PublishDead(ctx context.Context, dl DeadLetter) error {
	b, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Writer, strconv.FormatInt(dl.Seq, 10), b)
}
