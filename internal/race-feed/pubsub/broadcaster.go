package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/racers-escrow/internal/race-feed/dto"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

type RedisBroadcaster struct {
	r *redis.Client
}

func NewRedisBroadcaster(r *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}

// Payload padrão para o WS do race-feed
type WSUpdate struct {
	RaceID   string            `json:"race_id"`
	Event    events.Envelope   `json:"event"`
	Snapshot *dto.RaceSnapshot `json:"snapshot,omitempty"`
}
