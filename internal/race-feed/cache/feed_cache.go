package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/racers-escrow/internal/race-feed/dto"
)

// FeedCache guarda o último snapshot de cada corrida e um índice das
// corridas por atualização mais recente.
type FeedCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewFeedCache(c *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{Client: c, TTL: ttl}
}

const keyIndex = "feed:races"

func key(raceID string) string { return "feed:race:" + raceID }

func (c *FeedCache) Get(ctx context.Context, raceID string) (*dto.RaceSnapshot, bool, error) {
	b, err := c.Client.Get(ctx, key(raceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s dto.RaceSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

// Set grava o snapshot e atualiza o índice na mesma pipeline.
func (c *FeedCache) Set(ctx context.Context, s *dto.RaceSnapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key(s.RaceID), b, c.TTL)
		p.ZAdd(ctx, keyIndex, redis.Z{Score: float64(s.UpdatedAtMs), Member: s.RaceID})
		return nil
	})
	return err
}

// Recent lista até limit snapshots, do mais recente para o mais antigo.
// Corridas expiradas saem do índice.
func (c *FeedCache) Recent(ctx context.Context, limit int64) ([]dto.RaceSnapshot, error) {
	ids, err := c.Client.ZRevRange(ctx, keyIndex, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]dto.RaceSnapshot, 0, len(ids))
	for _, id := range ids {
		s, ok, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			_ = c.Client.ZRem(ctx, keyIndex, id).Err()
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}
