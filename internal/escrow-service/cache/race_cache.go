package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// genTTL mantém a geração viva bem além do TTL das respostas.
const genTTL = 24 * time.Hour

var errStaleGen = errors.New("cache: generation moved")

// RaceCache guarda as respostas de corrida e resumo no Redis por pouco tempo.
// Toda notificação confirmada de uma corrida invalida as duas chaves e avança
// a geração da corrida; uma escrita só entra se a geração lida junto com o
// miss ainda for a atual, assim uma leitura antiga não sobrescreve a
// invalidação.
type RaceCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *RaceCache { return &RaceCache{R: r, TTL: ttl} }

func keyRace(raceID string) string    { return "escrow:race:" + raceID }
func keySummary(raceID string) string { return "escrow:race:" + raceID + ":summary" }
func keyGen(raceID string) string     { return "escrow:race:" + raceID + ":gen" }

// get devolve a geração atual junto com o valor (ou o miss).
func (c *RaceCache) get(ctx context.Context, raceID, key string, dst any) (bool, int64, error) {
	vals, err := c.R.MGet(ctx, keyGen(raceID), key).Result()
	if err != nil {
		return false, 0, err
	}
	gen, err := parseGen(vals[0])
	if err != nil {
		return false, 0, err
	}
	b, ok := vals[1].(string)
	if !ok {
		return false, gen, nil
	}
	return true, gen, json.Unmarshal([]byte(b), dst)
}

// set grava v se a geração ainda for gen. Geração que mudou não é erro: a
// escrita é descartada e a próxima leitura vai ao banco.
func (c *RaceCache) set(ctx context.Context, raceID, key string, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	genKey := keyGen(raceID)
	err = c.R.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGen
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, c.TTL)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGen) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func parseGen(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *RaceCache) GetRace(ctx context.Context, raceID string, dst any) (bool, int64, error) {
	return c.get(ctx, raceID, keyRace(raceID), dst)
}

func (c *RaceCache) SetRace(ctx context.Context, raceID string, gen int64, v any) error {
	return c.set(ctx, raceID, keyRace(raceID), gen, v)
}

func (c *RaceCache) GetSummary(ctx context.Context, raceID string, dst any) (bool, int64, error) {
	return c.get(ctx, raceID, keySummary(raceID), dst)
}

func (c *RaceCache) SetSummary(ctx context.Context, raceID string, gen int64, v any) error {
	return c.set(ctx, raceID, keySummary(raceID), gen, v)
}

func (c *RaceCache) Invalidate(ctx context.Context, raceID string) error {
	_, err := c.R.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, keyGen(raceID))
		p.Expire(ctx, keyGen(raceID), genTTL)
		p.Del(ctx, keyRace(raceID), keySummary(raceID))
		return nil
	})
	return err
}

// Notify implementa escrow.Notifier: invalida a corrida da notificação.
func (c *RaceCache) Notify(ctx context.Context, env events.Envelope) error {
	if env.RaceID == "" {
		return nil
	}
	return c.Invalidate(ctx, env.RaceID)
}
