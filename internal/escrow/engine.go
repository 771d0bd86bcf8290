package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// Clock é a fonte de tempo do engine.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock usa o relógio do sistema.
var SystemClock Clock = ClockFunc(time.Now)

// Engine executa as operações de corrida, aposta, liquidação e vault.
// Não guarda estado nem locks: toda mutação passa por Store.Update.
type Engine struct {
	store    Store
	locator  Locator
	clock    Clock
	notifier Notifier
	log      *zap.Logger
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func NewEngine(store Store, locator Locator, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		locator: locator,
		clock:   SystemClock,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// emitFunc registra uma notificação da transação em curso.
type emitFunc func(events.Event) error

// run executa fn em uma transação, traduz erros do store e, após o commit,
// repassa as notificações ao notifier.
func (e *Engine) run(ctx context.Context, op string, fn func(tx Tx, emit emitFunc) error) error {
	var pending []events.Envelope

	err := e.store.Update(ctx, func(tx Tx) error {
		pending = pending[:0]
		emit := func(ev events.Event) error {
			env, err := events.NewEnvelope(ev, e.clock.Now())
			if err != nil {
				return err
			}
			if err := tx.Emit(env); err != nil {
				return fmt.Errorf("emit %s: %w", env.Type, err)
			}
			pending = append(pending, env)
			return nil
		}
		return fn(tx, emit)
	})
	if err != nil {
		err = translateStoreError(err)
		e.log.Debug("operation rejected",
			zap.String("op", op),
			zap.String("code", string(CodeOf(err))),
			zap.Error(err),
		)
		return err
	}

	if e.notifier != nil {
		for _, env := range pending {
			if nerr := e.notifier.Notify(ctx, env); nerr != nil {
				e.log.Warn("notify failed",
					zap.String("op", op),
					zap.String("type", env.Type),
					zap.String("id", env.ID),
					zap.Error(nerr),
				)
			}
		}
	}
	return nil
}

func translateStoreError(err error) error {
	var de *Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, ErrWriteConflict):
		return Wrap(CodeConflict, ErrConflict.Message, err)
	case errors.Is(err, ErrInvalidSeeds):
		return Wrap(CodeInvalidArgument, "cannot derive record address", err)
	default:
		return err
	}
}

func (e *Engine) locate(seeds [][]byte) (Address, uint8, error) {
	addr, bump, err := e.locator.Locate(seeds...)
	if err != nil {
		return Address{}, 0, Wrap(CodeInvalidArgument, "cannot derive record address", err)
	}
	return addr, bump, nil
}

// RaceAddress devolve o endereço do registro (e do escrow) da corrida.
func (e *Engine) RaceAddress(raceID string) (Address, error) {
	addr, _, err := e.locate(raceSeeds(raceID))
	return addr, err
}

func (e *Engine) BetAddress(raceID string, bettor Pubkey) (Address, error) {
	addr, _, err := e.locate(betSeeds(raceID, bettor))
	return addr, err
}

func (e *Engine) ProfileAddress(wallet Pubkey) (Address, error) {
	addr, _, err := e.locate(profileSeeds(wallet))
	return addr, err
}

func (e *Engine) VaultAddress(user Pubkey) (Address, error) {
	addr, _, err := e.locate(vaultSeeds(user))
	return addr, err
}

// loadRace lê a corrida e converte ausência em RaceNotFound.
func loadRace(tx Tx, addr Address, raceID string) (*Race, error) {
	r, err := tx.Race(addr)
	if errors.Is(err, ErrNotFound) {
		return nil, WithMetadata(CodeRaceNotFound, ErrRaceNotFound.Message, raceMeta(raceID))
	}
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", raceID, err)
	}
	return r, nil
}

func loadBet(tx Tx, addr Address, raceID string, bettor Pubkey) (*Bet, error) {
	b, err := tx.Bet(addr)
	if errors.Is(err, ErrNotFound) {
		return nil, WithMetadata(CodeBetNotFound, ErrBetNotFound.Message, betMeta(raceID, bettor))
	}
	if err != nil {
		return nil, fmt.Errorf("load bet %s/%s: %w", raceID, bettor, err)
	}
	return b, nil
}

// transfer move valor entre endereços; a suficiência já foi checada pelo chamador.
func transfer(tx Tx, from, to Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := tx.Debit(from, amount); err != nil {
		return err
	}
	return tx.Credit(to, amount)
}
