package escrow

import (
	"context"
	"errors"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// Erros do store. O engine traduz para códigos de domínio.
var (
	// ErrNotFound indica registro inexistente no endereço.
	ErrNotFound = errors.New("not found")

	// ErrWriteConflict indica que outra transação alterou um registro
	// lido/escrito; nada foi aplicado e o chamador deve reenviar.
	ErrWriteConflict = errors.New("write conflict")

	// ErrInsufficientFunds indica débito maior que o saldo do endereço.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Tx é a visão transacional de um conjunto de registros. Tudo que for lido e
// escrito dentro de Store.Update confirma junto ou nada confirma.
type Tx interface {
	Race(addr Address) (*Race, error)
	PutRace(addr Address, r *Race) error

	Bet(addr Address) (*Bet, error)
	PutBet(addr Address, b *Bet) error

	Profile(addr Address) (*UserProfile, error)
	PutProfile(addr Address, p *UserProfile) error

	Vault(addr Address) (*Vault, error)
	PutVault(addr Address, v *Vault) error

	// Saldos: endereço sem saldo vale 0.
	Balance(addr Address) (uint64, error)
	Credit(addr Address, amount uint64) error
	Debit(addr Address, amount uint64) error

	// Bets lista as apostas da corrida, ordenadas por placed_at e apostador.
	Bets(raceID string) ([]*Bet, error)

	// Emit grava a notificação no outbox na mesma transação.
	Emit(env events.Envelope) error
}

// Store executa transações atômicas com controle otimista de concorrência.
type Store interface {
	// Update aplica fn atomicamente. Se fn retorna erro nada é aplicado.
	// Conflito com outra transação retorna ErrWriteConflict.
	Update(ctx context.Context, fn func(Tx) error) error

	// View executa fn somente leitura sobre um único snapshot: todas as
	// leituras enxergam o mesmo estado confirmado.
	View(ctx context.Context, fn func(Tx) error) error
}

// Notifier recebe as notificações já confirmadas.
type Notifier interface {
	Notify(ctx context.Context, env events.Envelope) error
}

// NotifierFunc adapta uma função para Notifier.
type NotifierFunc func(ctx context.Context, env events.Envelope) error

func (f NotifierFunc) Notify(ctx context.Context, env events.Envelope) error { return f(ctx, env) }

// Notifiers repassa para todos; devolve o primeiro erro.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, env events.Envelope) error {
	var first error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, env); err != nil && first == nil {
			first = err
		}
	}
	return first
}
