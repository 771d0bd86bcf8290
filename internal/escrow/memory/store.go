// Package memory implementa escrow.Store em memória, com o mesmo controle
// otimista do Postgres. Usado em testes e no modo local.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

var _ escrow.Store = (*Store)(nil)

var errReadOnly = errors.New("memory: write in read-only transaction")

type kind uint8

const (
	kindRace kind = iota
	kindBet
	kindProfile
	kindVault
	kindBalance
)

type key struct {
	kind kind
	addr escrow.Address
}

// entry guarda o valor e a versão; versão 0 significa ausente.
type entry struct {
	val     any
	version uint64
}

type Store struct {
	mu     sync.Mutex
	data   map[key]entry
	outbox []events.Envelope
}

func New() *Store {
	return &Store{data: make(map[key]entry)}
}

// Update executa fn com leituras versionadas e escritas em buffer. No commit
// toda chave lida ou escrita precisa estar na mesma versão.
func (s *Store) Update(ctx context.Context, fn func(escrow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s, false)
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

// View lê de uma cópia do estado tirada no início; commits concorrentes não
// aparecem no meio da leitura.
func (s *Store) View(ctx context.Context, fn func(escrow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s, true)
	s.mu.Lock()
	t.snap = make(map[key]entry, len(s.data))
	for k, e := range s.data {
		t.snap[k] = e
	}
	s.mu.Unlock()
	return fn(t)
}

// collectBets filtra as apostas da corrida; writes (se houver) sobrepõem data.
func collectBets(data map[key]entry, writes map[key]any, raceID string) []*escrow.Bet {
	var out []*escrow.Bet
	for k, e := range data {
		if k.kind != kindBet {
			continue
		}
		if _, ok := writes[k]; ok {
			continue
		}
		if b := e.val.(*escrow.Bet); b.RaceID == raceID {
			out = append(out, b.Clone())
		}
	}
	for k, v := range writes {
		if k.kind != kindBet {
			continue
		}
		if b := v.(*escrow.Bet); b.RaceID == raceID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAt != out[j].PlacedAt {
			return out[i].PlacedAt < out[j].PlacedAt
		}
		return out[i].Bettor.String() < out[j].Bettor.String()
	})
	return out
}

// Notifications devolve uma cópia do outbox confirmado.
func (s *Store) Notifications() []events.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Envelope(nil), s.outbox...)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range t.reads {
		if s.data[k].version != v {
			return escrow.ErrWriteConflict
		}
	}
	for k, val := range t.writes {
		cur := s.data[k]
		s.data[k] = entry{val: val, version: cur.version + 1}
	}
	s.outbox = append(s.outbox, t.emitted...)
	return nil
}

func (s *Store) peek(k key) (entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[k]
	return e, ok
}

type tx struct {
	s        *Store
	snap     map[key]entry // só em View
	readOnly bool
	reads    map[key]uint64
	writes   map[key]any
	emitted  []events.Envelope
}

func newTx(s *Store, readOnly bool) *tx {
	return &tx{
		s:        s,
		readOnly: readOnly,
		reads:    make(map[key]uint64),
		writes:   make(map[key]any),
	}
}

func (t *tx) get(k key) (any, bool) {
	if v, ok := t.writes[k]; ok {
		return v, true
	}
	if t.snap != nil {
		e, ok := t.snap[k]
		return e.val, ok
	}
	e, ok := t.s.peek(k)
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = e.version
	}
	return e.val, ok
}

func (t *tx) put(k key, v any) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, seen := t.reads[k]; !seen {
		e, _ := t.s.peek(k)
		t.reads[k] = e.version
	}
	t.writes[k] = v
	return nil
}

func (t *tx) Race(addr escrow.Address) (*escrow.Race, error) {
	v, ok := t.get(key{kindRace, addr})
	if !ok {
		return nil, escrow.ErrNotFound
	}
	return v.(*escrow.Race).Clone(), nil
}

func (t *tx) PutRace(addr escrow.Address, r *escrow.Race) error {
	return t.put(key{kindRace, addr}, r.Clone())
}

func (t *tx) Bet(addr escrow.Address) (*escrow.Bet, error) {
	v, ok := t.get(key{kindBet, addr})
	if !ok {
		return nil, escrow.ErrNotFound
	}
	return v.(*escrow.Bet).Clone(), nil
}

func (t *tx) PutBet(addr escrow.Address, b *escrow.Bet) error {
	return t.put(key{kindBet, addr}, b.Clone())
}

func (t *tx) Profile(addr escrow.Address) (*escrow.UserProfile, error) {
	v, ok := t.get(key{kindProfile, addr})
	if !ok {
		return nil, escrow.ErrNotFound
	}
	return v.(*escrow.UserProfile).Clone(), nil
}

func (t *tx) PutProfile(addr escrow.Address, p *escrow.UserProfile) error {
	return t.put(key{kindProfile, addr}, p.Clone())
}

func (t *tx) Vault(addr escrow.Address) (*escrow.Vault, error) {
	v, ok := t.get(key{kindVault, addr})
	if !ok {
		return nil, escrow.ErrNotFound
	}
	return v.(*escrow.Vault).Clone(), nil
}

func (t *tx) PutVault(addr escrow.Address, v *escrow.Vault) error {
	return t.put(key{kindVault, addr}, v.Clone())
}

func (t *tx) Balance(addr escrow.Address) (uint64, error) {
	v, ok := t.get(key{kindBalance, addr})
	if !ok {
		return 0, nil
	}
	return v.(uint64), nil
}

func (t *tx) Credit(addr escrow.Address, amount uint64) error {
	bal, err := t.Balance(addr)
	if err != nil {
		return err
	}
	return t.put(key{kindBalance, addr}, bal+amount)
}

func (t *tx) Debit(addr escrow.Address, amount uint64) error {
	bal, err := t.Balance(addr)
	if err != nil {
		return err
	}
	if bal < amount {
		return escrow.ErrInsufficientFunds
	}
	return t.put(key{kindBalance, addr}, bal-amount)
}

func (t *tx) Bets(raceID string) ([]*escrow.Bet, error) {
	if t.snap != nil {
		return collectBets(t.snap, nil, raceID), nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return collectBets(t.s.data, t.writes, raceID), nil
}

func (t *tx) Emit(env events.Envelope) error {
	if t.readOnly {
		return errReadOnly
	}
	t.emitted = append(t.emitted, env)
	return nil
}
