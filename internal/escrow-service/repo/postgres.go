package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

var _ escrow.Store = (*Postgres)(nil)

// Postgres implementa escrow.Store sobre Postgres. Cada Update roda em uma
// transação SERIALIZABLE e as linhas carregam version; qualquer disputa vira
// escrow.ErrWriteConflict.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o store do escrow
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Update(ctx context.Context, fn func(escrow.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	t := newTx(ctx, tx)
	if err := fn(t); err != nil {
		_ = tx.Rollback()
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(escrow.Tx) error) error {
	// REPEATABLE READ fixa o snapshot na primeira leitura
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return mapErr(fn(newTx(ctx, tx)))
}

func queryBets(ctx context.Context, tx *sql.Tx, raceID string) ([]*escrow.Bet, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT race_id, bettor, outcome, amount::text, status, payout::text, rakeback::text, placed_at, bump, version
		FROM bets WHERE race_id=$1 ORDER BY placed_at, bettor`, raceID)
	if err != nil {
		return nil, fmt.Errorf("query bets: %w", err)
	}
	defer rows.Close()

	var out []*escrow.Bet
	for rows.Next() {
		b, _, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Outbox

// Pending lista notificações não publicadas e não mortas, em ordem.
func (p *Postgres) Pending(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT seq, id, type, race_id, ts_unix_ms, payload, attempts
		FROM escrow_notifications
		WHERE published_at IS NULL AND NOT dead
		ORDER BY seq LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []events.OutboxEntry
	for rows.Next() {
		var (
			e       events.OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.Envelope.ID, &e.Envelope.Type, &e.Envelope.RaceID,
			&e.Envelope.TsUnixMs, &payload, &e.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		e.Envelope.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkPublished(ctx context.Context, seq int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE escrow_notifications SET published_at=now() WHERE seq=$1`, seq)
	return err
}

// MarkFailed soma uma tentativa; dead tira a notificação da fila.
func (p *Postgres) MarkFailed(ctx context.Context, seq int64, cause string, dead bool) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE escrow_notifications
		SET attempts = attempts + 1, last_error=$2, dead=$3
		WHERE seq=$1`, seq, cause, dead)
	return err
}

// mapErr converte disputas de concorrência do Postgres no erro do store.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505": // serialization_failure, deadlock_detected, unique_violation
			return fmt.Errorf("%w: %s", escrow.ErrWriteConflict, pqErr.Message)
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func parseU64(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

func scanBet(row rowScanner) (*escrow.Bet, int64, error) {
	var (
		b                        escrow.Bet
		bettor, status           string
		amount, payout, rakeback string
		outcome, bump            int16
		version                  int64
	)
	if err := row.Scan(&b.RaceID, &bettor, &outcome, &amount, &status, &payout, &rakeback,
		&b.PlacedAt, &bump, &version); err != nil {
		return nil, 0, err
	}

	var err error
	if b.Bettor, err = escrow.ParsePubkey(bettor); err != nil {
		return nil, 0, err
	}
	if b.Amount, err = parseU64("amount", amount); err != nil {
		return nil, 0, err
	}
	if b.Payout, err = parseU64("payout", payout); err != nil {
		return nil, 0, err
	}
	if b.Rakeback, err = parseU64("rakeback", rakeback); err != nil {
		return nil, 0, err
	}
	b.Outcome = escrow.OutcomeID(outcome)
	b.Status = escrow.BetStatus(status)
	b.Bump = uint8(bump)
	return &b, version, nil
}
