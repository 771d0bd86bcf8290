package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// pgTx lembra a versão de cada linha lida; escrita em linha lida usa
// UPDATE ... WHERE version, escrita em linha ausente usa INSERT.
type pgTx struct {
	ctx      context.Context
	tx       *sql.Tx
	versions map[string]int64
}

func newTx(ctx context.Context, tx *sql.Tx) *pgTx {
	return &pgTx{ctx: ctx, tx: tx, versions: make(map[string]int64)}
}

func vkey(table string, addr escrow.Address) string { return table + ":" + addr.String() }

// write decide entre INSERT e UPDATE otimista.
func (t *pgTx) write(table string, addr escrow.Address, insert string, update string, args ...any) error {
	k := vkey(table, addr)
	v := t.versions[k]
	if v == 0 {
		if _, err := t.tx.ExecContext(t.ctx, insert, args...); err != nil {
			return mapErr(fmt.Errorf("insert %s: %w", table, err))
		}
		t.versions[k] = 1
		return nil
	}

	res, err := t.tx.ExecContext(t.ctx, update, append(args, v)...)
	if err != nil {
		return mapErr(fmt.Errorf("update %s: %w", table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", escrow.ErrWriteConflict, table, addr)
	}
	t.versions[k] = v + 1
	return nil
}

func (t *pgTx) Race(addr escrow.Address) (*escrow.Race, error) {
	var (
		r                  escrow.Race
		round, pot, status string
		authority          string
		totalBets          int64
		winner             sql.NullInt16
		bump               int16
		version            int64
	)
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT id, round::text, status, duration, start_time, end_time, total_pot::text, total_bets,
		       winner, authority, bump, version
		FROM races WHERE address=$1`, addr.String()).
		Scan(&r.ID, &round, &status, &r.Duration, &r.StartTime, &r.EndTime, &pot, &totalBets,
			&winner, &authority, &bump, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escrow.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("select race: %w", err))
	}

	if r.Round, err = parseU64("round", round); err != nil {
		return nil, err
	}
	if r.TotalPot, err = parseU64("total_pot", pot); err != nil {
		return nil, err
	}
	if r.Authority, err = escrow.ParsePubkey(authority); err != nil {
		return nil, err
	}
	if winner.Valid {
		w := escrow.OutcomeID(winner.Int16)
		r.Winner = &w
	}
	r.Status = escrow.RaceStatus(status)
	r.TotalBets = uint32(totalBets)
	r.Bump = uint8(bump)

	t.versions[vkey("races", addr)] = version
	return &r, nil
}

func (t *pgTx) PutRace(addr escrow.Address, r *escrow.Race) error {
	var winner sql.NullInt16
	if r.Winner != nil {
		winner = sql.NullInt16{Int16: int16(*r.Winner), Valid: true}
	}
	return t.write("races", addr, `
		INSERT INTO races (address,id,round,status,duration,start_time,end_time,total_pot,total_bets,winner,authority,bump)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, `
		UPDATE races SET id=$2, round=$3, status=$4, duration=$5, start_time=$6, end_time=$7,
		       total_pot=$8, total_bets=$9, winner=$10, authority=$11, bump=$12,
		       version=version+1, updated_at=now()
		WHERE address=$1 AND version=$13`,
		addr.String(), r.ID, u64(r.Round), string(r.Status), r.Duration, r.StartTime, r.EndTime,
		u64(r.TotalPot), int64(r.TotalBets), winner, r.Authority.String(), int16(r.Bump),
	)
}

func (t *pgTx) Bet(addr escrow.Address) (*escrow.Bet, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT race_id, bettor, outcome, amount::text, status, payout::text, rakeback::text, placed_at, bump, version
		FROM bets WHERE address=$1`, addr.String())
	b, version, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escrow.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("select bet: %w", err))
	}
	t.versions[vkey("bets", addr)] = version
	return b, nil
}

func (t *pgTx) PutBet(addr escrow.Address, b *escrow.Bet) error {
	return t.write("bets", addr, `
		INSERT INTO bets (address,race_id,bettor,outcome,amount,status,payout,rakeback,placed_at,bump)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, `
		UPDATE bets SET race_id=$2, bettor=$3, outcome=$4, amount=$5, status=$6, payout=$7,
		       rakeback=$8, placed_at=$9, bump=$10, version=version+1, updated_at=now()
		WHERE address=$1 AND version=$11`,
		addr.String(), b.RaceID, b.Bettor.String(), int16(b.Outcome), u64(b.Amount), string(b.Status),
		u64(b.Payout), u64(b.Rakeback), b.PlacedAt, int16(b.Bump),
	)
}

func (t *pgTx) Profile(addr escrow.Address) (*escrow.UserProfile, error) {
	var (
		wallet, wagered, won string
		active               []byte
		bump                 int16
		version              int64
	)
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT wallet, total_wagered::text, total_won::text, active_bets, bump, version
		FROM user_profiles WHERE address=$1`, addr.String()).
		Scan(&wallet, &wagered, &won, &active, &bump, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escrow.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("select profile: %w", err))
	}

	p := &escrow.UserProfile{Bump: uint8(bump), ActiveBets: make(map[string]escrow.Address)}
	if p.Wallet, err = escrow.ParsePubkey(wallet); err != nil {
		return nil, err
	}
	if p.TotalWagered, err = parseU64("total_wagered", wagered); err != nil {
		return nil, err
	}
	if p.TotalWon, err = parseU64("total_won", won); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(active, &p.ActiveBets); err != nil {
		return nil, fmt.Errorf("decode active_bets: %w", err)
	}

	t.versions[vkey("user_profiles", addr)] = version
	return p, nil
}

func (t *pgTx) PutProfile(addr escrow.Address, p *escrow.UserProfile) error {
	active := p.ActiveBets
	if active == nil {
		active = map[string]escrow.Address{}
	}
	b, err := json.Marshal(active)
	if err != nil {
		return fmt.Errorf("encode active_bets: %w", err)
	}
	return t.write("user_profiles", addr, `
		INSERT INTO user_profiles (address,wallet,total_wagered,total_won,active_bets,bump)
		VALUES ($1,$2,$3,$4,$5,$6)`, `
		UPDATE user_profiles SET wallet=$2, total_wagered=$3, total_won=$4, active_bets=$5, bump=$6,
		       version=version+1, updated_at=now()
		WHERE address=$1 AND version=$7`,
		addr.String(), p.Wallet.String(), u64(p.TotalWagered), u64(p.TotalWon), string(b), int16(p.Bump),
	)
}

func (t *pgTx) Vault(addr escrow.Address) (*escrow.Vault, error) {
	var (
		user, deposited, withdrawn string
		bump                       int16
		version                    int64
	)
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT user_key, total_deposited::text, total_withdrawn::text, bump, version
		FROM vaults WHERE address=$1`, addr.String()).
		Scan(&user, &deposited, &withdrawn, &bump, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escrow.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("select vault: %w", err))
	}

	v := &escrow.Vault{Bump: uint8(bump)}
	if v.User, err = escrow.ParsePubkey(user); err != nil {
		return nil, err
	}
	if v.TotalDeposited, err = parseU64("total_deposited", deposited); err != nil {
		return nil, err
	}
	if v.TotalWithdrawn, err = parseU64("total_withdrawn", withdrawn); err != nil {
		return nil, err
	}

	t.versions[vkey("vaults", addr)] = version
	return v, nil
}

func (t *pgTx) PutVault(addr escrow.Address, v *escrow.Vault) error {
	return t.write("vaults", addr, `
		INSERT INTO vaults (address,user_key,total_deposited,total_withdrawn,bump)
		VALUES ($1,$2,$3,$4,$5)`, `
		UPDATE vaults SET user_key=$2, total_deposited=$3, total_withdrawn=$4, bump=$5,
		       version=version+1, updated_at=now()
		WHERE address=$1 AND version=$6`,
		addr.String(), v.User.String(), u64(v.TotalDeposited), u64(v.TotalWithdrawn), int16(v.Bump),
	)
}

func (t *pgTx) Balance(addr escrow.Address) (uint64, error) {
	var s string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount::text FROM balances WHERE address=$1`, addr.String()).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapErr(fmt.Errorf("select balance: %w", err))
	}
	return parseU64("balance", s)
}

// Credit soma em uint64, como o pot da corrida, para que saldo e pot
// tenham a mesma aritmética; a soma em NUMERIC não daria a volta.
func (t *pgTx) Credit(addr escrow.Address, amount uint64) error {
	bal, err := t.Balance(addr)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO balances (address, amount) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at=now()`,
		addr.String(), u64(bal+amount))
	if err != nil {
		return mapErr(fmt.Errorf("credit: %w", err))
	}
	return nil
}

// Debit é condicional ao saldo; nenhuma linha afetada significa saldo insuficiente.
func (t *pgTx) Debit(addr escrow.Address, amount uint64) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE balances SET amount = amount - $2::numeric, updated_at=now()
		WHERE address=$1 AND amount >= $2::numeric`,
		addr.String(), u64(amount))
	if err != nil {
		return mapErr(fmt.Errorf("debit: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return escrow.ErrInsufficientFunds
	}
	return nil
}

func (t *pgTx) Bets(raceID string) ([]*escrow.Bet, error) {
	return queryBets(t.ctx, t.tx, raceID)
}

func (t *pgTx) Emit(env events.Envelope) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO escrow_notifications (id, type, race_id, ts_unix_ms, payload)
		VALUES ($1,$2,$3,$4,$5)`,
		env.ID, env.Type, env.RaceID, env.TsUnixMs, string(env.Payload))
	if err != nil {
		return mapErr(fmt.Errorf("insert notification: %w", err))
	}
	return nil
}
