package escrow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

// InitializeVault cria o cofre do usuário com saldo zero.
func (e *Engine) InitializeVault(ctx context.Context, user Pubkey) (*Vault, error) {
	addr, bump, err := e.locate(vaultSeeds(user))
	if err != nil {
		return nil, err
	}

	var out *Vault
	err = e.run(ctx, "initialize_vault", func(tx Tx, emit emitFunc) error {
		_, err := tx.Vault(addr)
		switch {
		case err == nil:
			return WithMetadata(CodeDuplicateVault, ErrDuplicateVault.Message, map[string]string{"user": user.String()})
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("load vault %s: %w", user, err)
		}

		v := &Vault{User: user, Bump: bump}
		if err := tx.PutVault(addr, v); err != nil {
			return err
		}
		bal, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		out = v.Clone()
		out.Balance = bal
		return emit(events.VaultInitialized{User: user.String(), Vault: addr.String()})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("vault initialized", zap.String("user", user.String()), zap.String("vault", addr.String()))
	return out, nil
}

// Deposit credita o cofre com valor vindo de fora do ledger.
func (e *Engine) Deposit(ctx context.Context, user Pubkey, amount uint64) (*Vault, error) {
	out, err := e.moveVault(ctx, "deposit", user, amount, func(tx Tx, addr Address, v *Vault, emit emitFunc) error {
		if err := tx.Credit(addr, amount); err != nil {
			return err
		}
		v.TotalDeposited += amount
		bal, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		v.Balance = bal
		return emit(events.Deposited{User: user.String(), Amount: amount, NewBalance: bal})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("vault deposit", zap.String("user", user.String()), zap.Uint64("amount", amount), zap.Uint64("balance", out.Balance))
	return out, nil
}

// Withdraw debita o cofre; o saldo nunca fica negativo.
func (e *Engine) Withdraw(ctx context.Context, user Pubkey, amount uint64) (*Vault, error) {
	out, err := e.moveVault(ctx, "withdraw", user, amount, func(tx Tx, addr Address, v *Vault, emit emitFunc) error {
		bal, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		if bal < amount {
			return WithMetadata(CodeInsufficientBalance, ErrInsufficientBalance.Message, map[string]string{
				"user":    user.String(),
				"balance": strconv.FormatUint(bal, 10),
				"amount":  strconv.FormatUint(amount, 10),
			})
		}
		if err := tx.Debit(addr, amount); err != nil {
			return err
		}
		v.TotalWithdrawn += amount
		v.Balance = bal - amount
		return emit(events.Withdrawn{User: user.String(), Amount: amount, NewBalance: v.Balance})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("vault withdraw", zap.String("user", user.String()), zap.Uint64("amount", amount), zap.Uint64("balance", out.Balance))
	return out, nil
}

func (e *Engine) moveVault(ctx context.Context, op string, user Pubkey, amount uint64, apply func(Tx, Address, *Vault, emitFunc) error) (*Vault, error) {
	if amount == 0 {
		return nil, WithMetadata(CodeInvalidAmount, ErrInvalidAmount.Message, map[string]string{"user": user.String()})
	}
	addr, _, err := e.locate(vaultSeeds(user))
	if err != nil {
		return nil, err
	}

	var out *Vault
	err = e.run(ctx, op, func(tx Tx, emit emitFunc) error {
		v, err := loadVault(tx, addr, user)
		if err != nil {
			return err
		}
		if err := apply(tx, addr, v, emit); err != nil {
			return err
		}
		if err := tx.PutVault(addr, v); err != nil {
			return err
		}
		out = v.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadVault(tx Tx, addr Address, user Pubkey) (*Vault, error) {
	v, err := tx.Vault(addr)
	if errors.Is(err, ErrNotFound) {
		return nil, WithMetadata(CodeVaultNotFound, ErrVaultNotFound.Message, map[string]string{"user": user.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("load vault %s: %w", user, err)
	}
	return v, nil
}
