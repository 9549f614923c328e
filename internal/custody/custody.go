package custody

import (
	"errors"
	"fmt"

	"ammCore/internal/model"
)

// PoolAccount is the custody account holding the pool's reserves.
const PoolAccount = "pool"

// ErrInsufficientFunds is returned when a debit or burn exceeds the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Custody moves pooled assets between accounts.
type Custody interface {
	Debit(account string, asset model.Asset, amount uint64) error
	Credit(account string, asset model.Asset, amount uint64) error
}

// ShareToken mints and burns liquidity shares.
type ShareToken interface {
	Mint(account string, amount uint64) error
	Burn(account string, amount uint64) error
}

// Execute applies instructions for account in order. It stops at the first failure;
// callers run it against a scratch ledger so a partial run is never committed.
func Execute(c Custody, token ShareToken, account string, instructions []model.Instruction) error {
	if account == PoolAccount {
		return fmt.Errorf("account %q is reserved", account)
	}
	for i, ins := range instructions {
		var err error
		switch ins.Kind {
		case model.KindTransfer:
			err = transfer(c, account, ins)
		case model.KindMint:
			err = token.Mint(account, ins.Amount)
		case model.KindBurn:
			err = token.Burn(account, ins.Amount)
		default:
			err = fmt.Errorf("unknown instruction kind %q", ins.Kind)
		}
		if err != nil {
			return fmt.Errorf("instruction %d (%s %s): %w", i, ins.Kind, ins.Asset, err)
		}
	}
	return nil
}

func transfer(c Custody, account string, ins model.Instruction) error {
	if ins.Asset != model.Asset0 && ins.Asset != model.Asset1 {
		return fmt.Errorf("cannot transfer %s", ins.Asset)
	}
	from, to := account, PoolAccount
	switch ins.Flow {
	case model.UserToPool:
	case model.PoolToUser:
		from, to = PoolAccount, account
	default:
		return fmt.Errorf("unknown flow %q", ins.Flow)
	}
	if ins.Amount == 0 {
		return nil
	}
	if err := c.Debit(from, ins.Asset, ins.Amount); err != nil {
		return err
	}
	return c.Credit(to, ins.Asset, ins.Amount)
}
