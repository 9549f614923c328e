package custody

import (
	"fmt"
	"math"
	"sort"

	"ammCore/internal/model"
)

// Ledger is an in-memory balance table implementing Custody and ShareToken.
// It is not safe for concurrent use; the pool service serializes access.
type Ledger struct {
	balances map[string]map[model.Asset]uint64
}

// NewLedger copies balances into a new ledger.
func NewLedger(balances map[string]map[model.Asset]uint64) *Ledger {
	snap := model.Snapshot{Balances: balances}
	return &Ledger{balances: snap.CloneBalances()}
}

// BalanceOf returns the account's balance of asset.
func (l *Ledger) BalanceOf(account string, asset model.Asset) uint64 {
	return l.balances[account][asset]
}

// Holdings returns every balance an operation may spend for account.
func (l *Ledger) Holdings(account string) model.Holdings {
	return model.Holdings{
		Asset0: l.BalanceOf(account, model.Asset0),
		Asset1: l.BalanceOf(account, model.Asset1),
		Shares: l.BalanceOf(account, model.AssetShare),
	}
}

// Reserves returns the pool vault balances.
func (l *Ledger) Reserves() model.Reserves {
	return model.Reserves{
		Reserve0: l.BalanceOf(PoolAccount, model.Asset0),
		Reserve1: l.BalanceOf(PoolAccount, model.Asset1),
	}
}

// Accounts lists accounts with a balance entry, sorted.
func (l *Ledger) Accounts() []string {
	out := make([]string, 0, len(l.balances))
	for account := range l.balances {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}

// Balances returns a copy of the balance table.
func (l *Ledger) Balances() map[string]map[model.Asset]uint64 {
	snap := model.Snapshot{Balances: l.balances}
	return snap.CloneBalances()
}

// Debit removes amount of asset from account, failing with ErrInsufficientFunds.
func (l *Ledger) Debit(account string, asset model.Asset, amount uint64) error {
	have := l.BalanceOf(account, asset)
	if amount > have {
		return fmt.Errorf("%w: %s holds %d %s, needs %d", ErrInsufficientFunds, account, have, asset, amount)
	}
	l.set(account, asset, have-amount)
	return nil
}

// Credit adds amount of asset to account, failing if the balance would overflow u64.
func (l *Ledger) Credit(account string, asset model.Asset, amount uint64) error {
	have := l.BalanceOf(account, asset)
	if amount > math.MaxUint64-have {
		return fmt.Errorf("credit %d %s to %s overflows balance %d", amount, asset, account, have)
	}
	l.set(account, asset, have+amount)
	return nil
}

// Mint credits pool shares to account.
func (l *Ledger) Mint(account string, amount uint64) error {
	return l.Credit(account, model.AssetShare, amount)
}

// Burn debits pool shares from account.
func (l *Ledger) Burn(account string, amount uint64) error {
	return l.Debit(account, model.AssetShare, amount)
}

func (l *Ledger) set(account string, asset model.Asset, amount uint64) {
	assets, ok := l.balances[account]
	if !ok {
		assets = make(map[model.Asset]uint64)
		l.balances[account] = assets
	}
	if amount == 0 {
		delete(assets, asset)
		if len(assets) == 0 {
			delete(l.balances, account)
		}
		return
	}
	assets[asset] = amount
}
