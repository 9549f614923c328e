package model

// Snapshot is the committed state of one pool: share supply, fee schedule and the
// custody balances of every account, including the pool vault.
type Snapshot struct {
	PoolID    string                      `json:"pool_id"`
	Sequence  uint64                      `json:"sequence"`
	Pool      PoolState                   `json:"pool"`
	Balances  map[string]map[Asset]uint64 `json:"balances"`
	UpdatedAt string                      `json:"updated_at"`
}

// CloneBalances returns a deep copy of the balance table.
func (s Snapshot) CloneBalances() map[string]map[Asset]uint64 {
	out := make(map[string]map[Asset]uint64, len(s.Balances))
	for account, assets := range s.Balances {
		copied := make(map[Asset]uint64, len(assets))
		for asset, amount := range assets {
			copied[asset] = amount
		}
		out[account] = copied
	}
	return out
}
