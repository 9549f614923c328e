package model

import "fmt"

// PoolState is the durable record of a pool's share supply and fee schedule.
type PoolState struct {
	TotalShares    uint64 `json:"total_shares"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
}

// Validate checks the fee schedule invariant.
func (p PoolState) Validate() error {
	if p.FeeDenominator == 0 {
		return fmt.Errorf("fee denominator must be greater than zero")
	}
	if p.FeeNumerator > p.FeeDenominator {
		return fmt.Errorf("fee numerator %d exceeds denominator %d", p.FeeNumerator, p.FeeDenominator)
	}
	return nil
}

// Reserves is a snapshot of the custodied amounts of both pooled assets.
type Reserves struct {
	Reserve0 uint64 `json:"reserve0"`
	Reserve1 uint64 `json:"reserve1"`
}

// Empty reports whether the pool holds nothing of either asset.
func (r Reserves) Empty() bool {
	return r.Reserve0 == 0 && r.Reserve1 == 0
}

// Oriented returns (source, destination) reserves for a swap direction.
func (r Reserves) Oriented(dir Direction) (uint64, uint64) {
	if dir == OneForZero {
		return r.Reserve1, r.Reserve0
	}
	return r.Reserve0, r.Reserve1
}

// Holdings are the balances a caller has available to an operation.
type Holdings struct {
	Asset0 uint64 `json:"asset0"`
	Asset1 uint64 `json:"asset1"`
	Shares uint64 `json:"shares"`
}

// Of returns the holding of a single asset.
func (h Holdings) Of(asset Asset) uint64 {
	switch asset {
	case Asset0:
		return h.Asset0
	case Asset1:
		return h.Asset1
	case AssetShare:
		return h.Shares
	default:
		return 0
	}
}
