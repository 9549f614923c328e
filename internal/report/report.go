// Package report renders pool amounts and prices for display.
package report

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"ammCore/internal/model"
)

// PriceScale is the number of fractional digits kept by price divisions.
const PriceScale = 18

// FormatAmount renders a raw token amount with the given decimals.
func FormatAmount(value uint64, decimals uint8) string {
	return FormatBig(new(big.Int).SetUint64(value), decimals)
}

// FormatBig renders a raw big-integer token amount with the given decimals.
func FormatBig(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// SpotPrice is the price of one whole asset0 in asset1. ok is false for empty reserves.
func SpotPrice(reserves model.Reserves, decimals0, decimals1 uint8) (decimal.Decimal, bool) {
	if reserves.Reserve0 == 0 || reserves.Reserve1 == 0 {
		return decimal.Zero, false
	}
	r0 := decimal.NewFromBigInt(new(big.Int).SetUint64(reserves.Reserve0), -int32(decimals0))
	r1 := decimal.NewFromBigInt(new(big.Int).SetUint64(reserves.Reserve1), -int32(decimals1))
	return r1.DivRound(r0, PriceScale), true
}

// FeeRate returns the fee schedule as a fraction.
func FeeRate(state model.PoolState) (decimal.Decimal, error) {
	if err := state.Validate(); err != nil {
		return decimal.Zero, err
	}
	return fromUint(state.FeeNumerator).DivRound(fromUint(state.FeeDenominator), PriceScale), nil
}

// PriceImpact is 1 - execution price / spot price for a quote, fee included.
func PriceImpact(q model.SwapQuote) (decimal.Decimal, error) {
	if q.AmountIn == 0 || q.ReserveSrc == 0 || q.ReserveDst == 0 {
		return decimal.Zero, fmt.Errorf("price impact undefined for empty input or reserves")
	}
	num := fromUint(q.AmountOut).Mul(fromUint(q.ReserveSrc))
	den := fromUint(q.AmountIn).Mul(fromUint(q.ReserveDst))
	return decimal.NewFromInt(1).Sub(num.DivRound(den, PriceScale)), nil
}

// ShareOf is the fraction of the supply held by shares.
func ShareOf(state model.PoolState, shares uint64) decimal.Decimal {
	if state.TotalShares == 0 {
		return decimal.Zero
	}
	return fromUint(shares).DivRound(fromUint(state.TotalShares), PriceScale)
}
