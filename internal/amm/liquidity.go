package amm

import (
	"fmt"
	"strings"

	"ammCore/internal/model"
)

// RateMode selects how the steady-state deposit of asset1 is priced.
type RateMode int

const (
	// RateTruncated floors reserve1/reserve0 to an integer rate before multiplying. Default.
	RateTruncated RateMode = iota
	// RatePrecise computes floor(amount0 * reserve1 / reserve0) in one step.
	RatePrecise
)

func (m RateMode) String() string {
	if m == RatePrecise {
		return "precise"
	}
	return "truncated"
}

// ParseRateMode parses "truncated" or "precise".
func ParseRateMode(input string) (RateMode, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "truncated", "compat":
		return RateTruncated, nil
	case "precise":
		return RatePrecise, nil
	default:
		return RateTruncated, fmt.Errorf("invalid rate mode: %s", input)
	}
}

// LiquidityEngine sizes deposits and withdrawals against a reserve snapshot.
type LiquidityEngine struct {
	RateMode RateMode
}

// NewLiquidityEngine returns an engine using the given rate mode.
func NewLiquidityEngine(mode RateMode) LiquidityEngine {
	return LiquidityEngine{RateMode: mode}
}

// AddLiquidity computes the accepted deposit and minted shares and, on success only,
// adds the minted shares to state.TotalShares.
func (e LiquidityEngine) AddLiquidity(state *model.PoolState, reserves model.Reserves, holdings model.Holdings, req model.AddLiquidityRequest) (model.AddLiquidityResult, error) {
	if state == nil {
		return model.AddLiquidityResult{}, fmt.Errorf("pool state is nil")
	}
	if req.Amount0 > holdings.Asset0 {
		return model.AddLiquidityResult{}, fmt.Errorf("%w: asset0 requested %d, available %d", ErrInsufficientBalance, req.Amount0, holdings.Asset0)
	}
	if req.Amount1 > holdings.Asset1 {
		return model.AddLiquidityResult{}, fmt.Errorf("%w: asset1 requested %d, available %d", ErrInsufficientBalance, req.Amount1, holdings.Asset1)
	}

	var (
		deposit0 = req.Amount0
		deposit1 uint64
		minted   uint64
		err      error
	)
	if reserves.Empty() {
		deposit1 = req.Amount1
		minted, err = bootstrapShares(req.Amount0, req.Amount1)
	} else {
		deposit1, minted, err = e.steadyState(state.TotalShares, reserves, req)
	}
	if err != nil {
		return model.AddLiquidityResult{}, err
	}
	if minted == 0 {
		return model.AddLiquidityResult{}, fmt.Errorf("%w: deposit %d/%d", ErrZeroMintAmount, deposit0, deposit1)
	}

	if _, err := checkedAdd(reserves.Reserve0, deposit0); err != nil {
		return model.AddLiquidityResult{}, fmt.Errorf("asset0 reserve: %w", err)
	}
	if _, err := checkedAdd(reserves.Reserve1, deposit1); err != nil {
		return model.AddLiquidityResult{}, fmt.Errorf("asset1 reserve: %w", err)
	}
	total, err := checkedAdd(state.TotalShares, minted)
	if err != nil {
		return model.AddLiquidityResult{}, fmt.Errorf("share supply: %w", err)
	}
	state.TotalShares = total

	return model.AddLiquidityResult{
		Deposit0:     deposit0,
		Deposit1:     deposit1,
		SharesMinted: minted,
		Instructions: []model.Instruction{
			model.Transfer(model.Asset0, model.UserToPool, deposit0),
			model.Transfer(model.Asset1, model.UserToPool, deposit1),
			model.Mint(minted),
		},
	}, nil
}

// bootstrapShares mints the floor average of both amounts for the first depositor.
func bootstrapShares(amount0, amount1 uint64) (uint64, error) {
	sum, err := add(widen(amount0), widen(amount1))
	if err != nil {
		return 0, err
	}
	return narrow(sum.Rsh(sum, 1))
}

func (e LiquidityEngine) steadyState(totalShares uint64, reserves model.Reserves, req model.AddLiquidityRequest) (uint64, uint64, error) {
	if reserves.Reserve0 == 0 || reserves.Reserve1 == 0 {
		return 0, 0, fmt.Errorf("%w: one-sided reserves %d/%d", ErrEmptyReserves, reserves.Reserve0, reserves.Reserve1)
	}

	var (
		deposit1 uint64
		err      error
	)
	switch e.RateMode {
	case RatePrecise:
		deposit1, err = mulDiv(req.Amount0, reserves.Reserve1, reserves.Reserve0)
	default:
		rate := reserves.Reserve1 / reserves.Reserve0
		deposit1, err = checkedMul(req.Amount0, rate)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("asset1 deposit: %w", err)
	}
	if deposit1 > req.Amount1 {
		return 0, 0, fmt.Errorf("%w: asset1 deposit %d exceeds offered %d", ErrInsufficientBalance, deposit1, req.Amount1)
	}

	minted, err := mulDiv(deposit1, totalShares, reserves.Reserve1)
	if err != nil {
		return 0, 0, fmt.Errorf("shares minted: %w", err)
	}
	return deposit1, minted, nil
}

// RemoveLiquidity computes the pro-rata payout for burning shares and, on success only,
// subtracts them from state.TotalShares.
func (e LiquidityEngine) RemoveLiquidity(state *model.PoolState, reserves model.Reserves, holdings model.Holdings, req model.RemoveLiquidityRequest) (model.RemoveLiquidityResult, error) {
	if state == nil {
		return model.RemoveLiquidityResult{}, fmt.Errorf("pool state is nil")
	}
	burn := req.SharesBurned
	if burn > holdings.Shares {
		return model.RemoveLiquidityResult{}, fmt.Errorf("%w: shares requested %d, held %d", ErrInsufficientBalance, burn, holdings.Shares)
	}
	if burn > state.TotalShares || state.TotalShares == 0 {
		return model.RemoveLiquidityResult{}, fmt.Errorf("%w: burn %d, supply %d", ErrBurnExceedsSupply, burn, state.TotalShares)
	}

	amount0, err := mulDiv(burn, reserves.Reserve0, state.TotalShares)
	if err != nil {
		return model.RemoveLiquidityResult{}, fmt.Errorf("asset0 out: %w", err)
	}
	amount1, err := mulDiv(burn, reserves.Reserve1, state.TotalShares)
	if err != nil {
		return model.RemoveLiquidityResult{}, fmt.Errorf("asset1 out: %w", err)
	}

	if amount0 < req.MinAmount0Out {
		return model.RemoveLiquidityResult{}, fmt.Errorf("%w: asset0 out %d below minimum %d", ErrSlippageExceeded, amount0, req.MinAmount0Out)
	}
	if amount1 < req.MinAmount1Out {
		return model.RemoveLiquidityResult{}, fmt.Errorf("%w: asset1 out %d below minimum %d", ErrSlippageExceeded, amount1, req.MinAmount1Out)
	}

	state.TotalShares -= burn

	return model.RemoveLiquidityResult{
		Amount0Out: amount0,
		Amount1Out: amount1,
		Instructions: []model.Instruction{
			model.Burn(burn),
			model.Transfer(model.Asset0, model.PoolToUser, amount0),
			model.Transfer(model.Asset1, model.PoolToUser, amount1),
		},
	}, nil
}
