package model

// AddLiquidityRequest is the caller's requested deposit.
type AddLiquidityRequest struct {
	Amount0 uint64 `json:"amount0"`
	Amount1 uint64 `json:"amount1"`
}

// AddLiquidityResult is the accepted deposit and minted shares.
type AddLiquidityResult struct {
	Deposit0     uint64        `json:"deposit0"`
	Deposit1     uint64        `json:"deposit1"`
	SharesMinted uint64        `json:"shares_minted"`
	Instructions []Instruction `json:"instructions"`
}

// RemoveLiquidityRequest burns shares. Zero minimums disable the output floors.
type RemoveLiquidityRequest struct {
	SharesBurned  uint64 `json:"shares_burned"`
	MinAmount0Out uint64 `json:"min_amount0_out,omitempty"`
	MinAmount1Out uint64 `json:"min_amount1_out,omitempty"`
}

// RemoveLiquidityResult is the amount of each asset paid out.
type RemoveLiquidityResult struct {
	Amount0Out   uint64        `json:"amount0_out"`
	Amount1Out   uint64        `json:"amount1_out"`
	Instructions []Instruction `json:"instructions"`
}

// SwapRequest sells AmountIn of the direction's source asset.
type SwapRequest struct {
	AmountIn     uint64    `json:"amount_in"`
	MinAmountOut uint64    `json:"min_amount_out"`
	Direction    Direction `json:"direction"`
}

// SwapResult is the executed swap output.
type SwapResult struct {
	AmountOut    uint64        `json:"amount_out"`
	Fee          uint64        `json:"fee"`
	Instructions []Instruction `json:"instructions"`
}

// SwapQuote is a read-only estimate of a swap against a reserve snapshot.
type SwapQuote struct {
	Direction     Direction `json:"direction"`
	AmountIn      uint64    `json:"amount_in"`
	Fee           uint64    `json:"fee"`
	AmountOut     uint64    `json:"amount_out"`
	ReserveSrc    uint64    `json:"reserve_src"`
	ReserveDst    uint64    `json:"reserve_dst"`
	NewReserveSrc uint64    `json:"new_reserve_src"`
	NewReserveDst uint64    `json:"new_reserve_dst"`
}

// InitRequest creates a pool with a fee schedule.
type InitRequest struct {
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
}

// FundRequest credits an account with a pooled asset from outside the pool.
type FundRequest struct {
	Asset  Asset  `json:"asset"`
	Amount uint64 `json:"amount"`
}
