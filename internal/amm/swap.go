package amm

import (
	"fmt"

	"ammCore/internal/model"
)

// SwapEngine prices single-direction trades on the constant-product curve with a
// proportional fee taken from the input.
type SwapEngine struct{}

// NewSwapEngine returns a swap engine.
func NewSwapEngine() SwapEngine {
	return SwapEngine{}
}

// Swap sizes a trade of req.AmountIn against the reserve snapshot. available is the
// trader's balance of the source asset. The pool state is only read.
func (SwapEngine) Swap(state model.PoolState, reserves model.Reserves, available uint64, req model.SwapRequest) (model.SwapResult, error) {
	if req.AmountIn > available {
		return model.SwapResult{}, fmt.Errorf("%w: %s requested %d, available %d", ErrInsufficientBalance, req.Direction.Source(), req.AmountIn, available)
	}

	q, err := quote(state, reserves, req.AmountIn, req.Direction)
	if err != nil {
		return model.SwapResult{}, err
	}
	if q.AmountOut < req.MinAmountOut {
		return model.SwapResult{}, fmt.Errorf("%w: out %d below minimum %d", ErrSlippageExceeded, q.AmountOut, req.MinAmountOut)
	}

	return model.SwapResult{
		AmountOut: q.AmountOut,
		Fee:       q.Fee,
		Instructions: []model.Instruction{
			model.Transfer(req.Direction.Source(), model.UserToPool, req.AmountIn),
			model.Transfer(req.Direction.Destination(), model.PoolToUser, q.AmountOut),
		},
	}, nil
}

// QuoteSwap runs the swap arithmetic without balance or slippage checks.
func (SwapEngine) QuoteSwap(state model.PoolState, reserves model.Reserves, amountIn uint64, dir model.Direction) (model.SwapQuote, error) {
	return quote(state, reserves, amountIn, dir)
}

func quote(state model.PoolState, reserves model.Reserves, amountIn uint64, dir model.Direction) (model.SwapQuote, error) {
	if err := state.Validate(); err != nil {
		return model.SwapQuote{}, fmt.Errorf("%w: %v", ErrInvalidFee, err)
	}
	reserveSrc, reserveDst := reserves.Oriented(dir)
	if reserveSrc == 0 || reserveDst == 0 {
		return model.SwapQuote{}, fmt.Errorf("%w: %d/%d", ErrEmptyReserves, reserveSrc, reserveDst)
	}
	// The vault must be able to hold the full input, fee included.
	if _, err := checkedAdd(reserveSrc, amountIn); err != nil {
		return model.SwapQuote{}, fmt.Errorf("source reserve: %w", err)
	}

	fee, err := mulDiv(amountIn, state.FeeNumerator, state.FeeDenominator)
	if err != nil {
		return model.SwapQuote{}, fmt.Errorf("fee: %w", err)
	}
	effectiveIn := amountIn - fee

	invariant, err := mul(widen(reserveSrc), widen(reserveDst))
	if err != nil {
		return model.SwapQuote{}, fmt.Errorf("invariant: %w", err)
	}
	newSrc, err := add(widen(reserveSrc), widen(effectiveIn))
	if err != nil {
		return model.SwapQuote{}, fmt.Errorf("new source reserve: %w", err)
	}
	newDstWide, err := div(invariant, newSrc)
	if err != nil {
		return model.SwapQuote{}, err
	}
	newDst, err := narrow(newDstWide)
	if err != nil {
		return model.SwapQuote{}, fmt.Errorf("new destination reserve: %w", err)
	}

	return model.SwapQuote{
		Direction:     dir,
		AmountIn:      amountIn,
		Fee:           fee,
		AmountOut:     reserveDst - newDst,
		ReserveSrc:    reserveSrc,
		ReserveDst:    reserveDst,
		NewReserveSrc: reserveSrc + amountIn,
		NewReserveDst: newDst,
	}, nil
}
