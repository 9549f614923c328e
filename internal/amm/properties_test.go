package amm

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"ammCore/internal/model"
)

func product(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

func TestAddThenRemoveNeverReturnsMore(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, mode := range []RateMode{RateTruncated, RatePrecise} {
		engine := NewLiquidityEngine(mode)
		for i := 0; i < 2000; i++ {
			reserves := model.Reserves{
				Reserve0: 1 + uint64(rng.Int63n(1_000_000_000)),
				Reserve1: 1 + uint64(rng.Int63n(1_000_000_000)),
			}
			state := model.PoolState{TotalShares: 1 + uint64(rng.Int63n(1_000_000_000))}
			req := model.AddLiquidityRequest{
				Amount0: 1 + uint64(rng.Int63n(1_000_000)),
				Amount1: 1 << 62,
			}

			added, err := engine.AddLiquidity(&state, reserves, rich, req)
			if err != nil {
				require.ErrorIs(t, err, ErrZeroMintAmount)
				continue
			}

			after := model.Reserves{
				Reserve0: reserves.Reserve0 + added.Deposit0,
				Reserve1: reserves.Reserve1 + added.Deposit1,
			}
			removed, err := engine.RemoveLiquidity(&state, after, rich, model.RemoveLiquidityRequest{SharesBurned: added.SharesMinted})
			require.NoError(t, err)
			require.LessOrEqual(t, removed.Amount0Out, added.Deposit0, "mode %s reserves %+v", mode, reserves)
			require.LessOrEqual(t, removed.Amount1Out, added.Deposit1, "mode %s reserves %+v", mode, reserves)
		}
	}
}

func TestBurnAllReturnsReserves(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	engine := NewLiquidityEngine(RateTruncated)
	for i := 0; i < 1000; i++ {
		reserves := model.Reserves{Reserve0: rng.Uint64(), Reserve1: rng.Uint64()}
		total := 1 + rng.Uint64()>>1
		state := model.PoolState{TotalShares: total}

		out, err := engine.RemoveLiquidity(&state, reserves, model.Holdings{Shares: total}, model.RemoveLiquidityRequest{SharesBurned: total})
		require.NoError(t, err)
		require.Equal(t, reserves.Reserve0, out.Amount0Out)
		require.Equal(t, reserves.Reserve1, out.Amount1Out)
		require.Zero(t, state.TotalShares)
	}
}

func TestSwapInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	engine := NewSwapEngine()
	for i := 0; i < 5000; i++ {
		state := model.PoolState{FeeNumerator: uint64(rng.Intn(31)), FeeDenominator: 1000}
		reserves := model.Reserves{
			Reserve0: 1 + uint64(rng.Int63n(1_000_000_000_000)),
			Reserve1: 1 + uint64(rng.Int63n(1_000_000_000_000)),
		}
		amountIn := 1 + uint64(rng.Int63n(1_000_000_000))
		dir := model.Direction(rng.Intn(2))

		q, err := engine.QuoteSwap(state, reserves, amountIn, dir)
		require.NoError(t, err)

		before := product(q.ReserveSrc, q.ReserveDst)
		after := product(q.NewReserveSrc, q.NewReserveDst)
		curveSrc := q.ReserveSrc + amountIn - q.Fee

		// Flooring the destination reserve loses less than one unit of it.
		lowerBound := new(big.Int).Sub(before, new(big.Int).SetUint64(curveSrc))
		require.Equal(t, 1, after.Cmp(lowerBound), "swap %d: after %s before %s", i, after, before)

		if q.Fee == 0 {
			require.LessOrEqual(t, after.Cmp(before), 0, "swap %d: zero-fee swap grew invariant", i)
			continue
		}
		// A fee worth at least one destination unit grows the invariant.
		if product(q.Fee, q.NewReserveDst).Cmp(new(big.Int).SetUint64(curveSrc)) >= 0 {
			require.Equal(t, 1, after.Cmp(before), "swap %d: fee %d did not grow invariant", i, q.Fee)
		}
	}
}
