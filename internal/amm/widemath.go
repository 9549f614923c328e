package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// wideBits is the width every intermediate product must fit in.
const wideBits = 128

// widen lifts a 64-bit quantity into the wide domain.
func widen(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// mul multiplies two wide values and fails if the product leaves 128 bits.
func mul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || product.BitLen() > wideBits {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return product, nil
}

// add sums two wide values and fails if the sum leaves 128 bits.
func add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow || sum.BitLen() > wideBits {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return sum, nil
}

// div is floor division; a zero divisor is reported as an empty reserve.
func div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrEmptyReserves)
	}
	return new(uint256.Int).Div(a, b), nil
}

// narrow converts a wide value back to 64 bits.
func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrArithmeticOverflow, v.Dec())
	}
	return v.Uint64(), nil
}

// mulDiv computes floor(a * b / c) with a double-width intermediate.
func mulDiv(a, b, c uint64) (uint64, error) {
	product, err := mul(widen(a), widen(b))
	if err != nil {
		return 0, err
	}
	quotient, err := div(product, widen(c))
	if err != nil {
		return 0, err
	}
	return narrow(quotient)
}

// checkedMul multiplies two 64-bit values without widening the result.
func checkedMul(a, b uint64) (uint64, error) {
	product, err := mul(widen(a), widen(b))
	if err != nil {
		return 0, err
	}
	return narrow(product)
}

// checkedAdd adds two 64-bit values without widening the result.
func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}
