// Package amm implements the share and swap arithmetic of a two-asset constant-product pool.
package amm

import "errors"

var (
	// ErrInsufficientBalance is returned when a requested amount exceeds the caller's funds or shares.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrZeroMintAmount is returned when a deposit would mint no shares.
	ErrZeroMintAmount = errors.New("deposit mints zero shares")
	// ErrBurnExceedsSupply is returned when a withdrawal burns more shares than exist.
	ErrBurnExceedsSupply = errors.New("burn exceeds share supply")
	// ErrSlippageExceeded is returned when an output falls below the caller's floor.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrArithmeticOverflow is returned when a checked step leaves its domain.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrInvalidFee is returned for a fee schedule with a zero denominator or a rate above one.
	ErrInvalidFee = errors.New("invalid fee schedule")
	// ErrEmptyReserves is returned when the arithmetic would divide by an empty reserve.
	ErrEmptyReserves = errors.New("pool reserves are empty")
)
