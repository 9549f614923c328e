package model

import (
	"fmt"
	"strings"
)

// Asset names one of the two pooled assets or the liquidity share token.
type Asset string

const (
	Asset0     Asset = "asset0"
	Asset1     Asset = "asset1"
	AssetShare Asset = "share"
)

// ParseAsset accepts the canonical names plus the short forms 0, 1 and shares.
func ParseAsset(input string) (Asset, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "asset0", "0", "token0":
		return Asset0, nil
	case "asset1", "1", "token1":
		return Asset1, nil
	case "share", "shares", "lp":
		return AssetShare, nil
	default:
		return "", fmt.Errorf("unknown asset: %s", input)
	}
}

// Direction selects which pooled asset a swap sells.
type Direction int

const (
	// ZeroForOne sells asset0 for asset1.
	ZeroForOne Direction = iota
	// OneForZero sells asset1 for asset0.
	OneForZero
)

func (d Direction) String() string {
	if d == OneForZero {
		return "1to0"
	}
	return "0to1"
}

// Source is the asset the trader pays in.
func (d Direction) Source() Asset {
	if d == OneForZero {
		return Asset1
	}
	return Asset0
}

// Destination is the asset the trader receives.
func (d Direction) Destination() Asset {
	if d == OneForZero {
		return Asset0
	}
	return Asset1
}

// ParseDirection parses "0to1"/"1to0" and a few aliases.
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "0to1", "0->1", "zero-for-one", "":
		return ZeroForOne, nil
	case "1to0", "1->0", "one-for-zero":
		return OneForZero, nil
	default:
		return ZeroForOne, fmt.Errorf("invalid direction: %s", input)
	}
}

// MarshalText encodes the direction as "0to1" or "1to0".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction written by MarshalText.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
