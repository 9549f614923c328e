package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammCore/internal/model"
)

const (
	ReadMethodBlock  = "balance_of_block"
	ReadMethodLatest = "balance_of_latest"
)

// VaultReserves are the ERC20 balances a vault holds of a token pair.
type VaultReserves struct {
	ChainID  uint64   `json:"chain_id,omitempty"`
	Vault    string   `json:"vault"`
	Token0   Token    `json:"token0"`
	Token1   Token    `json:"token1"`
	Balance0 *big.Int `json:"balance0"`
	Balance1 *big.Int `json:"balance1"`
	Block    uint64   `json:"block,omitempty"`
	Method   string   `json:"method"`
}

// Reserves narrows the balances to pool reserves. Balances above u64 are rejected.
func (v VaultReserves) Reserves() (model.Reserves, error) {
	if v.Balance0 == nil || v.Balance1 == nil {
		return model.Reserves{}, fmt.Errorf("vault balances not loaded")
	}
	if !v.Balance0.IsUint64() || !v.Balance1.IsUint64() {
		return model.Reserves{}, fmt.Errorf("vault balances %s/%s exceed u64", v.Balance0, v.Balance1)
	}
	return model.Reserves{Reserve0: v.Balance0.Uint64(), Reserve1: v.Balance1.Uint64()}, nil
}

// HeadReader is the subset of Client that identifies the chain and its head block.
type HeadReader interface {
	ContractCaller
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ReadPinnedVaultReserves stamps the chain id on the result and pins block 0 to the
// current head before reading, so both balances come from the same block.
func ReadPinnedVaultReserves(ctx context.Context, reader HeadReader, token0, token1, vault common.Address, block uint64, logger *zap.Logger) (VaultReserves, error) {
	chainID, err := reader.GetChainID(ctx)
	if err != nil {
		return VaultReserves{}, fmt.Errorf("chain id: %w", err)
	}
	if block == 0 {
		if block, err = reader.LatestBlockNumber(ctx); err != nil {
			return VaultReserves{}, fmt.Errorf("latest block: %w", err)
		}
	}
	out, err := ReadVaultReserves(ctx, reader, token0, token1, vault, block, logger)
	out.ChainID = chainID.Uint64()
	return out, err
}

// ReadVaultReserves reads both token balances of vault. A non-zero block is tried
// first; nodes without archive state fall back to the latest block.
func ReadVaultReserves(ctx context.Context, caller ContractCaller, token0, token1, vault common.Address, block uint64, logger *zap.Logger) (VaultReserves, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := VaultReserves{Vault: vault.Hex(), Block: block}

	var err error
	if out.Token0, err = FetchToken(ctx, caller, token0); err != nil {
		return out, fmt.Errorf("token0: %w", err)
	}
	if out.Token1, err = FetchToken(ctx, caller, token1); err != nil {
		return out, fmt.Errorf("token1: %w", err)
	}

	if block > 0 {
		blockPtr := new(big.Int).SetUint64(block)
		bal0, err0 := BalanceOf(ctx, caller, token0, vault, blockPtr)
		bal1, err1 := BalanceOf(ctx, caller, token1, vault, blockPtr)
		if err0 == nil && err1 == nil {
			out.Balance0, out.Balance1, out.Method = bal0, bal1, ReadMethodBlock
			return out, nil
		}
		logger.Warn("historical balance read failed, using latest",
			zap.Uint64("block", block),
			zap.NamedError("token0_err", err0),
			zap.NamedError("token1_err", err1),
		)
	}

	bal0, err := BalanceOf(ctx, caller, token0, vault, nil)
	if err != nil {
		return out, fmt.Errorf("token0 balance: %w", err)
	}
	bal1, err := BalanceOf(ctx, caller, token1, vault, nil)
	if err != nil {
		return out, fmt.Errorf("token1 balance: %w", err)
	}
	out.Balance0, out.Balance1, out.Method = bal0, bal1, ReadMethodLatest
	out.Block = 0
	return out, nil
}
