package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20SymbolBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI        abi.ABI
	erc20ABIOnce    sync.Once
	erc20ABIErr     error
	symbolBytes32   abi.ABI
	symbolBytesOnce sync.Once
	symbolBytesErr  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func symbolBytes32Instance() (abi.ABI, error) {
	symbolBytesOnce.Do(func() {
		symbolBytes32, symbolBytesErr = abi.JSON(strings.NewReader(erc20SymbolBytes32JSON))
	})
	return symbolBytes32, symbolBytesErr
}

// ContractCaller is the subset of Client used for ERC20 reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Token is the metadata needed to display token amounts.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
}

func call(ctx context.Context, caller ContractCaller, parsed abi.ABI, token common.Address, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}

// BalanceOf returns owner's balance of token at block, or at latest when block is nil.
func BalanceOf(ctx context.Context, caller ContractCaller, token, owner common.Address, block *big.Int) (*big.Int, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := call(ctx, caller, parsed, token, block, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return bal, nil
}

// FetchToken loads decimals and, when available, the symbol of token.
func FetchToken(ctx context.Context, caller ContractCaller, token common.Address) (Token, error) {
	meta := Token{Address: token.Hex()}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := call(ctx, caller, parsed, token, nil, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := call(ctx, caller, parsed, token, nil, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
		return meta, nil
	}
	// Some older tokens return bytes32.
	legacy, err := symbolBytes32Instance()
	if err != nil {
		return meta, nil
	}
	if values, err := call(ctx, caller, legacy, token, nil, "symbol"); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			meta.Symbol = string(bytes.TrimRight(raw[:], "\x00"))
		}
	}
	return meta, nil
}
