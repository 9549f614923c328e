package model

import (
	"encoding/json"
	"fmt"
)

// Operation names a committed pool operation.
type Operation string

const (
	OpInit            Operation = "init"
	OpFund            Operation = "fund"
	OpAddLiquidity    Operation = "add_liquidity"
	OpRemoveLiquidity Operation = "remove_liquidity"
	OpSwap            Operation = "swap"
)

// OperationRecord is the journal entry written after an operation commits.
type OperationRecord struct {
	ID           string          `json:"id"`
	PoolID       string          `json:"pool_id"`
	Sequence     uint64          `json:"sequence"`
	Operation    Operation       `json:"operation"`
	Account      string          `json:"account,omitempty"`
	Request      json.RawMessage `json:"request,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Instructions []Instruction   `json:"instructions,omitempty"`
	Pool         PoolState       `json:"pool"`
	Reserves     Reserves        `json:"reserves"`
	CommittedAt  string          `json:"committed_at"`
}

// NewOperationRecord encodes request and result payloads into a record.
func NewOperationRecord(op Operation, account string, request, result interface{}) (OperationRecord, error) {
	rec := OperationRecord{Operation: op, Account: account}
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return OperationRecord{}, fmt.Errorf("marshal request: %w", err)
		}
		rec.Request = data
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return OperationRecord{}, fmt.Errorf("marshal result: %w", err)
		}
		rec.Result = data
	}
	return rec, nil
}
