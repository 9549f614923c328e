package model

// InstructionKind is the custody action an instruction asks for.
type InstructionKind string

const (
	KindTransfer InstructionKind = "transfer"
	KindMint     InstructionKind = "mint"
	KindBurn     InstructionKind = "burn"
)

// Flow is the direction of funds between the caller and the pool vault.
type Flow string

const (
	UserToPool Flow = "user_to_pool"
	PoolToUser Flow = "pool_to_user"
)

// Instruction is a fund movement the custody layer executes on behalf of the core.
// Mint and burn always act on the caller's share balance.
type Instruction struct {
	Kind   InstructionKind `json:"kind"`
	Asset  Asset           `json:"asset"`
	Flow   Flow            `json:"flow,omitempty"`
	Amount uint64          `json:"amount"`
}

// Transfer builds a transfer instruction.
func Transfer(asset Asset, flow Flow, amount uint64) Instruction {
	return Instruction{Kind: KindTransfer, Asset: asset, Flow: flow, Amount: amount}
}

// Mint builds a share mint instruction.
func Mint(amount uint64) Instruction {
	return Instruction{Kind: KindMint, Asset: AssetShare, Amount: amount}
}

// Burn builds a share burn instruction.
func Burn(amount uint64) Instruction {
	return Instruction{Kind: KindBurn, Asset: AssetShare, Amount: amount}
}
