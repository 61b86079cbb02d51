package geneis

import (
	"simple-ledger-go/blocks"
)

const (
	GENESIS_INDEX         uint64 = 1
	GENESIS_NONCE         uint64 = 100
	GENESIS_PREVIOUS_HASH        = "1"
)

// IsGenesis reports whether block carries the genesis markers. The previous
// hash of a genesis block is a sentinel, not a digest.
func IsGenesis(block *blocks.Block) bool {
	return block.Index == GENESIS_INDEX &&
		block.PreviousHash == GENESIS_PREVIOUS_HASH
}
