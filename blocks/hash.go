package blocks

import (
	"fmt"
	"simple-ledger-go/common"
	"simple-ledger-go/transactions"
)

// Hash is the hex SHA-256 digest of the block's canonical encoding.
// Chain linkage and peer chain comparison both rely on it being identical
// on every node for identical content.
func Hash(block *Block) (string, error) {
	if block.Transactions == nil {
		// absent and empty transaction lists encode the same way
		normalized := *block
		normalized.Transactions = []transactions.Transaction{}
		block = &normalized
	}
	enc, err := common.CanonicalEncode(block)
	if err != nil {
		return "", fmt.Errorf("encoding block %d: %w", block.Index, err)
	}
	return common.Sha256Hex(enc), nil
}
