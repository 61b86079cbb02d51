package blockchain

import (
	"errors"
	"fmt"
	"simple-ledger-go/blocks"
	"simple-ledger-go/pow"
)

var ErrChainValidation = errors.New("chain validation failed")

// ValidateChain reports whether every adjacent pair of candidate is linked by
// hash and by proof of work. Empty and single block chains are valid.
func ValidateChain(candidate []blocks.Block) bool {
	return CheckChain(candidate) == nil
}

// CheckChain is ValidateChain returning the reason of the first failing pair.
func CheckChain(candidate []blocks.Block) error {
	for i := 1; i < len(candidate); i++ {
		prev := &candidate[i-1]
		curr := &candidate[i]

		prevHash, err := blocks.Hash(prev)
		if err != nil {
			return fmt.Errorf("%w: position %d: %v", ErrChainValidation, i-1, err)
		}
		if curr.PreviousHash != prevHash {
			return fmt.Errorf(
				"%w: position %d links to %s, expected %s",
				ErrChainValidation, i, curr.PreviousHash, prevHash,
			)
		}
		if !pow.ValidProof(prev.Nonce, curr.Nonce) {
			return fmt.Errorf(
				"%w: position %d nonce %d is not a proof for %d",
				ErrChainValidation, i, curr.Nonce, prev.Nonce,
			)
		}
	}
	return nil
}
