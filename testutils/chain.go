package testutils

import (
	"testing"

	"simple-ledger-go/blockchain"
	"simple-ledger-go/blocks"
	"simple-ledger-go/pow"

	"github.com/stretchr/testify/require"
)

// MineBlockchain builds a ledger of the given length. Each block after
// genesis carries one transaction from tag so ledgers built for different
// tags hold different chains.
func MineBlockchain(t testing.TB, length int, tag string) *blockchain.Blockchain {
	t.Helper()
	bc, err := blockchain.NewBlockchain()
	require.NoError(t, err)
	for bc.Len() < length {
		bc.AddTransaction(tag, "miner", uint64(bc.Len()))
		last := bc.LastBlock()
		_, err := bc.AddBlock(nil, pow.Mine(last.Nonce))
		require.NoError(t, err)
	}
	return bc
}

// MineChain is MineBlockchain returning just the blocks.
func MineChain(t testing.TB, length int, tag string) []blocks.Block {
	t.Helper()
	chain, n := MineBlockchain(t, length, tag).Snapshot()
	require.Equal(t, length, n)
	return chain
}
