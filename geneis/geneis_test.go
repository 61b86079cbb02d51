package geneis

import (
	"testing"

	"simple-ledger-go/blocks"

	"github.com/stretchr/testify/require"
)

func TestIsGenesis(t *testing.T) {
	require.True(t, IsGenesis(blocks.NewBlock(GENESIS_INDEX, nil, GENESIS_NONCE, GENESIS_PREVIOUS_HASH)))
	require.False(t, IsGenesis(blocks.NewBlock(2, nil, GENESIS_NONCE, GENESIS_PREVIOUS_HASH)))
	require.False(t, IsGenesis(blocks.NewBlock(GENESIS_INDEX, nil, GENESIS_NONCE, "ab12")))
}
