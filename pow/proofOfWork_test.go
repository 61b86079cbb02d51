package pow

import (
	"fmt"
	"strings"
	"testing"

	"simple-ledger-go/common"

	"github.com/stretchr/testify/require"
)

func TestValidProof_MatchesDigestRule(t *testing.T) {
	for nonce := uint64(0); nonce < 2000; nonce++ {
		digest := common.Sha256Hex([]byte(fmt.Sprintf("%d%d", 100, nonce)))
		require.Equal(t, strings.HasSuffix(digest, "0000"), ValidProof(100, nonce), "nonce %d", nonce)
	}
}

func TestMine_ReturnsSmallestValidNonce(t *testing.T) {
	for _, prev := range []uint64{0, 1, 100, 35293} {
		nonce := Mine(prev)
		require.True(t, ValidProof(prev, nonce))
		for n := uint64(0); n < nonce; n++ {
			require.False(t, ValidProof(prev, n), "prev %d has smaller valid nonce %d", prev, n)
		}
	}
}

func TestMine_Deterministic(t *testing.T) {
	require.Equal(t, Mine(100), NewProofOfWork(100).Run())
	require.Equal(t, Mine(7), Mine(7))
}

func TestProofOfWork_Validate(t *testing.T) {
	p := NewProofOfWork(42)
	nonce := p.Run()
	require.True(t, p.Validate(nonce))
	require.Equal(t, ValidProof(42, nonce+1), p.Validate(nonce+1))
}
