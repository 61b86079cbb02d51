package pow

import (
	"simple-ledger-go/common"
	"strconv"
	"strings"
)

// PROOF_SUFFIX is fixed on purpose: every node in the network must agree on it.
const (
	PROOF_SUFFIX = "0000"
)

type ProofOfWork struct {
	prevNonce uint64
}

func NewProofOfWork(prevNonce uint64) *ProofOfWork {
	pow := ProofOfWork{
		prevNonce: prevNonce,
	}
	return &pow
}

// Mine returns the smallest nonce forming a valid proof with prevNonce.
func Mine(prevNonce uint64) uint64 {
	return NewProofOfWork(prevNonce).Run()
}

// Run searches nonces 0, 1, 2, ... and blocks until one is valid. There is no
// attempt limit and no way to interrupt it; run it off latency sensitive paths.
func (pow *ProofOfWork) Run() uint64 {
	var nonce uint64 = 0
	for !pow.Validate(nonce) {
		nonce++
	}
	return nonce
}

func (pow *ProofOfWork) Validate(nonce uint64) bool {
	return ValidProof(pow.prevNonce, nonce)
}

// ValidProof reports whether the hex SHA-256 of the decimal concatenation
// "{prevNonce}{nonce}" ends in PROOF_SUFFIX.
func ValidProof(prevNonce uint64, nonce uint64) bool {
	guess := make([]byte, 0, 40)
	guess = strconv.AppendUint(guess, prevNonce, 10)
	guess = strconv.AppendUint(guess, nonce, 10)
	return strings.HasSuffix(common.Sha256Hex(guess), PROOF_SUFFIX)
}
