package blocks

import (
	"simple-ledger-go/transactions"
	"time"
)

type Block struct {
	Index        uint64                     `json:"index" cbor:"index"`
	Timestamp    float64                    `json:"timestamp" cbor:"timestamp"`
	Transactions []transactions.Transaction `json:"transactions" cbor:"transactions"`
	Nonce        uint64                     `json:"nonce" cbor:"nonce"`
	PreviousHash string                     `json:"previous_hash" cbor:"previous_hash"`
}

func NewBlock(
	index uint64,
	txs []transactions.Transaction,
	nonce uint64,
	previousHash string,
) *Block {
	if txs == nil {
		txs = []transactions.Transaction{}
	}
	block := Block{
		Index:        index,
		Timestamp:    Now(),
		Transactions: txs,
		Nonce:        nonce,
		PreviousHash: previousHash,
	}
	return &block
}

// Now is the current time in fractional seconds since the unix epoch.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}
