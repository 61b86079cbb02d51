package p2p

import (
	"errors"
	"fmt"
	"simple-ledger-go/blocks"
	"simple-ledger-go/transactions"
)

// ChainResponse is what a node serves at CHAIN_PATH and what it expects back
// from its peers, so every node can act as a peer of every other.
type ChainResponse struct {
	Chain  []blocks.Block `json:"chain" cbor:"chain"`
	Length int            `json:"length" cbor:"length"`
}

type MineResponse struct {
	Message      string                     `json:"message"`
	Index        uint64                     `json:"index"`
	Transactions []transactions.Transaction `json:"transactions"`
	Nonce        uint64                     `json:"nonce"`
	PreviousHash string                     `json:"previous_hash"`
}

var ErrMissingField = errors.New("missing field")

// TransactionRequest fields are pointers so that an absent field can be told
// apart from an empty sender or a zero amount.
type TransactionRequest struct {
	Sender    *string `json:"sender"`
	Recipient *string `json:"recipient"`
	Amount    *uint64 `json:"amount"`
}

func (r *TransactionRequest) Validate() error {
	switch {
	case r.Sender == nil:
		return fmt.Errorf("%w: sender", ErrMissingField)
	case r.Recipient == nil:
		return fmt.Errorf("%w: recipient", ErrMissingField)
	case r.Amount == nil:
		return fmt.Errorf("%w: amount", ErrMissingField)
	}
	return nil
}

type TransactionResponse struct {
	Message string `json:"message"`
	Index   uint64 `json:"index"`
	ID      string `json:"id"`
}

// RegisterRequest takes a single address, a list, or both.
type RegisterRequest struct {
	Address string   `json:"address,omitempty"`
	Nodes   []string `json:"nodes,omitempty"`
}

func (r *RegisterRequest) Addresses() []string {
	addrs := make([]string, 0, len(r.Nodes)+1)
	if len(r.Address) != 0 {
		addrs = append(addrs, r.Address)
	}
	return append(addrs, r.Nodes...)
}

type RegisterResponse struct {
	Message string   `json:"message"`
	Nodes   []string `json:"nodes"`
}

type ResolveResponse struct {
	Message  string         `json:"message"`
	Chain    []blocks.Block `json:"chain"`
	Failures []PeerFailure  `json:"failures,omitempty"`
}

type PeerFailure struct {
	Peer  string `json:"peer"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
