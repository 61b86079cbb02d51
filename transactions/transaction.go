package transactions

import (
	"simple-ledger-go/common"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// Transaction moves Amount from Sender to Recipient. Nothing about it is
// checked against balances; an empty Sender marks a mining reward.
type Transaction struct {
	Sender    string `json:"sender" cbor:"sender"`
	Recipient string `json:"recipient" cbor:"recipient"`
	Amount    uint64 `json:"amount" cbor:"amount"`
}

func NewTransaction(sender string, recipient string, amount uint64) Transaction {
	return Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

func (tx *Transaction) IsReward() bool {
	return len(tx.Sender) == 0
}

// ID identifies the transaction in logs and API responses.
// It is not part of the block hash.
func (tx *Transaction) ID() (string, error) {
	enc, err := common.CanonicalEncode(tx)
	if err != nil {
		return "", err
	}
	hash := sha3.Sum256(enc)
	return base58.Encode(hash[:]), nil
}
