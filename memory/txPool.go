package memory

import (
	"simple-ledger-go/transactions"
	"sync"

	"golang.org/x/exp/slices"
)

// TxPool keeps submitted transactions in arrival order until the next block
// takes them all.
type TxPool struct {
	sync.Mutex
	pool []transactions.Transaction
}

func NewTransactionPool() *TxPool {
	return &TxPool{
		pool: []transactions.Transaction{},
	}
}

func (p *TxPool) Len() int {
	p.Lock()
	defer p.Unlock()
	return len(p.pool)
}

func (p *TxPool) Append(tx ...transactions.Transaction) {
	p.Lock()
	defer p.Unlock()
	p.pool = append(p.pool, tx...)
}

func (p *TxPool) GetAll() []transactions.Transaction {
	p.Lock()
	defer p.Unlock()
	return slices.Clone(p.pool)
}

// Drain returns every pending transaction and empties the pool in one step.
func (p *TxPool) Drain() []transactions.Transaction {
	p.Lock()
	defer p.Unlock()
	drained := p.pool
	p.pool = []transactions.Transaction{}
	return drained
}
