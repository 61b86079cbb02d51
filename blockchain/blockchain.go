package blockchain

import (
	"errors"
	"simple-ledger-go/blocks"
	"simple-ledger-go/geneis"
	"simple-ledger-go/logger"
	"simple-ledger-go/memory"
	"simple-ledger-go/transactions"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

var (
	ErrGenesisBootstrap = errors.New("no previous block to link to and no previous hash given")
	ErrStaleTip         = errors.New("chain tip changed while mining")
)

// Blockchain owns the block sequence and the pool of transactions waiting
// for the next block. The sequence is never empty once constructed.
type Blockchain struct {
	sync.RWMutex
	chain  []blocks.Block
	txPool *memory.TxPool
	log    zerolog.Logger
}

type Option func(*Blockchain)

func WithLogger(log zerolog.Logger) Option {
	return func(bc *Blockchain) {
		bc.log = logger.Module(log, "blockchain")
	}
}

func NewBlockchain(opts ...Option) (*Blockchain, error) {
	bc := Blockchain{
		chain:  []blocks.Block{},
		txPool: memory.NewTransactionPool(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&bc)
	}

	genesisHash := geneis.GENESIS_PREVIOUS_HASH
	genesis, err := bc.AddBlock(&genesisHash, geneis.GENESIS_NONCE)
	if err != nil {
		return nil, err
	}
	bc.log.Info().
		Uint64("index", genesis.Index).
		Uint64("nonce", genesis.Nonce).
		Msg("blockchain starts with genesis block")
	return &bc, nil
}

// AddBlock appends a block holding every pending transaction. The block links
// to previousHash when given, otherwise to the hash of the current last block.
// Draining the pool and appending happen as one step.
func (bc *Blockchain) AddBlock(previousHash *string, nonce uint64) (*blocks.Block, error) {
	bc.Lock()
	defer bc.Unlock()
	return bc.addBlock(previousHash, nonce)
}

// AddBlockOnTip appends a block mined against tip, but only if tip is still
// the last block. The extra transactions join the pool in the same step, so a
// stale attempt leaves both the pool and the chain untouched.
func (bc *Blockchain) AddBlockOnTip(
	tip *blocks.Block, nonce uint64, extra ...transactions.Transaction,
) (*blocks.Block, error) {
	bc.Lock()
	defer bc.Unlock()

	tipHash, err := blocks.Hash(tip)
	if err != nil {
		return nil, err
	}
	lastHash, err := blocks.Hash(&bc.chain[len(bc.chain)-1])
	if err != nil {
		return nil, err
	}
	if tipHash != lastHash {
		return nil, ErrStaleTip
	}

	bc.txPool.Append(extra...)
	return bc.addBlock(&lastHash, nonce)
}

func (bc *Blockchain) addBlock(previousHash *string, nonce uint64) (*blocks.Block, error) {
	var prev string
	if previousHash != nil {
		prev = *previousHash
	} else {
		if len(bc.chain) == 0 {
			return nil, ErrGenesisBootstrap
		}
		h, err := blocks.Hash(&bc.chain[len(bc.chain)-1])
		if err != nil {
			return nil, err
		}
		prev = h
	}

	block := blocks.NewBlock(
		uint64(len(bc.chain)+1),
		bc.txPool.Drain(),
		nonce,
		prev,
	)
	bc.chain = append(bc.chain, *block)

	bc.log.Debug().
		Uint64("index", block.Index).
		Int("transactions", len(block.Transactions)).
		Str("previous_hash", block.PreviousHash).
		Msg("block appended")
	return block, nil
}

// AddTransaction queues a transaction for the next block and returns the
// index that block is expected to get. The index is a prediction only.
func (bc *Blockchain) AddTransaction(sender string, recipient string, amount uint64) uint64 {
	bc.RLock()
	defer bc.RUnlock()
	bc.txPool.Append(transactions.NewTransaction(sender, recipient, amount))
	return uint64(len(bc.chain)) + 1
}

func (bc *Blockchain) LastBlock() blocks.Block {
	bc.RLock()
	defer bc.RUnlock()
	return bc.chain[len(bc.chain)-1]
}

func (bc *Blockchain) Len() int {
	bc.RLock()
	defer bc.RUnlock()
	return len(bc.chain)
}

// Snapshot returns a copy of the chain together with its length, taken
// under one lock so the two always agree.
func (bc *Blockchain) Snapshot() ([]blocks.Block, int) {
	bc.RLock()
	defer bc.RUnlock()
	return slices.Clone(bc.chain), len(bc.chain)
}

func (bc *Blockchain) PendingTransactions() []transactions.Transaction {
	return bc.txPool.GetAll()
}

// ReplaceChain swaps in candidate wholesale if it is still strictly longer
// than the local chain. Callers validate candidate first.
func (bc *Blockchain) ReplaceChain(candidate []blocks.Block) bool {
	bc.Lock()
	defer bc.Unlock()
	if len(candidate) <= len(bc.chain) {
		bc.log.Info().
			Int("local", len(bc.chain)).
			Int("candidate", len(candidate)).
			Msg("candidate chain is no longer longer, keeping local chain")
		return false
	}
	bc.chain = slices.Clone(candidate)
	bc.log.Info().Int("length", len(bc.chain)).Msg("chain replaced")
	return true
}

func (bc *Blockchain) ValidateChain(candidate []blocks.Block) bool {
	return ValidateChain(candidate)
}
