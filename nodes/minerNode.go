package nodes

import (
	"context"
	"errors"
	"simple-ledger-go/blockchain"
	"simple-ledger-go/blocks"
	"simple-ledger-go/p2p"
	"simple-ledger-go/pow"
	"simple-ledger-go/transactions"

	"github.com/rs/zerolog"
)

// Miner mines on top of the ledger's last block and pays itself
// p2p.REWARD_AMOUNT for every block it appends.
type Miner struct {
	bc  *blockchain.Blockchain
	id  p2p.NodeId
	log zerolog.Logger
}

func NewMiner(bc *blockchain.Blockchain, id p2p.NodeId, log zerolog.Logger) *Miner {
	return &Miner{
		bc:  bc,
		id:  id,
		log: log,
	}
}

// Mine blocks until a block is appended. The proof of work runs without any
// lock held; if the chain moved meanwhile the work is redone on the new tip.
// ctx is only looked at between attempts.
func (m *Miner) Mine(ctx context.Context) (*blocks.Block, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tip := m.bc.LastBlock()
		m.log.Debug().Uint64("tip", tip.Index).Msg("mining a new block")
		nonce := pow.Mine(tip.Nonce)

		reward := transactions.NewTransaction("", m.id.String(), p2p.REWARD_AMOUNT)
		block, err := m.bc.AddBlockOnTip(&tip, nonce, reward)
		if errors.Is(err, blockchain.ErrStaleTip) {
			m.log.Info().Uint64("tip", tip.Index).Msg("chain moved while mining, starting over")
			continue
		}
		if err != nil {
			return nil, err
		}

		m.log.Info().
			Uint64("index", block.Index).
			Uint64("nonce", block.Nonce).
			Int("transactions", len(block.Transactions)).
			Msg("mined block")
		return block, nil
	}
}
