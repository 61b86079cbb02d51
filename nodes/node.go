package nodes

import (
	"context"
	"fmt"
	"simple-ledger-go/blockchain"
	"simple-ledger-go/blocks"
	"simple-ledger-go/epoch"
	"simple-ledger-go/logger"
	"simple-ledger-go/observability"
	"simple-ledger-go/p2p"
	"simple-ledger-go/transactions"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type NodeConfig struct {
	ID               p2p.NodeId
	Peers            []string
	Fetcher          ChainFetcher
	FetchTimeout     time.Duration
	FetchConcurrency int
	// ResolveInterval enables periodic conflict resolution when positive.
	ResolveInterval time.Duration
	Metrics         *observability.Metrics
	Log             zerolog.Logger
}

// Node is one ledger node: its chain, its peers and the operations exposed
// to clients. Every handler shares the same Node value.
type Node struct {
	id p2p.NodeId
	*KnownNodes
	chain           *blockchain.Blockchain
	miner           *Miner
	resolver        *Resolver
	resolveInterval time.Duration
	metrics         *observability.Metrics
	log             zerolog.Logger

	// set while Run resolves periodically
	resolveEpoch atomic.Pointer[epoch.Epoch]
}

func NewNode(cfg NodeConfig) (*Node, error) {
	log := cfg.Log.With().Str(logger.NodeIDKey, cfg.ID.String()).Logger()
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPChainFetcher(nil, p2p.APPLICATION_JSON)
	}

	bc, err := blockchain.NewBlockchain(blockchain.WithLogger(log))
	if err != nil {
		return nil, err
	}

	n := &Node{
		id:              cfg.ID,
		KnownNodes:      NewKnownNodes(),
		chain:           bc,
		miner:           NewMiner(bc, cfg.ID, logger.Module(log, "miner")),
		resolveInterval: cfg.ResolveInterval,
		metrics:         metrics,
		log:             logger.Module(log, "node"),
	}
	n.resolver = NewResolver(bc, n.KnownNodes, fetcher,
		WithFetchConcurrency(cfg.FetchConcurrency),
		WithFetchTimeout(cfg.FetchTimeout),
		WithResolverMetrics(metrics),
		WithResolverLogger(log),
	)

	if len(cfg.Peers) != 0 {
		if _, err := n.RegisterPeers(cfg.Peers...); err != nil {
			return nil, err
		}
	}
	n.updateGauges()
	return n, nil
}

func (n *Node) ID() p2p.NodeId {
	return n.id
}

func (n *Node) Welcome() string {
	return n.id.Welcome()
}

func (n *Node) Blockchain() *blockchain.Blockchain {
	return n.chain
}

func (n *Node) Metrics() *observability.Metrics {
	return n.metrics
}

// Chain returns the current chain and its length, always consistent.
func (n *Node) Chain() ([]blocks.Block, int) {
	return n.chain.Snapshot()
}

func (n *Node) Mine(ctx context.Context) (*blocks.Block, error) {
	block, err := n.miner.Mine(ctx)
	if err != nil {
		return nil, err
	}
	n.metrics.BlocksMined.Inc()
	n.updateGauges()
	return block, nil
}

// SubmitTransaction queues a transaction and returns the index of the block
// expected to include it, plus the transaction's id.
func (n *Node) SubmitTransaction(sender string, recipient string, amount uint64) (uint64, string) {
	index := n.chain.AddTransaction(sender, recipient, amount)
	tx := transactions.NewTransaction(sender, recipient, amount)
	id, err := tx.ID()
	if err != nil {
		n.log.Warn().Err(err).Msg("computing transaction id")
	}
	n.metrics.TransactionsSubmitted.Inc()
	n.updateGauges()
	n.log.Debug().Str("tx", id).Uint64("block", index).Msg("transaction added")
	return index, id
}

// RegisterPeers registers all addresses or none of them, and returns the
// known peers afterwards.
func (n *Node) RegisterPeers(addresses ...string) ([]string, error) {
	for _, address := range addresses {
		if _, err := ParsePeerAddress(address); err != nil {
			n.log.Warn().Str(logger.PeerKey, address).Err(err).Msg("invalid node")
			return nil, err
		}
	}
	for _, address := range addresses {
		peer, err := n.Register(address)
		if err != nil {
			return nil, fmt.Errorf("registering %q: %w", address, err)
		}
		n.log.Info().Str(logger.PeerKey, peer).Msg("new node added")
	}
	n.updateGauges()
	if e := n.resolveEpoch.Load(); e != nil && e.Trigger() {
		n.log.Debug().Msg("resolving conflicts with the new peers")
	}
	return n.Peers(), nil
}

func (n *Node) Resolve(ctx context.Context) ResolveReport {
	report := n.resolver.Resolve(ctx)
	n.updateGauges()
	return report
}

// Run resolves conflicts every resolveInterval until ctx is done, and right
// away whenever new peers are registered meanwhile. Without an interval it
// only waits for ctx.
func (n *Node) Run(ctx context.Context) error {
	if n.resolveInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	n.log.Info().Dur("interval", n.resolveInterval).Msg("periodic conflict resolution enabled")
	e := epoch.NewEpoch(func() { n.Resolve(ctx) }, n.resolveInterval)
	n.resolveEpoch.Store(e)
	defer n.resolveEpoch.Store(nil)
	e.StartEpochRoutine(ctx)
	return nil
}

func (n *Node) updateGauges() {
	n.metrics.ChainLength.Set(float64(n.chain.Len()))
	n.metrics.PendingTransactions.Set(float64(len(n.chain.PendingTransactions())))
	n.metrics.KnownPeers.Set(float64(n.PeerLen()))
}
