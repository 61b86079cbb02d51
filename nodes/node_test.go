package nodes

import (
	"context"
	"simple-ledger-go/observability"
	"simple-ledger-go/p2p"
	"simple-ledger-go/testutils"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, cfg NodeConfig) *Node {
	t.Helper()
	if len(cfg.ID) == 0 {
		cfg.ID = p2p.NewNodeId("", 5000)
	}
	cfg.Log = zerolog.Nop()
	n, err := NewNode(cfg)
	require.NoError(t, err)
	return n
}

func TestNewNode(t *testing.T) {
	n := newTestNode(t, NodeConfig{Peers: []string{"http://b:1", "http://a:1"}})
	require.Equal(t, "Welcome to simple ledger node 127.0.0.1:5000", n.Welcome())
	require.Equal(t, []string{"http://a:1", "http://b:1"}, n.Peers())

	chain, length := n.Chain()
	require.Equal(t, 1, length)
	require.Equal(t, "1", chain[0].PreviousHash)
	require.Equal(t, 1.0, testutil.ToFloat64(n.Metrics().ChainLength))
	require.Equal(t, 2.0, testutil.ToFloat64(n.Metrics().KnownPeers))
}

func TestNewNode_InvalidPeer(t *testing.T) {
	_, err := NewNode(NodeConfig{ID: "n", Peers: []string{"not a url"}, Log: zerolog.Nop()})
	require.ErrorIs(t, err, ErrMalformedPeerAddress)
}

func TestNode_SubmitAndMine(t *testing.T) {
	n := newTestNode(t, NodeConfig{})

	index, id := n.SubmitTransaction("alice", "bob", 10)
	require.Equal(t, uint64(2), index)
	require.NotEmpty(t, id)
	require.Equal(t, 1.0, testutil.ToFloat64(n.Metrics().PendingTransactions))

	block, err := n.Mine(context.Background())
	require.NoError(t, err)
	require.Equal(t, index, block.Index)
	require.Len(t, block.Transactions, 2)

	m := n.Metrics()
	require.Equal(t, 1.0, testutil.ToFloat64(m.BlocksMined))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsSubmitted))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ChainLength))
	require.Equal(t, 0.0, testutil.ToFloat64(m.PendingTransactions))
}

func TestNode_RegisterPeersAllOrNothing(t *testing.T) {
	n := newTestNode(t, NodeConfig{})

	_, err := n.RegisterPeers("http://a:1", "bogus")
	require.ErrorIs(t, err, ErrMalformedPeerAddress)
	require.Equal(t, 0, n.PeerLen())

	peers, err := n.RegisterPeers("http://a:1", "https://B:2/")
	require.NoError(t, err)
	require.Equal(t, []string{"http://a:1", "https://b:2"}, peers)
}

func TestNode_Resolve(t *testing.T) {
	pc := peerChains{"http://peer:1": testutils.MineChain(t, 3, "peer")}
	n := newTestNode(t, NodeConfig{Peers: []string{"http://peer:1"}, Fetcher: pc.fetcher()})

	report := n.Resolve(context.Background())
	require.True(t, report.Replaced)
	_, length := n.Chain()
	require.Equal(t, 3, length)
	require.Equal(t, 1.0,
		testutil.ToFloat64(n.Metrics().Resolutions.WithLabelValues(observability.OutcomeReplaced)))

	// same peer again: nothing longer on offer
	report = n.Resolve(context.Background())
	require.False(t, report.Replaced)
}

func TestNode_RunResolvesPeriodically(t *testing.T) {
	pc := peerChains{"http://peer:1": testutils.MineChain(t, 4, "peer")}
	n := newTestNode(t, NodeConfig{
		Peers:           []string{"http://peer:1"},
		Fetcher:         pc.fetcher(),
		ResolveInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, length := n.Chain()
		return length == 4
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNode_RunWithoutInterval(t *testing.T) {
	n := newTestNode(t, NodeConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
}

func TestNode_RegisterTriggersResolve(t *testing.T) {
	pc := peerChains{"http://peer:1": testutils.MineChain(t, 3, "peer")}
	n := newTestNode(t, NodeConfig{
		Fetcher:         pc.fetcher(),
		ResolveInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()
	require.Eventually(t, func() bool { return n.resolveEpoch.Load() != nil }, time.Second, time.Millisecond)

	_, err := n.RegisterPeers("http://peer:1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, length := n.Chain()
		return length == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Nil(t, n.resolveEpoch.Load())
}
