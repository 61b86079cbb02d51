package nodes

import (
	"context"
	"errors"
	"fmt"
	"simple-ledger-go/blockchain"
	"simple-ledger-go/blocks"
	"simple-ledger-go/geneis"
	"simple-ledger-go/logger"
	"simple-ledger-go/observability"
	"simple-ledger-go/p2p"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DEFAULT_FETCH_CONCURRENCY = 8
	DEFAULT_FETCH_TIMEOUT     = 5 * time.Second
)

// Failure kinds, as reported to callers and metrics.
const (
	FailureUnreachable     = "unreachable"
	FailureInvalidResponse = "invalid_response"
	FailureInvalidChain    = "invalid_chain"
)

// PeerFailure records why a peer was skipped during one resolution pass.
type PeerFailure struct {
	Peer string
	Err  error
}

func (f PeerFailure) Kind() string {
	switch {
	case errors.Is(f.Err, ErrPeerUnreachable):
		return FailureUnreachable
	case errors.Is(f.Err, blockchain.ErrChainValidation):
		return FailureInvalidChain
	default:
		return FailureInvalidResponse
	}
}

// ResolveReport describes one resolution pass. Chain and Length are the
// local chain as it stood right after the pass.
type ResolveReport struct {
	Replaced bool
	Chain    []blocks.Block
	Length   int
	Failures []PeerFailure
}

// Resolver implements the longest valid chain rule against known peers.
type Resolver struct {
	bc          *blockchain.Blockchain
	peers       *KnownNodes
	fetcher     ChainFetcher
	concurrency int
	timeout     time.Duration
	metrics     *observability.Metrics
	log         zerolog.Logger
}

type ResolverOption func(*Resolver)

func WithFetchConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithFetchTimeout bounds each peer fetch; zero leaves only the caller's context.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

func WithResolverMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithResolverLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = logger.Module(log, "resolver")
	}
}

func NewResolver(
	bc *blockchain.Blockchain,
	peers *KnownNodes,
	fetcher ChainFetcher,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		bc:          bc,
		peers:       peers,
		fetcher:     fetcher,
		concurrency: DEFAULT_FETCH_CONCURRENCY,
		timeout:     DEFAULT_FETCH_TIMEOUT,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type fetchResult struct {
	resp *p2p.ChainResponse
	err  error
}

// Resolve fetches every known peer's chain and adopts the longest valid one
// that beats the local chain. Peers are fetched in parallel; a failing peer
// is skipped and reported without affecting the others. Results are weighed
// in sorted peer order, so on equal length the first peer in that order wins.
func (r *Resolver) Resolve(ctx context.Context) ResolveReport {
	peers := r.peers.Peers()
	results := make([]fetchResult, len(peers))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, peer := range peers {
		i, peer := i, peer
		g.Go(func() error {
			fctx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			resp, err := r.fetcher.FetchChain(fctx, peer)
			results[i] = fetchResult{resp: resp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	report := ResolveReport{}
	maxLength := r.bc.Len()
	var newChain []blocks.Block

	for i, peer := range peers {
		res := results[i]
		if res.err != nil {
			report.Failures = append(report.Failures, r.skip(peer, res.err))
			continue
		}
		if err := checkResponse(res.resp); err != nil {
			report.Failures = append(report.Failures, r.skip(peer, err))
			continue
		}
		if res.resp.Length <= maxLength {
			r.log.Debug().
				Str(logger.PeerKey, peer).
				Int("length", res.resp.Length).
				Int("best", maxLength).
				Msg("peer chain is not longer")
			continue
		}
		if err := blockchain.CheckChain(res.resp.Chain); err != nil {
			report.Failures = append(report.Failures, r.skip(peer, err))
			continue
		}
		maxLength = res.resp.Length
		newChain = res.resp.Chain
	}

	if len(newChain) != 0 {
		if !geneis.IsGenesis(&newChain[0]) {
			r.log.Warn().Msg("adopting a chain that does not start from the genesis block")
		}
		report.Replaced = r.bc.ReplaceChain(newChain)
	}
	report.Chain, report.Length = r.bc.Snapshot()

	outcome := observability.OutcomeAuthoritative
	if report.Replaced {
		outcome = observability.OutcomeReplaced
	}
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(outcome).Inc()
		r.metrics.ChainLength.Set(float64(report.Length))
	}
	r.log.Info().
		Str("outcome", outcome).
		Int("length", report.Length).
		Int("peers", len(peers)).
		Int("failures", len(report.Failures)).
		Msg("conflict resolution done")
	return report
}

// checkResponse rejects responses a fetcher should never have returned, so a
// custom ChainFetcher cannot make the resolver trust a length it did not send.
func checkResponse(resp *p2p.ChainResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrPeerResponseInvalid)
	}
	if resp.Length != len(resp.Chain) {
		return fmt.Errorf(
			"%w: reported length %d but sent %d blocks",
			ErrPeerResponseInvalid, resp.Length, len(resp.Chain),
		)
	}
	return nil
}

func (r *Resolver) skip(peer string, err error) PeerFailure {
	failure := PeerFailure{Peer: peer, Err: err}
	r.log.Warn().
		Str(logger.PeerKey, peer).
		Str("kind", failure.Kind()).
		Err(err).
		Msg("skipping peer")
	if r.metrics != nil {
		r.metrics.PeerFetchFailures.WithLabelValues(failure.Kind()).Inc()
	}
	return failure
}
