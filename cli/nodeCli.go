package cli

import (
	"context"
	"fmt"
	"net/http"
	"simple-ledger-go/logger"
	"simple-ledger-go/nodes"
	"simple-ledger-go/observability"
	"simple-ledger-go/p2p"
	"simple-ledger-go/rpc"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	keyHost              = "host"
	keyPort              = "port"
	keyPeers             = "peers"
	keyConsensusInterval = "consensus-interval"
	keyFetchTimeout      = "fetch-timeout"
	keyFetchConcurrency  = "fetch-concurrency"
	keyPeerEncoding      = "peer-encoding"
	keyMaxBodySize       = "max-body-size"

	encodingJSON = "json"
	encodingCBOR = "cbor"
)

type (
	nodeConfiguration struct {
		Base *baseConfiguration

		Host string
		Port int
		// Peers registered at startup.
		Peers []string
		// Periodic conflict resolution; zero disables it.
		ConsensusInterval time.Duration
		FetchTimeout      time.Duration
		FetchConcurrency  int
		// Representation asked from peers, json or cbor.
		PeerEncoding string
		MaxBodySize  int64
	}

	nodeRunFunc func(ctx context.Context, config *nodeConfiguration) error
)

func newRunCmd(base *baseConfiguration, run nodeRunFunc) *cobra.Command {
	config := &nodeConfiguration{Base: base}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts a ledger node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), config)
		},
	}
	cmd.Flags().StringVar(&config.Host, keyHost, p2p.DEFAULT_HOST, "host to listen on, also part of the node id")
	cmd.Flags().IntVarP(&config.Port, keyPort, "p", p2p.DEFAULT_PORT, "port number to use")
	cmd.Flags().StringSliceVar(&config.Peers, keyPeers, nil, "peer node urls to register at startup")
	cmd.Flags().DurationVar(&config.ConsensusInterval, keyConsensusInterval, 0, "resolve conflicts with peers this often (0 disables)")
	cmd.Flags().DurationVar(&config.FetchTimeout, keyFetchTimeout, nodes.DEFAULT_FETCH_TIMEOUT, "timeout for fetching a peer's chain")
	cmd.Flags().IntVar(&config.FetchConcurrency, keyFetchConcurrency, nodes.DEFAULT_FETCH_CONCURRENCY, "how many peers to fetch at once")
	cmd.Flags().StringVar(&config.PeerEncoding, keyPeerEncoding, encodingJSON, "chain encoding to ask from peers (json|cbor)")
	cmd.Flags().Int64Var(&config.MaxBodySize, keyMaxBodySize, rpc.DefaultMaxBodyBytes, "maximum request body size in bytes")
	return cmd
}

func (c *nodeConfiguration) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid %s %d", keyPort, c.Port)
	}
	if c.ConsensusInterval < 0 {
		return fmt.Errorf("%s must not be negative", keyConsensusInterval)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("%s must not be negative", keyFetchTimeout)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("%s must be at least 1", keyFetchConcurrency)
	}
	if c.MaxBodySize < 1 {
		return fmt.Errorf("%s must be positive", keyMaxBodySize)
	}
	if _, err := c.accept(); err != nil {
		return err
	}
	for _, peer := range c.Peers {
		if _, err := nodes.ParsePeerAddress(peer); err != nil {
			return fmt.Errorf("invalid %s: %w", keyPeers, err)
		}
	}
	return nil
}

func (c *nodeConfiguration) accept() (string, error) {
	switch c.PeerEncoding {
	case encodingJSON:
		return p2p.APPLICATION_JSON, nil
	case encodingCBOR:
		return p2p.APPLICATION_CBOR, nil
	default:
		return "", fmt.Errorf("invalid %s %q, expected %s or %s", keyPeerEncoding, c.PeerEncoding, encodingJSON, encodingCBOR)
	}
}

func startLedgerNode(ctx context.Context, config *nodeConfiguration) error {
	log, err := logger.New(logger.Config{
		Level:  config.Base.LogLevel,
		Format: config.Base.LogFormat,
		Output: config.Base.out,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	accept, err := config.accept()
	if err != nil {
		return err
	}

	id := p2p.NewNodeId(config.Host, config.Port)
	metrics := observability.NewMetrics()
	node, err := nodes.NewNode(nodes.NodeConfig{
		ID:               id,
		Peers:            config.Peers,
		Fetcher:          nodes.NewHTTPChainFetcher(&http.Client{}, accept),
		FetchTimeout:     config.FetchTimeout,
		FetchConcurrency: config.FetchConcurrency,
		ResolveInterval:  config.ConsensusInterval,
		Metrics:          metrics,
		Log:              log,
	})
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	rpcLog := logger.Module(log, "rpc")
	server := rpc.NewRESTServer(id.String(), config.MaxBodySize, metrics, rpcLog,
		rpc.NodeEndpoints(node, rpcLog),
		rpc.MetricsEndpoint(metrics.Handler()),
	)

	log.Info().
		Str(logger.NodeIDKey, id.String()).
		Strs("peers", node.Peers()).
		Dur(keyConsensusInterval, config.ConsensusInterval).
		Msg("starting ledger node")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpsrv.Run(ctx, *server, httpsrv.ShutdownTimeout(5*time.Second))
	})
	g.Go(func() error {
		return node.Run(ctx)
	})
	err = g.Wait()
	log.Info().Err(err).Msg("ledger node stopped")
	return err
}
