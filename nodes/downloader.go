package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"simple-ledger-go/p2p"

	"github.com/fxamacker/cbor/v2"
)

const (
	MAX_CHAIN_RESPONSE_SIZE = 64 << 20
)

var (
	ErrPeerUnreachable     = errors.New("peer unreachable")
	ErrPeerResponseInvalid = errors.New("peer response invalid")
)

// ChainFetcher downloads the chain a peer currently holds.
type ChainFetcher interface {
	FetchChain(ctx context.Context, address string) (*p2p.ChainResponse, error)
}

// ChainFetcherFunc adapts an ordinary function to ChainFetcher.
type ChainFetcherFunc func(ctx context.Context, address string) (*p2p.ChainResponse, error)

func (f ChainFetcherFunc) FetchChain(ctx context.Context, address string) (*p2p.ChainResponse, error) {
	return f(ctx, address)
}

type HTTPChainFetcher struct {
	client  *http.Client
	accept  string
	maxSize int64
}

// NewHTTPChainFetcher asks peers for their chain in the given media type
// (p2p.APPLICATION_JSON or p2p.APPLICATION_CBOR). Responses are decoded by
// their own Content-Type, so peers that ignore the preference still work.
func NewHTTPChainFetcher(client *http.Client, accept string) *HTTPChainFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if len(accept) == 0 {
		accept = p2p.APPLICATION_JSON
	}
	return &HTTPChainFetcher{
		client:  client,
		accept:  accept,
		maxSize: MAX_CHAIN_RESPONSE_SIZE,
	}
}

func (f *HTTPChainFetcher) FetchChain(ctx context.Context, address string) (*p2p.ChainResponse, error) {
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerUnreachable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.JoinPath(p2p.CHAIN_PATH).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerUnreachable, err)
	}
	req.Header.Set(p2p.ACCEPT, f.accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrPeerResponseInvalid, resp.Status)
	}

	msg, err := decodeChainResponse(resp.Header.Get(p2p.CONTENT_TYPE), io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerResponseInvalid, err)
	}
	if err := checkResponse(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeChainResponse(contentType string, body io.Reader) (*p2p.ChainResponse, error) {
	mediaType := p2p.APPLICATION_JSON
	if len(contentType) != 0 {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, err
		}
		mediaType = mt
	}

	var msg p2p.ChainResponse
	switch mediaType {
	case p2p.APPLICATION_CBOR:
		if err := cbor.NewDecoder(body).Decode(&msg); err != nil {
			return nil, err
		}
	case p2p.APPLICATION_JSON, "text/plain":
		if err := json.NewDecoder(body).Decode(&msg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return &msg, nil
}
