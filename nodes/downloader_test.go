package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"simple-ledger-go/blockchain"
	"simple-ledger-go/p2p"
	"simple-ledger-go/testutils"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func chainServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPChainFetcher_JSON(t *testing.T) {
	chain := testutils.MineChain(t, 3, "alice")
	var accept string
	srv := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, p2p.CHAIN_PATH, r.URL.Path)
		accept = r.Header.Get(p2p.ACCEPT)
		w.Header().Set(p2p.CONTENT_TYPE, "application/json; charset=utf-8")
		require.NoError(t, json.NewEncoder(w).Encode(p2p.ChainResponse{Chain: chain, Length: len(chain)}))
	})

	resp, err := NewHTTPChainFetcher(srv.Client(), "").FetchChain(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, p2p.APPLICATION_JSON, accept)
	require.Equal(t, 3, resp.Length)
	require.Equal(t, chain, resp.Chain)
	require.True(t, blockchain.ValidateChain(resp.Chain))
}

func TestHTTPChainFetcher_CBOR(t *testing.T) {
	chain := testutils.MineChain(t, 3, "bob")
	srv := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, p2p.APPLICATION_CBOR, r.Header.Get(p2p.ACCEPT))
		body, err := cbor.Marshal(p2p.ChainResponse{Chain: chain, Length: len(chain)})
		require.NoError(t, err)
		w.Header().Set(p2p.CONTENT_TYPE, p2p.APPLICATION_CBOR)
		_, _ = w.Write(body)
	})

	resp, err := NewHTTPChainFetcher(srv.Client(), p2p.APPLICATION_CBOR).FetchChain(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Length)
	require.True(t, blockchain.ValidateChain(resp.Chain))
}

func TestHTTPChainFetcher_PeerWithPathPrefix(t *testing.T) {
	chain := testutils.MineChain(t, 1, "")
	srv := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ledger/chain", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(p2p.ChainResponse{Chain: chain, Length: 1}))
	})

	resp, err := NewHTTPChainFetcher(srv.Client(), "").FetchChain(context.Background(), srv.URL+"/ledger")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Length)
}

func TestHTTPChainFetcher_InvalidResponses(t *testing.T) {
	chain := testutils.MineChain(t, 3, "carol")
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(p2p.CONTENT_TYPE, p2p.APPLICATION_JSON)
				_, _ = w.Write([]byte("{not json"))
			},
		},
		{
			name: "length mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(p2p.CONTENT_TYPE, p2p.APPLICATION_JSON)
				_ = json.NewEncoder(w).Encode(p2p.ChainResponse{Chain: chain, Length: 5})
			},
		},
		{
			name: "unsupported content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(p2p.CONTENT_TYPE, "application/xml")
				_, _ = w.Write([]byte("<chain/>"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chainServer(t, tt.handler)
			resp, err := NewHTTPChainFetcher(srv.Client(), "").FetchChain(context.Background(), srv.URL)
			require.ErrorIs(t, err, ErrPeerResponseInvalid)
			require.Nil(t, resp)
		})
	}
}

func TestHTTPChainFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPChainFetcher(nil, "").FetchChain(context.Background(), addr)
	require.ErrorIs(t, err, ErrPeerUnreachable)
}

func TestHTTPChainFetcher_Canceled(t *testing.T) {
	srv := chainServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPChainFetcher(srv.Client(), "").FetchChain(ctx, srv.URL)
	require.ErrorIs(t, err, ErrPeerUnreachable)
}
