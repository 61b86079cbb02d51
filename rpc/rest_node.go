package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"simple-ledger-go/blocks"
	"simple-ledger-go/common"
	"simple-ledger-go/nodes"
	"simple-ledger-go/p2p"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	msgMalformedRequest = "Malformed request"
	msgInvalidNode      = "Invalid node"
	msgBlockMined       = "New Block Mined"
	msgNodeAdded        = "New node added"
	msgChainReplaced    = "This chain was replaced"
	msgAuthoritative    = "This chain is authoritative"
)

type ledgerNode interface {
	Welcome() string
	Chain() ([]blocks.Block, int)
	Mine(ctx context.Context) (*blocks.Block, error)
	SubmitTransaction(sender string, recipient string, amount uint64) (uint64, string)
	RegisterPeers(addresses ...string) ([]string, error)
	Resolve(ctx context.Context) nodes.ResolveReport
}

func NodeEndpoints(node ledgerNode, log zerolog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc(p2p.ROOT_PATH, welcome(node)).Methods(http.MethodGet)
		r.HandleFunc(p2p.CHAIN_PATH, getChain(node, log)).Methods(http.MethodGet)
		r.HandleFunc(p2p.MINE_PATH, mine(node, log)).Methods(http.MethodGet)
		r.HandleFunc(p2p.TRANSACTIONS_PATH, addTransaction(node, log)).Methods(http.MethodPost)
		r.HandleFunc(p2p.REGISTER_PATH, registerNodes(node, log)).Methods(http.MethodPost)
		r.HandleFunc(p2p.RESOLVE_PATH, resolve(node, log)).Methods(http.MethodGet)
	}
}

func MetricsEndpoint(h http.Handler) RegistrarFunc {
	return func(r *mux.Router) {
		r.Handle(p2p.METRICS_PATH, h).Methods(http.MethodGet)
	}
}

func welcome(node ledgerNode) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		w.Header().Set(p2p.CONTENT_TYPE, "text/plain; charset=utf-8")
		fmt.Fprint(w, node.Welcome())
	}
}

func getChain(node ledgerNode, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		chain, length := node.Chain()
		resp := p2p.ChainResponse{Chain: chain, Length: length}
		if !acceptsCBOR(request) {
			writeJSON(w, http.StatusOK, resp, log)
			return
		}

		body, err := cbor.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("encoding chain as CBOR")
			writeJSON(w, http.StatusInternalServerError, p2p.ErrorResponse{Error: err.Error()}, log)
			return
		}
		w.Header().Set(p2p.CONTENT_TYPE, p2p.APPLICATION_CBOR)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			log.Warn().Err(err).Msg("failed to write CBOR response")
		}
	}
}

func mine(node ledgerNode, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		block, err := node.Mine(request.Context())
		if err != nil {
			log.Warn().Err(err).Msg("mining failed")
			writeJSON(w, http.StatusServiceUnavailable, p2p.ErrorResponse{Error: err.Error()}, log)
			return
		}
		writeJSON(w, http.StatusOK, p2p.MineResponse{
			Message:      msgBlockMined,
			Index:        block.Index,
			Transactions: block.Transactions,
			Nonce:        block.Nonce,
			PreviousHash: block.PreviousHash,
		}, log)
	}
}

func addTransaction(node ledgerNode, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		req, err := readBody[p2p.TransactionRequest](request)
		if err != nil {
			badRequest(w, err, log)
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(w, err, log)
			return
		}

		index, id := node.SubmitTransaction(*req.Sender, *req.Recipient, *req.Amount)
		writeJSON(w, http.StatusCreated, p2p.TransactionResponse{
			Message: fmt.Sprintf("Transaction added to Block %d", index),
			Index:   index,
			ID:      id,
		}, log)
	}
}

func registerNodes(node ledgerNode, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		req, err := readBody[p2p.RegisterRequest](request)
		if err != nil {
			badRequest(w, err, log)
			return
		}
		addresses := req.Addresses()
		if len(addresses) == 0 {
			badRequest(w, errors.New("no address given"), log)
			return
		}

		peers, err := node.RegisterPeers(addresses...)
		if err != nil {
			log.Debug().Err(err).Msg("rejected node registration")
			writeJSON(w, http.StatusBadRequest, p2p.ErrorResponse{Error: msgInvalidNode}, log)
			return
		}
		writeJSON(w, http.StatusCreated, p2p.RegisterResponse{Message: msgNodeAdded, Nodes: peers}, log)
	}
}

func resolve(node ledgerNode, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		report := node.Resolve(request.Context())

		resp := p2p.ResolveResponse{Message: msgAuthoritative, Chain: report.Chain}
		if report.Replaced {
			resp.Message = msgChainReplaced
		}
		for _, f := range report.Failures {
			resp.Failures = append(resp.Failures, p2p.PeerFailure{
				Peer:  f.Peer,
				Kind:  f.Kind(),
				Error: f.Err.Error(),
			})
		}
		writeJSON(w, http.StatusOK, resp, log)
	}
}

func badRequest(w http.ResponseWriter, err error, log zerolog.Logger) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, p2p.ErrorResponse{Error: err.Error()}, log)
		return
	}
	log.Debug().Err(err).Msg("malformed request")
	writeJSON(w, http.StatusBadRequest, p2p.ErrorResponse{Error: msgMalformedRequest}, log)
}

func readBody[T any](request *http.Request) (*T, error) {
	defer request.Body.Close()
	raw, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, err
	}
	return common.Decode[T](raw)
}

func writeJSON(w http.ResponseWriter, status int, data any, log zerolog.Logger) {
	enc, err := common.Encode(data)
	if err != nil {
		log.Error().Err(err).Msg("encoding JSON response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(p2p.CONTENT_TYPE, p2p.APPLICATION_JSON)
	w.WriteHeader(status)
	if _, err := w.Write(enc); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func acceptsCBOR(request *http.Request) bool {
	for _, part := range strings.Split(request.Header.Get(p2p.ACCEPT), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == p2p.APPLICATION_CBOR {
			return true
		}
	}
	return false
}
