package rpc

import (
	"net/http"
	"simple-ledger-go/observability"
	"simple-ledger-go/p2p"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxBodyBytes int64 = 1 << 20 // 1MB
)

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", p2p.CONTENT_TYPE}

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)
)

// NewRESTServer returns a server for the routes of the given registrars.
// There is no write timeout because mining blocks the response for as long
// as the proof of work takes.
func NewRESTServer(
	addr string,
	maxBodySize int64,
	metrics *observability.Metrics,
	log zerolog.Logger,
	registrars ...Registrar,
) *http.Server {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodyBytes
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	r.Use(handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)), instrumentHTTP(metrics, log))

	for _, registrar := range registrars {
		registrar.Register(r)
	}

	return &http.Server{
		Addr:              addr,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		IdleTimeout:       30 * time.Second,
		Handler:           http.MaxBytesHandler(handlers.CompressHandler(r), maxBodySize),
	}
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}
