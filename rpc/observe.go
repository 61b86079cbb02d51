package rpc

import (
	"net/http"
	"simple-ledger-go/observability"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

func instrumentHTTP(metrics *observability.Metrics, log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			route := req.URL.Path
			if cur := mux.CurrentRoute(req); cur != nil {
				if path, err := cur.GetPathTemplate(); err == nil {
					route = path
				}
			}

			start := time.Now()
			rsp := newStatusResponseWriter(w)
			next.ServeHTTP(rsp, req)
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.HTTPCalls.WithLabelValues(route, strconv.Itoa(rsp.statusCode)).Inc()
				metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			}
			log.Debug().
				Str("method", req.Method).
				Str("route", route).
				Str("remote", req.RemoteAddr).
				Int("status", rsp.statusCode).
				Dur("duration", elapsed).
				Msg("served request")
		})
	}
}

/*
statusResponseWriter remembers the status code written so the middleware can
report it after the handler returns.
*/
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	if !mw.wroteHeader {
		mw.statusCode = statusCode
		mw.wroteHeader = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.wroteHeader = true
	return mw.ResponseWriter.Write(b)
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}
