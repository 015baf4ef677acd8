// Package httpserver builds the process's *http.Server.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second

	// writeGrace lets the request Timeout middleware write its 504 body
	// before the server cuts the connection.
	writeGrace = 5 * time.Second
)

// New returns a server for handler. requestTimeout is the per-request budget
// enforced by middleware; the write deadline sits just beyond it.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      requestTimeout + writeGrace,
		IdleTimeout:       idleTimeout,
	}
}
