package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Journey calls are small JSON bodies, so reads
// are bounded tightly; writes allow for a CRI token exchange inside a
// callback.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    64 << 10,
	}
}
