package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the platform. Write timeout is generous
// because artifact downloads stream full declaration XML documents.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
