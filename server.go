package main

import (
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
)

// newHandler routes POST / to the capture handler and everything else to the file server.
// Paths reach the file server uncleaned so escape attempts end in 404, not a redirect.
func newHandler(cfg *Config, sink *captureSink, logger *slog.Logger) http.Handler {
	capture := captureHandler(sink, logger)
	files := newFileServer(cfg.Root, cfg.RenderMarkdown, logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/" {
			capture(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// captureHandler always answers 200 OK, whatever the body or sink outcome.
func captureHandler(sink *captureSink, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := newCapturedRequest(r)
		if err != nil {
			logger.Warn("request body truncated", "remote", r.RemoteAddr, "read", len(c.RawBody), "error", err)
		}
		logger.Info("captured request",
			"method", c.Method,
			"remote", c.RemoteAddr,
			"size", humanize.Bytes(uint64(len(c.RawBody))),
			"fields", len(c.Form))

		if err := sink.Write(c); err != nil {
			logger.Error("failed to write capture", "error", err)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
