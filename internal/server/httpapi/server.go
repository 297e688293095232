// Package httpapi serves the devserver's JSON endpoints: login, refresh,
// logout and getGridData, plus /metrics and /healthz.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
	"github.com/dmitrijs2005/eumgrid/internal/server/procedures"
	"github.com/dmitrijs2005/eumgrid/internal/server/users"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address         string
	basePath        string
	users           *users.Service
	procs           *procedures.Registry
	logger          logging.Logger
	metrics         *metrics.Metrics
	cookieSecure    bool
	refreshTokenTTL time.Duration
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us *users.Service, procs *procedures.Registry, m *metrics.Metrics) *HTTPServer {
	return &HTTPServer{
		address:         cfg.Addr,
		basePath:        cfg.BasePath,
		users:           us,
		procs:           procs,
		logger:          l.With("module", "http_server"),
		metrics:         m,
		cookieSecure:    cfg.CookieSecure,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// Handler returns the complete route tree.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(s.route(loginPath), s.login).Methods(http.MethodPost)
	r.HandleFunc(s.route(refreshPath), s.refresh).Methods(http.MethodPost)
	r.HandleFunc(s.route(logoutPath), s.logout).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(s.requireAccessToken)
	protected.HandleFunc(s.route(gridDataPath), s.gridData).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return s.metrics.InstrumentHandler(s.withRequestLog(r))
}

func (s *HTTPServer) route(p string) string {
	return s.basePath + p
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String(), "base_path", s.basePath)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
