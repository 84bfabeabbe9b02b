package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/shopbot/core/logger"
)

// NewHandler routes /metrics to the recorder's registry and /healthz to a
// static liveness probe.
func NewHandler(r *Recorder) http.Handler {
	mux := chi.NewRouter()
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if reg := r.Registry(); reg != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}

// Server serves the metrics handler until Shutdown.
type Server struct {
	srv *http.Server
}

// NewServer binds the handler to listen; call Start to accept connections.
func NewServer(listen string, r *Recorder) *Server {
	return &Server{srv: &http.Server{
		Addr:              listen,
		Handler:           NewHandler(r),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start runs the listener in the background. Listener errors are logged.
func (s *Server) Start(ctx context.Context) {
	logger.Info(ctx, "metrics", "listen", slog.String("listen", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "metrics", "listen.fail", logger.Err(err))
		}
	}()
}

// Shutdown stops the listener, waiting at most five seconds for requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
