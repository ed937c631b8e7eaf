package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/reporting"
	"github.com/yamf-go/op-marker/runner"
)

// OutcomeSource returns the most recent run outcome, or nil before the first run completes.
type OutcomeSource func() *runner.Outcome

// HealthzServer answers liveness checks and exposes the latest marking results
type HealthzServer struct {
	ctx    context.Context
	server *http.Server
	log    log.Logger
	latest OutcomeSource
}

func NewHealthzServer(logger log.Logger, latest OutcomeSource) *HealthzServer {
	if logger == nil {
		logger = log.Root()
	}
	return &HealthzServer{log: logger, latest: latest}
}

// Handler builds the routed, CORS-wrapped handler served by Start
func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	hdlr.HandleFunc("/results", h.HandleResults)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	h.ctx = ctx
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

// HandleResults writes the latest outcome as JSON, or 204 when no run has completed
func (h *HealthzServer) HandleResults(w http.ResponseWriter, r *http.Request) {
	var outcome *runner.Outcome
	if h.latest != nil {
		outcome = h.latest()
	}
	if outcome == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data, err := reporting.FormatJSON(outcome)
	if err != nil {
		h.log.Error("Failed to encode results", "run_id", outcome.RunID, "err", err)
		metrics.RecordErrorDetails("results_encode", err)
		http.Error(w, "failed to encode results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data) //nolint:errcheck
}
