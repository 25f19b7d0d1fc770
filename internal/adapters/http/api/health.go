package api

import (
	"net/http"

	"github.com/okian/wellness/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
}

// HandleHealth handles GET /healthz.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Users: s.deps.Count(r.Context())})
}

// HandleHome handles GET /home.
func (s *Server) HandleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello world"})
}

// MetricsHandler serves the process metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
