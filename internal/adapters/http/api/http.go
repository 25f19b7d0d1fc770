// Package api serves the wellness service HTTP contract used by the client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/wellness/internal/adapters/repository"
	"github.com/okian/wellness/internal/domain/scoring"
	"github.com/okian/wellness/internal/domain/types"
	"github.com/okian/wellness/pkg/logger"
)

// naiveTimestamp matches the ISO form the service writes without a zone.
const naiveTimestamp = "2006-01-02T15:04:05.999999"

// Dependencies required by HTTP handlers.
type Dependencies interface {
	repository.Store
	scoring.Predictor
}

// deps bundles a store and predictor into Dependencies.
type deps struct {
	repository.Store
	scoring.Predictor
}

// NewDependencies combines a store and a predictor.
func NewDependencies(s repository.Store, p scoring.Predictor) Dependencies {
	return deps{Store: s, Predictor: p}
}

// Server wires HTTP routes for the wellness API.
type Server struct {
	deps   Dependencies
	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(d Dependencies, opts ...Option) *Server {
	s := &Server{deps: d}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.HandleHealth))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /home", s.instrument("home", s.HandleHome))
	mux.HandleFunc("POST /create_user", s.instrument("create_user", s.HandleCreateUser))
	mux.HandleFunc("POST /health_metrics/{email}", s.instrument("health_metrics", s.HandleAddMetrics))
	mux.HandleFunc("GET /health_metrics/{email}", s.instrument("health_metrics", s.HandleGetMetrics))
	mux.HandleFunc("DELETE /health_metrics/{email}", s.instrument("health_metrics", s.HandleDeleteMetrics))
	mux.HandleFunc("POST /predict-wellness/{model_id}", s.instrument("predict_wellness", s.HandlePredict))
}

// HandleCreateUser handles POST /create_user. A duplicate email is reported
// in-band with a 200 status.
func (s *Server) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	u, err := s.deps.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		s.logger.Info(r.Context(), "create user rejected", logger.String("email", req.Email), logger.Error(err))
		writeJSON(w, http.StatusOK, types.MessageResponse{Error: "An error occurred: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("User %s added successfully", u.Name),
		User:    u.ID,
	})
}

// HandleAddMetrics handles POST /health_metrics/{email}.
func (s *Server) HandleAddMetrics(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	var req types.MetricsRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Steps < 0 || req.CaloriesBurntPerDay < 0 || req.SleepHrs < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, ErrInvalidValue.Error()+": metrics must not be negative")
		return
	}

	rec, err := s.deps.AddMetric(r.Context(), email, repository.Record{
		Steps:      req.Steps,
		Calories:   req.CaloriesBurntPerDay,
		SleepHours: req.SleepHrs,
	})
	if s.storeFailed(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("Metrics with id %s created for user %d", rec.ID, rec.UserID),
	})
}

// HandleGetMetrics handles GET /health_metrics/{email}. A single record is
// returned as an object, anything else as an array.
func (s *Server) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Metrics(r.Context(), r.PathValue("email"))
	if s.storeFailed(w, r, err) {
		return
	}

	out := make([]types.MetricRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, toWire(rec))
	}
	if len(out) == 1 {
		writeJSON(w, http.StatusOK, types.HistoryResponse{Metrics: out[0]})
		return
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{Metrics: out})
}

// HandleDeleteMetrics handles DELETE /health_metrics/{email}.
func (s *Server) HandleDeleteMetrics(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.DeleteMetrics(r.Context(), r.PathValue("email"))
	if s.storeFailed(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: fmt.Sprintf("%d metrics deleted", n)})
}

// HandlePredict handles POST /predict-wellness/{model_id}?email=. The latest
// record of the user is scored and the score is stored on it.
func (s *Server) HandlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email query parameter is required")
		return
	}

	records, err := s.deps.Metrics(ctx, email)
	if s.storeFailed(w, r, err) {
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusOK, types.MessageResponse{Error: detailNoMetrics})
		return
	}
	latest := records[len(records)-1]

	score, err := s.deps.Predict(ctx, r.PathValue("model_id"), scoring.Input{
		Steps:      latest.Steps,
		Calories:   latest.Calories,
		SleepHours: latest.SleepHours,
	})
	switch {
	case errors.Is(err, scoring.ErrUnknownModel):
		writeDetail(w, http.StatusNotFound, detailModelNotFound)
		return
	case err != nil:
		s.logger.Error(ctx, "prediction failed", logger.String("email", email), logger.Error(err))
		writeDetail(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	if _, err := s.deps.SetLatestScore(ctx, email, score); err != nil {
		s.logger.Warn(ctx, "failed to store score", logger.String("email", email), logger.Error(err))
	}
	writeJSON(w, http.StatusOK, types.PredictionResponse{Pred: score})
}

// storeFailed writes the response for a repository error and reports
// whether one was written.
func (s *Server) storeFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repository.ErrNotFound):
		writeDetail(w, http.StatusNotFound, detailEmailNotFound)
	case errors.Is(err, repository.ErrNoMetrics):
		writeDetail(w, http.StatusNotFound, detailNoMetrics)
	default:
		s.logger.Error(r.Context(), "store failure", logger.String("path", r.URL.Path), logger.Error(err))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
	return true
}

func toWire(rec repository.Record) types.MetricRecord {
	return types.MetricRecord{
		ID:            rec.ID,
		Steps:         rec.Steps,
		Calories:      rec.Calories,
		SleepHours:    rec.SleepHours,
		Date:          rec.CreatedAt.Format(naiveTimestamp),
		WellnessScore: rec.WellnessScore,
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}
