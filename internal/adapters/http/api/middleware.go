package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
)

// HeaderRequestID carries the caller's request id. It is echoed on the
// response so client and stub logs can be joined.
const HeaderRequestID = "X-Request-ID"

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusUnprocessable   = 422
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// instrument wraps a route handler with request metrics and a per-request
// debug log line. endpoint is the metrics label, not the raw path, so
// emails never become label values.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(HeaderRequestID)
		if reqID != "" {
			w.Header().Set(HeaderRequestID, reqID)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		fields := []logger.Field{
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.Int("status", rec.status),
			logger.Float64("duration_ms", durationMs),
		}
		if reqID != "" {
			fields = append(fields, logger.String("request_id", reqID))
		}

		if rec.status < statusBadRequest {
			s.logger.Debug(r.Context(), "request served", fields...)
			return
		}
		class := classifyStatus(rec.status)
		metrics.RecordErrorByComponent("http", class)
		if class == "server_error" {
			s.logger.Warn(r.Context(), "request failed", append(fields, logger.String("class", class))...)
			return
		}
		s.logger.Debug(r.Context(), "request rejected", append(fields, logger.String("class", class))...)
	}
}

// classifyStatus maps an error status to the error class label.
func classifyStatus(status int) string {
	switch {
	case status >= statusInternalError:
		return "server_error"
	case status == statusTooManyRequests:
		return "rate_limit"
	case status == statusNotFound:
		return "not_found"
	case status == statusUnprocessable:
		return "validation"
	case status >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
