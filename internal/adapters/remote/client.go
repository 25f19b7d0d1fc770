// Package remote is the typed client for the wellness service.
//
// Every operation performs exactly one HTTP round trip, never retries, and
// reports its outcome as a Result instead of returning an error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/internal/domain/types"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Defaults.
const (
	defaultTimeout   = 15 * time.Second
	defaultModelID   = "1"
	defaultUserAgent = "wellness-cli/1.0"
)

// MaxResponseBytes caps how much of a response body is read. Larger bodies
// are reported as malformed rather than parsed partially.
const MaxResponseBytes = 1 << 20

// Operation names used in logs, metrics and wrapped errors.
const (
	OpCreateIdentity = "create_identity"
	OpSubmitMetrics  = "submit_metrics"
	OpFetchHistory   = "fetch_history"
	OpDeleteHistory  = "delete_history"
	OpRequestScore   = "request_score"
)

// Client talks to the wellness service. It owns no session state and is
// safe for concurrent use.
type Client struct {
	baseURL      *url.URL
	modelID      string
	timeout      time.Duration
	httpClient   *http.Client
	limiter      *rate.Limiter
	userAgent    string
	newRequestID func() string
	logger       logger.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:      u,
		modelID:      defaultModelID,
		timeout:      defaultTimeout,
		userAgent:    defaultUserAgent,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("remote")
	}
	return c, nil
}

// CreateIdentity registers name/email with the service.
func (c *Client) CreateIdentity(ctx context.Context, name, email string) MessageResult {
	const op = OpCreateIdentity
	email = strings.TrimSpace(email)
	if email == "" {
		return observe(ctx, c, op, time.Now(), guardFailure[string](op))
	}
	body := types.CreateUserRequest{Name: strings.TrimSpace(name), Email: email}
	return c.messageCall(ctx, op, http.MethodPost, c.endpoint(nil, "create_user"), body, MsgAccountCreated, MsgCreateFailed)
}

// SubmitMetrics stores one entry for email.
func (c *Client) SubmitMetrics(ctx context.Context, email string, entry model.MetricEntry) MessageResult {
	const op = OpSubmitMetrics
	email = strings.TrimSpace(email)
	if email == "" {
		return observe(ctx, c, op, time.Now(), guardFailure[string](op))
	}
	body := types.MetricsRequest{
		Steps:               entry.Steps,
		CaloriesBurntPerDay: entry.CaloriesBurned,
		SleepHrs:            entry.SleepHours,
	}
	return c.messageCall(ctx, op, http.MethodPost, c.endpoint(nil, "health_metrics", email), body, MsgSubmitted, MsgSubmitFailed)
}

// FetchHistory returns the stored series for email, normalised to a slice.
func (c *Client) FetchHistory(ctx context.Context, email string) HistoryResult {
	const op = OpFetchHistory
	start := time.Now()
	email = strings.TrimSpace(email)
	if email == "" {
		return observe(ctx, c, op, start, guardFailure[[]model.MetricEntry](op))
	}

	resp := c.send(ctx, op, http.MethodGet, c.endpoint(nil, "health_metrics", email), nil)
	if resp.kind != KindNone {
		return observe(ctx, c, op, start, failed[[]model.MetricEntry](op, resp, MsgFetchFailed))
	}

	entries, err := decodeHistory(resp.body, email)
	if err != nil {
		return observe(ctx, c, op, start, failure[[]model.MetricEntry](op, KindMalformedResponse, MsgFetchFailed, resp.status, err))
	}
	return observe(ctx, c, op, start, success(entries, "", resp.status))
}

// DeleteHistory removes every entry stored for email.
func (c *Client) DeleteHistory(ctx context.Context, email string) DeleteResult {
	const op = OpDeleteHistory
	start := time.Now()
	email = strings.TrimSpace(email)
	if email == "" {
		return observe(ctx, c, op, start, guardFailure[bool](op))
	}

	resp := c.send(ctx, op, http.MethodDelete, c.endpoint(nil, "health_metrics", email), nil)
	if resp.kind != KindNone {
		return observe(ctx, c, op, start, failed[bool](op, resp, MsgDeleteFailed))
	}
	return observe(ctx, c, op, start, success(true, MsgDeleted, resp.status))
}

// RequestScore asks the predictor for a wellness score based on the latest
// entry of email. Callers only invoke it after a successful SubmitMetrics.
func (c *Client) RequestScore(ctx context.Context, email string) ScoreResult {
	const op = OpRequestScore
	start := time.Now()
	email = strings.TrimSpace(email)
	if email == "" {
		return observe(ctx, c, op, start, guardFailure[model.WellnessScore](op))
	}

	q := url.Values{}
	q.Set("email", email)
	resp := c.send(ctx, op, http.MethodPost, c.endpoint(q, "predict-wellness", c.modelID), nil)
	if resp.kind != KindNone {
		return observe(ctx, c, op, start, failed[model.WellnessScore](op, resp, MsgScoreUnavailable))
	}

	pred := gjson.GetBytes(resp.body, "pred")
	if pred.Type != gjson.Number {
		err := fmt.Errorf("pred missing or not a number: %s", truncate(resp.body))
		return observe(ctx, c, op, start, failure[model.WellnessScore](op, KindMalformedResponse, MsgScoreUnavailable, resp.status, err))
	}
	v := pred.Float()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return observe(ctx, c, op, start, failure[model.WellnessScore](op, KindMalformedResponse, MsgScoreUnavailable, resp.status, nil))
	}
	return observe(ctx, c, op, start, success(model.WellnessScore{Value: v}, "", resp.status))
}

// messageCall handles the {message} shaped POST endpoints.
func (c *Client) messageCall(ctx context.Context, op, method, endpoint string, body any, okMsg, failMsg string) MessageResult {
	start := time.Now()
	resp := c.send(ctx, op, method, endpoint, body)
	if resp.kind != KindNone {
		return observe(ctx, c, op, start, failed[string](op, resp, failMsg))
	}

	msg := gjson.GetBytes(resp.body, "message")
	if msg.Type != gjson.String {
		err := fmt.Errorf("message missing: %s", truncate(resp.body))
		return observe(ctx, c, op, start, failure[string](op, KindMalformedResponse, failMsg, resp.status, err))
	}
	text := strings.TrimSpace(msg.String())
	out := okMsg
	if text != "" {
		out = text
	}
	return observe(ctx, c, op, start, success(text, out, resp.status))
}

// response is the raw outcome of send.
type response struct {
	status int
	body   []byte
	kind   Kind
	detail string
	err    error
}

// send performs the single round trip and classifies transport, status and
// in-band failures. Bodies of 2xx responses are guaranteed to be valid JSON
// objects, or empty for DELETE.
func (c *Client) send(ctx context.Context, op, method, endpoint string, payload any) response {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{kind: KindTransportFailure, err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return response{kind: KindTransportFailure, err: fmt.Errorf("marshal request body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return response{kind: KindTransportFailure, err: fmt.Errorf("create request: %w", err)}
	}
	reqID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug(ctx, "remote request",
		logger.String("op", op),
		logger.String("method", method),
		logger.String("url", endpoint),
		logger.String("request_id", reqID),
	)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return response{kind: KindTransportFailure, err: fmt.Errorf("execute request: %w", err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBytes+1))
	if err != nil {
		return response{status: httpResp.StatusCode, kind: KindTransportFailure, err: fmt.Errorf("read response: %w", err)}
	}
	if len(body) > MaxResponseBytes {
		return response{
			status: httpResp.StatusCode,
			kind:   KindMalformedResponse,
			err:    fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseBytes),
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return response{
			status: httpResp.StatusCode,
			body:   body,
			kind:   KindServiceFailure,
			detail: serviceDetail(body),
			err:    fmt.Errorf("status %d", httpResp.StatusCode),
		}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 && method == http.MethodDelete {
		return response{status: httpResp.StatusCode}
	}
	if !gjson.ValidBytes(trimmed) || !gjson.ParseBytes(trimmed).IsObject() {
		if method == http.MethodDelete {
			return response{status: httpResp.StatusCode, body: trimmed}
		}
		return response{
			status: httpResp.StatusCode,
			body:   trimmed,
			kind:   KindMalformedResponse,
			err:    fmt.Errorf("body is not a JSON object: %s", truncate(trimmed)),
		}
	}

	// The service reports some failures in-band with a 2xx status.
	if e := gjson.GetBytes(trimmed, "error"); e.Exists() && e.Type != gjson.Null {
		return response{
			status: httpResp.StatusCode,
			body:   trimmed,
			kind:   KindServiceFailure,
			detail: strings.TrimSpace(e.String()),
			err:    fmt.Errorf("in-band error: %s", e.String()),
		}
	}

	return response{status: httpResp.StatusCode, body: trimmed}
}

// failed converts a non-success response into a Result.
func failed[T any](op string, resp response, msg string) Result[T] {
	r := failure[T](op, resp.kind, msg, resp.status, resp.err)
	r.Detail = resp.detail
	return r
}

// observe records metrics and logs the outcome, then returns r unchanged.
func observe[T any](ctx context.Context, c *Client, op string, start time.Time, r Result[T]) Result[T] {
	elapsed := time.Since(start)
	outcome := "success"
	if !r.OK() {
		outcome = "failure"
		metrics.RecordErrorByComponent("remote", r.Kind.String())
	}
	metrics.RecordRemoteRequest(op, outcome, r.Kind.String())
	if r.Kind != KindGuardViolation {
		metrics.RecordRemoteLatency(op, float64(elapsed.Milliseconds()))
	}

	fields := []logger.Field{
		logger.String("op", op),
		logger.String("outcome", outcome),
		logger.Int("status", r.Status),
		logger.Duration("elapsed", elapsed),
	}
	if r.OK() {
		c.logger.Debug(ctx, "remote call finished", fields...)
		return r
	}
	fields = append(fields, logger.String("kind", r.Kind.String()), logger.Error(r.Err))
	if r.Detail != "" {
		fields = append(fields, logger.String("detail", r.Detail))
	}
	c.logger.Warn(ctx, "remote call failed", fields...)
	return r
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL.JoinPath(escaped...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// serviceDetail extracts a human readable reason from an error body.
func serviceDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

func truncate(b []byte) string {
	const limit = 120
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
