package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/domain/inflight"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
)

// Remote is the subset of the remote client the session needs.
type Remote interface {
	SubmitMetrics(ctx context.Context, email string, entry model.MetricEntry) remote.MessageResult
	FetchHistory(ctx context.Context, email string) remote.HistoryResult
	DeleteHistory(ctx context.Context, email string) remote.DeleteResult
	RequestScore(ctx context.Context, email string) remote.ScoreResult
}

// Publisher accepts transitions without blocking. It reports false when the
// transition was dropped.
type Publisher interface {
	Enqueue(ctx context.Context, t model.Transition) bool
}

// SessionState is a point-in-time copy of the session.
type SessionState struct {
	Draft         model.Draft
	History       []model.MetricEntry
	HistoryLoaded bool
	Score         *model.WellnessScore
	Message       string

	HistoryState    model.HistoryState
	SubmissionState model.SubmissionState
	ScoreState      model.ScoreState
}

// MetricsSession coordinates submit, score and refresh for the active
// identity. State is guarded by mu; remote calls happen outside it.
type MetricsSession struct {
	identity  *IdentityContext
	remote    Remote
	guard     inflight.Guard
	publisher Publisher
	logger    logger.Logger
	now       func() time.Time

	mu         sync.Mutex
	draft      model.Draft
	history    []model.MetricEntry
	historyAx  model.HistoryState
	submission model.SubmissionState
	scoreAx    model.ScoreState
	score      *model.WellnessScore
	message    string
	gen        uint64
}

// SessionOption configures a MetricsSession.
type SessionOption func(*MetricsSession)

// WithSessionPublisher sets where transitions are published.
func WithSessionPublisher(p Publisher) SessionOption {
	return func(s *MetricsSession) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSessionGuard replaces the in-flight submission guard.
func WithSessionGuard(g inflight.Guard) SessionOption {
	return func(s *MetricsSession) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithSessionLogger sets a custom logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *MetricsSession) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionClock overrides the transition timestamp source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *MetricsSession) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMetricsSession creates an idle session with empty history.
func NewMetricsSession(id *IdentityContext, r Remote, opts ...SessionOption) *MetricsSession {
	s := &MetricsSession{
		identity:   id,
		remote:     r,
		history:    []model.MetricEntry{},
		historyAx:  model.HistoryEmpty,
		submission: model.SubmissionIdle,
		scoreAx:    model.ScoreAbsent,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = inflight.NewGuard()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *MetricsSession) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		Draft:           s.draft.Clone(),
		History:         append([]model.MetricEntry{}, s.history...),
		HistoryLoaded:   s.historyAx == model.HistoryLoaded,
		Message:         s.message,
		HistoryState:    s.historyAx,
		SubmissionState: s.submission,
		ScoreState:      s.scoreAx,
	}
	if s.score != nil {
		v := *s.score
		st.Score = &v
	}
	return st
}

// Draft editing.

func (s *MetricsSession) SetSteps(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Steps = &v
}

func (s *MetricsSession) SetCalories(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.CaloriesBurned = &v
}

func (s *MetricsSession) SetSleepHours(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.SleepHours = &v
}

func (s *MetricsSession) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = model.Draft{}
}

// Submit sends the current draft. See SubmitEntry.
func (s *MetricsSession) Submit(ctx context.Context) error {
	email := s.identity.Email(ctx)
	if email == "" {
		s.rejectNoIdentity(ctx)
		return nil
	}

	s.mu.Lock()
	draft := s.draft.Clone()
	s.mu.Unlock()

	entry, err := draft.Entry()
	if err != nil {
		metrics.RecordSubmissionSequence("invalid")
		return err
	}
	return s.submit(ctx, email, entry)
}

// SubmitEntry runs the submit, score, refresh sequence for entry.
//
// Returned errors are caller mistakes (invalid entry, concurrent submit);
// remote failures are reported through the session message and state.
func (s *MetricsSession) SubmitEntry(ctx context.Context, entry model.MetricEntry) error {
	email := s.identity.Email(ctx)
	if email == "" {
		s.rejectNoIdentity(ctx)
		return nil
	}
	if err := entry.Validate(); err != nil {
		metrics.RecordSubmissionSequence("invalid")
		return err
	}
	return s.submit(ctx, email, entry)
}

func (s *MetricsSession) rejectNoIdentity(ctx context.Context) {
	metrics.RecordSubmissionSequence("no_identity")
	s.mu.Lock()
	s.setMessage(ctx, "", remote.MsgRegisterFirst)
	s.mu.Unlock()
}

func (s *MetricsSession) submit(ctx context.Context, email string, entry model.MetricEntry) error {
	if !s.guard.TryAcquire(ctx, email) {
		metrics.RecordSubmissionSequence("in_flight")
		s.mu.Lock()
		s.setMessage(ctx, email, MsgSubmissionInFlight)
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	defer s.guard.Release(ctx, email)

	s.mu.Lock()
	gen := s.gen
	s.setSubmission(ctx, email, model.SubmissionSubmitting)
	s.mu.Unlock()

	res := s.remote.SubmitMetrics(ctx, email, entry)

	s.mu.Lock()
	if s.supersededLocked(ctx, gen, remote.OpSubmitMetrics) {
		s.mu.Unlock()
		metrics.RecordSubmissionSequence("superseded")
		return nil
	}
	if !res.OK() {
		msg := res.Message
		if msg == "" {
			msg = remote.MsgSubmitFailed
		}
		s.setSubmission(ctx, email, model.SubmissionFailed)
		s.setMessage(ctx, email, msg)
		s.setSubmission(ctx, email, model.SubmissionIdle)
		s.mu.Unlock()

		metrics.RecordSubmissionSequence("submit_failed")
		s.logger.Warn(ctx, "submission failed",
			logger.String("kind", res.Kind.String()),
			logger.Error(res.Err),
		)
		return nil
	}
	s.setSubmission(ctx, email, model.SubmissionSubmitted)
	s.setMessage(ctx, email, remote.MsgSubmitted)
	s.setScore(ctx, email, model.ScorePending, s.score)
	s.mu.Unlock()

	scored := s.remote.RequestScore(ctx, email)

	s.mu.Lock()
	if s.supersededLocked(ctx, gen, remote.OpRequestScore) {
		s.mu.Unlock()
		metrics.RecordSubmissionSequence("superseded")
		return nil
	}
	if scored.OK() {
		v := scored.Value
		s.setScore(ctx, email, model.ScoreScored, &v)
	} else {
		s.setScore(ctx, email, model.ScoreUnavailable, nil)
		s.setMessage(ctx, email, remote.MsgScoreUnavailable)
	}
	s.mu.Unlock()

	if scored.OK() {
		metrics.RecordScorePrediction("scored")
	} else {
		metrics.RecordScorePrediction("unavailable")
		s.logger.Warn(ctx, "score unavailable",
			logger.String("kind", scored.Kind.String()),
			logger.Error(scored.Err),
		)
	}

	if !s.refresh(ctx, email, gen) && s.generation() != gen {
		metrics.RecordSubmissionSequence("superseded")
		return nil
	}

	s.mu.Lock()
	if s.gen == gen {
		s.setSubmission(ctx, email, model.SubmissionIdle)
	}
	s.mu.Unlock()

	metrics.RecordSubmissionSequence("completed")
	return nil
}

// RefreshHistory reloads the history. Without an identity it does nothing.
// It reports whether the history was loaded.
func (s *MetricsSession) RefreshHistory(ctx context.Context) bool {
	email := s.identity.Email(ctx)
	if email == "" {
		return false
	}
	return s.refresh(ctx, email, s.generation())
}

// refresh loads the history of email. The result is dropped when the session
// was reset after gen was taken.
func (s *MetricsSession) refresh(ctx context.Context, email string, gen uint64) bool {
	res := s.remote.FetchHistory(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supersededLocked(ctx, gen, remote.OpFetchHistory) {
		return false
	}
	if !res.OK() {
		msg := res.Message
		if msg == "" {
			msg = remote.MsgFetchFailed
		}
		s.setMessage(ctx, email, msg)
		return false
	}
	s.history = append([]model.MetricEntry{}, res.Value...)
	metrics.UpdateHistoryEntries(len(s.history))
	s.setHistory(ctx, email, model.HistoryLoaded)
	return true
}

// DeleteHistory removes every stored entry. On success the history, score
// and draft are reset; history is not fetched again. It reports success.
// A submission still running for the same identity is abandoned.
func (s *MetricsSession) DeleteHistory(ctx context.Context) bool {
	email := s.identity.Email(ctx)
	if email == "" {
		s.mu.Lock()
		s.setMessage(ctx, "", remote.MsgRegisterFirst)
		s.mu.Unlock()
		return false
	}

	gen := s.generation()
	res := s.remote.DeleteHistory(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supersededLocked(ctx, gen, remote.OpDeleteHistory) {
		return false
	}
	if !res.OK() {
		msg := res.Message
		if msg == "" {
			msg = remote.MsgDeleteFailed
		}
		s.setMessage(ctx, email, msg)
		return false
	}
	s.resetLocked(ctx, email)
	s.setMessage(ctx, email, remote.MsgDeleted)
	return true
}

// OnIdentityChanged discards state tied to the previous identity and loads
// the history of the new one. Results of sequences started for the previous
// identity are dropped when they arrive.
func (s *MetricsSession) OnIdentityChanged(ctx context.Context) {
	email := s.identity.Email(ctx)
	s.mu.Lock()
	s.resetLocked(ctx, email)
	s.setMessage(ctx, email, "")
	gen := s.gen
	s.mu.Unlock()

	if email != "" {
		s.refresh(ctx, email, gen)
	}
}

// resetLocked clears everything tied to the current identity and starts a
// new generation.
func (s *MetricsSession) resetLocked(ctx context.Context, email string) {
	s.gen++
	s.history = []model.MetricEntry{}
	metrics.UpdateHistoryEntries(0)
	s.setHistory(ctx, email, model.HistoryEmpty)
	s.setScore(ctx, email, model.ScoreAbsent, nil)
	s.setSubmission(ctx, email, model.SubmissionIdle)
	s.draft = model.Draft{}
}

func (s *MetricsSession) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// supersededLocked reports whether the session was reset since gen.
func (s *MetricsSession) supersededLocked(ctx context.Context, gen uint64, op string) bool {
	if s.gen == gen {
		return false
	}
	s.logger.Debug(ctx, "dropping stale result", logger.String("op", op))
	return true
}

// Setters below must be called with mu held. Each publishes a transition
// when the value changes.

func (s *MetricsSession) setHistory(ctx context.Context, email string, to model.HistoryState) {
	from := s.historyAx
	s.historyAx = to
	if from != to {
		s.publish(ctx, model.Transition{Axis: model.AxisHistory, From: string(from), To: string(to), Email: email})
	}
}

func (s *MetricsSession) setSubmission(ctx context.Context, email string, to model.SubmissionState) {
	from := s.submission
	s.submission = to
	if from != to {
		s.publish(ctx, model.Transition{Axis: model.AxisSubmission, From: string(from), To: string(to), Email: email})
	}
}

func (s *MetricsSession) setScore(ctx context.Context, email string, to model.ScoreState, v *model.WellnessScore) {
	from := s.scoreAx
	s.scoreAx = to
	s.score = v
	if v != nil {
		metrics.UpdateWellnessScore(v.Value)
	} else {
		metrics.UpdateWellnessScore(0)
	}
	if from != to || to == model.ScoreScored {
		t := model.Transition{Axis: model.AxisScore, From: string(from), To: string(to), Email: email}
		if v != nil && to == model.ScoreScored {
			t.Message = v.String()
		}
		s.publish(ctx, t)
	}
}

func (s *MetricsSession) setMessage(ctx context.Context, email, msg string) {
	if s.message == msg {
		return
	}
	s.message = msg
	s.publish(ctx, model.Transition{Axis: model.AxisMessage, Message: msg, Email: email})
}

func (s *MetricsSession) publish(ctx context.Context, t model.Transition) { //nolint:gocritic // hugeParam
	t.At = s.now()
	if t.Axis != model.AxisMessage {
		metrics.RecordTransition(string(t.Axis), t.To)
	}
	if s.publisher == nil {
		return
	}
	if !s.publisher.Enqueue(context.WithoutCancel(ctx), t) {
		s.logger.Debug(ctx, "transition dropped", logger.String("axis", string(t.Axis)), logger.String("to", t.To))
	}
}
