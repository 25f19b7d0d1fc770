package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeRemote is a scripted remote service that records every call.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	createResult remote.MessageResult
	submitResult remote.MessageResult
	scoreResult  remote.ScoreResult
	deleteResult remote.DeleteResult
	fetchResult  func() remote.HistoryResult

	// submitGate, when set, blocks SubmitMetrics until closed.
	submitGate    chan struct{}
	submitEntered chan struct{}

	// scoreGate and deleteGate do the same for RequestScore and DeleteHistory.
	scoreGate     chan struct{}
	scoreEntered  chan struct{}
	deleteGate    chan struct{}
	deleteEntered chan struct{}

	stored []model.MetricEntry
}

func newFakeRemote() *fakeRemote {
	f := &fakeRemote{
		createResult: remote.MessageResult{Value: "User added", Message: "User added"},
		submitResult: remote.MessageResult{Message: remote.MsgSubmitted},
		scoreResult:  remote.ScoreResult{Value: model.WellnessScore{Value: 72.5}},
		deleteResult: remote.DeleteResult{Value: true, Message: remote.MsgDeleted},
	}
	f.fetchResult = func() remote.HistoryResult {
		f.mu.Lock()
		defer f.mu.Unlock()
		return remote.HistoryResult{Value: append([]model.MetricEntry{}, f.stored...)}
	}
	return f
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeRemote) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeRemote) CreateIdentity(_ context.Context, name, email string) remote.MessageResult {
	f.record("create")
	return f.createResult
}

func (f *fakeRemote) SubmitMetrics(_ context.Context, email string, entry model.MetricEntry) remote.MessageResult {
	f.record("submit")
	if f.submitEntered != nil {
		close(f.submitEntered)
	}
	if f.submitGate != nil {
		<-f.submitGate
	}
	if f.submitResult.OK() {
		f.mu.Lock()
		entry.Owner = email
		f.stored = append(f.stored, entry)
		f.mu.Unlock()
	}
	return f.submitResult
}

func (f *fakeRemote) FetchHistory(_ context.Context, email string) remote.HistoryResult {
	f.record("fetch")
	res := f.fetchResult()
	if !res.OK() {
		return res
	}
	own := []model.MetricEntry{}
	for _, e := range res.Value {
		if e.Owner == "" || e.Owner == email {
			own = append(own, e)
		}
	}
	res.Value = own
	return res
}

func (f *fakeRemote) DeleteHistory(_ context.Context, email string) remote.DeleteResult {
	f.record("delete")
	if f.deleteEntered != nil {
		close(f.deleteEntered)
	}
	if f.deleteGate != nil {
		<-f.deleteGate
	}
	if f.deleteResult.OK() {
		f.mu.Lock()
		f.stored = nil
		f.mu.Unlock()
	}
	return f.deleteResult
}

func (f *fakeRemote) RequestScore(_ context.Context, email string) remote.ScoreResult {
	f.record("score")
	if f.scoreEntered != nil {
		close(f.scoreEntered)
	}
	if f.scoreGate != nil {
		<-f.scoreGate
	}
	return f.scoreResult
}

func failed[T any](kind remote.Kind, msg string) remote.Result[T] {
	return remote.Result[T]{Kind: kind, Message: msg, Err: fmt.Errorf("fake %s failure", kind)}
}

// fakeTimer captures scheduled callbacks so tests can fire them.
type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) Fire() {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	fn()
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// transitionLog is a publisher that records synchronously.
type transitionLog struct {
	mu  sync.Mutex
	got []model.Transition
}

func (l *transitionLog) Enqueue(_ context.Context, t model.Transition) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, t)
	return true
}

func (l *transitionLog) On(axis model.Axis) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, t := range l.got {
		if t.Axis != axis {
			continue
		}
		if axis == model.AxisMessage {
			out = append(out, t.Message)
		} else {
			out = append(out, t.To)
		}
	}
	return out
}
