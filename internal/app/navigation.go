package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
)

// AutoNavigateDelay is how long the registration confirmation stays on
// screen before switching to metrics.
const AutoNavigateDelay = 1500 * time.Millisecond

// Navigation triggers used in logs and metrics.
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Registrar creates identities on the remote service.
type Registrar interface {
	CreateIdentity(ctx context.Context, name, email string) remote.MessageResult
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NavigationController selects between the registration and metrics screens.
type NavigationController struct {
	identity  *IdentityContext
	remote    Registrar
	publisher Publisher
	logger    logger.Logger
	afterFunc AfterFunc
	now       func() time.Time

	mu      sync.Mutex
	screen  model.Screen
	message string
	pending Timer
	gen     uint64
}

// NavigationOption configures a NavigationController.
type NavigationOption func(*NavigationController)

// WithNavigationPublisher sets where screen transitions are published.
func WithNavigationPublisher(p Publisher) NavigationOption {
	return func(n *NavigationController) {
		if p != nil {
			n.publisher = p
		}
	}
}

// WithNavigationLogger sets a custom logger.
func WithNavigationLogger(l logger.Logger) NavigationOption {
	return func(n *NavigationController) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithAfterFunc replaces the scheduler used for the automatic transition.
// Tests use it to fire the transition without waiting.
func WithAfterFunc(fn AfterFunc) NavigationOption {
	return func(n *NavigationController) {
		if fn != nil {
			n.afterFunc = fn
		}
	}
}

// NewNavigationController starts on the registration screen, even when an
// identity is already stored.
func NewNavigationController(id *IdentityContext, r Registrar, opts ...NavigationOption) *NavigationController {
	n := &NavigationController{
		identity:  id,
		remote:    r,
		afterFunc: realAfterFunc,
		now:       time.Now,
		screen:    model.ScreenRegistration,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("navigation")
	}
	return n
}

// Screen returns the current screen.
func (n *NavigationController) Screen() model.Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.screen
}

// Message returns the last registration message.
func (n *NavigationController) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message
}

// Pending reports whether an automatic transition is scheduled.
func (n *NavigationController) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending != nil
}

// Navigate switches screens immediately and cancels any pending automatic
// transition.
func (n *NavigationController) Navigate(ctx context.Context, to model.Screen) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelPendingLocked()
	n.setScreenLocked(ctx, to, TriggerManual)
}

// Register creates the identity remotely and, on success, stores it and
// schedules the switch to the metrics screen. On failure only the message
// changes. The returned error is non-nil only when storing the identity
// failed.
func (n *NavigationController) Register(ctx context.Context, name, email string) (remote.MessageResult, error) {
	res := n.remote.CreateIdentity(ctx, name, email)
	if !res.OK() {
		n.mu.Lock()
		n.setMessageLocked(ctx, res.Message)
		n.mu.Unlock()
		return res, nil
	}

	id, err := model.NewIdentity(name, email)
	if err != nil {
		return res, err
	}
	if err := n.identity.Set(ctx, id); err != nil {
		n.logger.Error(ctx, "failed to store identity", logger.Error(err))
		return res, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.setMessageLocked(ctx, res.Message)
	n.cancelPendingLocked()
	n.gen++
	gen := n.gen
	base := context.WithoutCancel(ctx)
	n.pending = n.afterFunc(AutoNavigateDelay, func() {
		n.fire(base, gen)
	})
	return res, nil
}

// Close cancels any pending automatic transition.
func (n *NavigationController) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelPendingLocked()
}

func (n *NavigationController) fire(ctx context.Context, gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen || n.pending == nil {
		return
	}
	n.pending = nil
	n.setScreenLocked(ctx, model.ScreenMetrics, TriggerAuto)
}

func (n *NavigationController) cancelPendingLocked() {
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
	n.gen++
}

func (n *NavigationController) setScreenLocked(ctx context.Context, to model.Screen, trigger string) {
	from := n.screen
	n.screen = to
	metrics.RecordNavigation(string(to), trigger)
	n.logger.Debug(ctx, "navigated",
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.String("trigger", trigger),
	)
	if from == to {
		return
	}
	metrics.RecordTransition(string(model.AxisScreen), string(to))
	n.publish(ctx, model.Transition{Axis: model.AxisScreen, From: string(from), To: string(to)})
}

func (n *NavigationController) setMessageLocked(ctx context.Context, msg string) {
	n.message = msg
	n.publish(ctx, model.Transition{Axis: model.AxisMessage, Message: msg})
}

func (n *NavigationController) publish(ctx context.Context, t model.Transition) { //nolint:gocritic // hugeParam
	if n.publisher == nil {
		return
	}
	t.At = n.now()
	n.publisher.Enqueue(context.WithoutCancel(ctx), t)
}
