// Package app wires the wellness client: identity, remote client, metrics
// session, navigation and the transition dispatcher.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/wellness/internal/adapters/identity"
	eventqueue "github.com/okian/wellness/internal/adapters/mq/queue"
	"github.com/okian/wellness/internal/adapters/mq/worker"
	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/config"
	"github.com/okian/wellness/internal/domain/inflight"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
)

const dispatcherShutdownTimeout = 5 * time.Second

// Client is everything the app needs from the remote service.
type Client interface {
	Remote
	Registrar
}

// App owns the client-side components and their lifecycle.
type App struct {
	mu sync.Mutex

	cfg        *config.Config
	logger     logger.Logger
	client     Client
	httpClient *http.Client
	store      identity.Store
	ownsStore  bool
	afterFunc  AfterFunc

	identity   *IdentityContext
	queue      *eventqueue.InMemoryQueue
	dispatcher *worker.Dispatcher
	session    *MetricsSession
	nav        *NavigationController

	started bool
	cancel  context.CancelFunc
}

// Option applies a configuration option to the App.
type Option func(*App)

// WithLogger sets a custom logger for the app and its components.
func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClient replaces the remote client, typically with a fake in tests.
func WithClient(c Client) Option {
	return func(a *App) {
		if c != nil {
			a.client = c
		}
	}
}

// WithHTTPClient sets the HTTP client used by the default remote client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		if hc != nil {
			a.httpClient = hc
		}
	}
}

// WithIdentityStore uses s instead of opening the configured backend. The
// caller keeps ownership of s.
func WithIdentityStore(s identity.Store) Option {
	return func(a *App) {
		if s != nil {
			a.store = s
		}
	}
}

// WithNavigationScheduler replaces the automatic navigation scheduler.
func WithNavigationScheduler(fn AfterFunc) Option {
	return func(a *App) {
		if fn != nil {
			a.afterFunc = fn
		}
	}
}

// New builds an App from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get()
	}

	if a.client == nil {
		c, err := remote.New(cfg.BaseURL,
			remote.WithHTTPClient(a.httpClient),
			remote.WithTimeout(cfg.RequestTimeout()),
			remote.WithModelID(cfg.ModelID),
			remote.WithRateLimit(cfg.RateLimitRPS, 1),
			remote.WithLogger(a.logger.Named("remote")),
		)
		if err != nil {
			return nil, fmt.Errorf("create remote client: %w", err)
		}
		a.client = c
	}

	if a.store == nil {
		s, err := identity.Open(cfg.IdentityBackend, cfg.IdentityPath)
		if err != nil {
			return nil, fmt.Errorf("open identity store: %w", err)
		}
		a.store = s
		a.ownsStore = true
	}

	a.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.NotifyQueueSize))
	a.dispatcher = worker.NewDispatcher(a.queue, worker.WithLogger(a.logger.Named("dispatcher")))
	a.identity = NewIdentityContext(a.store, a.logger.Named("identity"))
	a.session = NewMetricsSession(a.identity, a.client,
		WithSessionPublisher(a.queue),
		WithSessionGuard(inflight.NewGuard()),
		WithSessionLogger(a.logger.Named("session")),
	)
	a.nav = NewNavigationController(a.identity, a.client,
		WithNavigationPublisher(a.queue),
		WithNavigationLogger(a.logger.Named("navigation")),
		WithAfterFunc(a.afterFunc),
	)
	a.identity.OnChange(func(ctx context.Context, _ model.Identity, _ bool) {
		a.session.OnIdentityChanged(ctx)
	})

	return a, nil
}

// Start runs the transition dispatcher.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go a.dispatcher.Run(runCtx)

	a.started = true
	a.logger.Info(ctx, "wellness client started",
		logger.String("base_url", a.cfg.BaseURL),
		logger.String("identity_backend", a.cfg.IdentityBackend),
		logger.Int("notify_queue_size", a.cfg.NotifyQueueSize),
	)
	return nil
}

// Stop cancels pending navigation, drains the dispatcher and closes the
// identity store when the app opened it.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx := context.Background()
	a.nav.Close()

	if a.started {
		_ = a.queue.Close()
		shutdownCtx, cancel := context.WithTimeout(ctx, dispatcherShutdownTimeout)
		select {
		case <-a.dispatcher.Done():
		case <-shutdownCtx.Done():
			a.logger.Warn(ctx, "dispatcher did not drain in time")
		}
		cancel()
		_ = a.dispatcher.Shutdown(ctx)
		a.cancel()
		a.started = false
	}

	if a.ownsStore {
		if err := identity.Close(a.store); err != nil {
			a.logger.Warn(ctx, "failed to close identity store", logger.Error(err))
		}
		a.ownsStore = false
	}
	a.logger.Info(ctx, "wellness client stopped")
}

// Subscribe registers a listener for state transitions. Listeners are
// called in publish order on the dispatcher goroutine.
func (a *App) Subscribe(l worker.Listener) (unsubscribe func()) {
	return a.dispatcher.Subscribe(l)
}

// WatchIdentity follows identity changes made by other processes until ctx
// is done.
func (a *App) WatchIdentity(ctx context.Context) error {
	return a.identity.Watch(ctx)
}

// Ready reports ErrNotStarted until Start has run.
func (a *App) Ready() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return ErrNotStarted
	}
	return nil
}

func (a *App) Config() *config.Config            { return a.cfg }
func (a *App) Identity() *IdentityContext        { return a.identity }
func (a *App) Session() *MetricsSession          { return a.session }
func (a *App) Navigation() *NavigationController { return a.nav }
func (a *App) Client() Client                    { return a.client }

// PendingTransitions returns the number of undelivered transitions.
func (a *App) PendingTransitions() int { return a.queue.Len() }
