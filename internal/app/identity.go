package app

import (
	"context"
	"sync"

	"github.com/okian/wellness/internal/adapters/identity"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
)

// IdentityListener is told about identity changes made through the context.
type IdentityListener func(ctx context.Context, id model.Identity, present bool)

// IdentityContext owns the identity lifecycle. It is passed explicitly to
// the session and the navigation controller.
type IdentityContext struct {
	store  identity.Store
	logger logger.Logger

	mu        sync.RWMutex
	listeners []IdentityListener
	// last identity written or observed; Watch drops events that match it.
	last        model.Identity
	lastPresent bool
}

// NewIdentityContext wraps store.
func NewIdentityContext(store identity.Store, l logger.Logger) *IdentityContext {
	if l == nil {
		l = logger.Get().Named("identity")
	}
	return &IdentityContext{store: store, logger: l}
}

// Current returns the stored identity. Read errors are logged and treated
// as no identity.
func (c *IdentityContext) Current(ctx context.Context) (model.Identity, bool) {
	id, ok, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn(ctx, "failed to read identity", logger.Error(err))
		return model.Identity{}, false
	}
	return id, ok
}

// Email returns the active email or "" when none is stored.
func (c *IdentityContext) Email(ctx context.Context) string {
	id, ok := c.Current(ctx)
	if !ok {
		return ""
	}
	return id.Email
}

// Set stores id and notifies listeners.
func (c *IdentityContext) Set(ctx context.Context, id model.Identity) error {
	if err := c.store.Set(ctx, id); err != nil {
		return err
	}
	c.logger.Info(ctx, "identity stored", logger.String("email", id.Email))
	c.remember(id, true)
	c.notify(ctx, id, true)
	return nil
}

// Clear removes the stored identity and notifies listeners.
func (c *IdentityContext) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info(ctx, "identity cleared")
	c.remember(model.Identity{}, false)
	c.notify(ctx, model.Identity{}, false)
	return nil
}

// OnChange registers fn for changes made through Set and Clear.
func (c *IdentityContext) OnChange(fn IdentityListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Watch reports changes made by other processes when the store supports
// it. It blocks until ctx is done and returns nil immediately otherwise.
// Events matching the last identity written through c are ignored.
func (c *IdentityContext) Watch(ctx context.Context) error {
	w, ok := c.store.(identity.Watcher)
	if !ok {
		return nil
	}
	id, present := c.Current(ctx)
	c.remember(id, present)
	return w.Watch(ctx, func(id model.Identity, present bool) {
		if !c.remember(id, present) {
			return
		}
		c.logger.Debug(ctx, "identity changed on disk", logger.Bool("present", present))
		c.notify(ctx, id, present)
	})
}

// remember records id as the latest known identity and reports whether it
// differs from the previous one.
func (c *IdentityContext) remember(id model.Identity, present bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if present == c.lastPresent && id == c.last {
		return false
	}
	c.last, c.lastPresent = id, present
	return true
}

func (c *IdentityContext) notify(ctx context.Context, id model.Identity, present bool) {
	c.mu.RLock()
	listeners := append([]IdentityListener(nil), c.listeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, id, present)
	}
}
