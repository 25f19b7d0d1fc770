// Command wellness-stub serves an in-memory implementation of the wellness
// HTTP API for local development and end-to-end tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/wellness/internal/adapters/http/api"
	"github.com/okian/wellness/internal/adapters/http/swagger"
	"github.com/okian/wellness/internal/adapters/repository"
	"github.com/okian/wellness/internal/config"
	"github.com/okian/wellness/internal/domain/scoring"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	metrics.Configure(metrics.WithComponent(metrics.ComponentStub))

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ln, err := net.Listen("tcp", cfg.StubAddr)
	if err != nil {
		log.Error(ctx, "listen failed", logger.String("addr", cfg.StubAddr), logger.Error(err))
		os.Exit(1)
	}
	if err := serve(ctx, ln, newHandler(ctx, cfg, log), log); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// newHandler builds the mux with the API and its OpenAPI document.
func newHandler(ctx context.Context, cfg *config.Config, log logger.Logger) http.Handler {
	store := repository.NewMemoryStore()
	predictor := scoring.NewInMemoryPredictor(scoring.WithModels(cfg.ModelID))

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(api.NewDependencies(store, predictor), api.WithLogger(log.Named("api"))).Register(ctx, mux)
	return mux
}

// serve runs an HTTP server on ln until ctx is done, then shuts it down
// gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(ctx, "server stopped")
	return nil
}
