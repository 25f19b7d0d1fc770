package remote

import (
	"net/http"
	"time"

	"github.com/okian/wellness/pkg/logger"
	"golang.org/x/time/rate"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithModelID selects the predictor addressed by RequestScore.
func WithModelID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.modelID = id
		}
	}
}

// WithRateLimit throttles outbound requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRequestIDFunc overrides X-Request-ID generation.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}
