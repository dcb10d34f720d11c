package llm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/cache"
	"github.com/ppiankov/papersift/internal/worker"
)

// Client wraps a Provider with request pacing and a response cache
type Client struct {
	provider Provider
	endpoint string
	model    string
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	log      logrus.FieldLogger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithCache enables response caching
func WithCache(c cache.Cache, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithLimiter paces calls to the backend host
func WithLimiter(l *worker.Limiter) ClientOption {
	return func(cl *Client) {
		cl.limiter = l
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(cl *Client) {
		cl.log = l
	}
}

// NewClient creates a client for provider. cfg supplies the endpoint and default model.
func NewClient(provider Provider, cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		endpoint: cfg.Endpoint(),
		model:    cfg.Model,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the wrapped provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Model returns the default model name
func (c *Client) Model() string {
	return c.model
}

// Complete returns the model's text for req. A cached response is reused only
// if accept approves it, otherwise it is evicted. A fresh response is cached
// only if accept approves it.
// A nil accept approves everything.
func (c *Client) Complete(ctx context.Context, req GenerateRequest, accept func(string) bool) (string, error) {
	if accept == nil {
		accept = func(string) bool { return true }
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	key := cache.PromptKey(c.provider.Name(), model, req.System, req.Prompt, strconv.FormatBool(req.JSON))

	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			if accept(string(data)) {
				c.log.WithField("provider", c.provider.Name()).Debug("llm cache hit")
				return string(data), nil
			}
			// Entry written under older parsing rules
			if err := c.cache.Delete(key); err != nil {
				c.log.WithError(err).Warn("failed to evict rejected llm response")
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{
		"provider": c.provider.Name(),
		"model":    resp.Model,
		"tokens":   resp.TokensUsed,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("llm call complete")

	if c.cache != nil && accept(resp.Text) {
		if err := c.cache.Set(key, []byte(resp.Text), c.cacheTTL); err != nil {
			c.log.WithError(err).Warn("failed to cache llm response")
		}
	}

	return resp.Text, nil
}
