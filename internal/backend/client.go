package backend

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"question-extract/internal/config"
	"question-extract/internal/models"
)

// Client wraps a Backend with the retry policy: transient failures (timeout,
// rate limiting, unknown transport noise) are retried with exponential
// backoff up to MaxRetries; permanent failures return immediately. Execute
// never returns an error past this boundary, only a classified result.
type Client struct {
	backend    Backend
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter

	attempts atomic.Int64
	failures atomic.Int64
}

// Extra grace added on top of the backoff when the backend rate-limits us.
const rateLimitGrace = 5 * time.Second

func NewClient(b Backend, cfg config.BackendConfig) *Client {
	c := &Client{
		backend:    b,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds * float64(time.Second)),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	return c
}

// Attempts returns the total number of backend calls issued.
func (c *Client) Attempts() int64 { return c.attempts.Load() }

// Failures returns the number of chunks that ended in a failure result.
func (c *Client) Failures() int64 { return c.failures.Load() }

// Execute runs one completion request to a terminal CompletionResult.
func (c *Client) Execute(ctx context.Context, req models.CompletionRequest) models.CompletionResult {
	var lastErr *Error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			c.failures.Add(1)
			return models.CompletionResult{Chunk: req.Chunk, Failure: models.Cancelled, Detail: err.Error()}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				c.failures.Add(1)
				return models.CompletionResult{Chunk: req.Chunk, Failure: models.Cancelled, Detail: err.Error()}
			}
		}

		c.attempts.Add(1)
		text, err := c.backend.Complete(ctx, req)
		if err == nil {
			return models.CompletionResult{Chunk: req.Chunk, RawText: text}
		}
		if ctx.Err() != nil {
			c.failures.Add(1)
			return models.CompletionResult{Chunk: req.Chunk, Failure: models.Cancelled, Detail: ctx.Err().Error()}
		}

		lastErr = Classify(err)
		if !lastErr.Retryable() {
			log.Warn().
				Str("chunk", req.Chunk.Ref()).
				Str("kind", string(lastErr.Kind)).
				Msg("backend rejected request, not retrying")
			c.failures.Add(1)
			return models.CompletionResult{
				Chunk:   req.Chunk,
				Failure: models.BackendRejected,
				Detail:  string(lastErr.Kind) + ": " + lastErr.Message,
			}
		}

		if attempt < c.maxRetries {
			delay := c.backoff(attempt, lastErr.Kind)
			log.Warn().
				Str("chunk", req.Chunk.Ref()).
				Str("kind", string(lastErr.Kind)).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("transient backend error, retrying")
			if !sleepCtx(ctx, delay) {
				c.failures.Add(1)
				return models.CompletionResult{Chunk: req.Chunk, Failure: models.Cancelled, Detail: ctx.Err().Error()}
			}
		}
	}

	c.failures.Add(1)
	detail := "retries exhausted"
	if lastErr != nil {
		detail = string(lastErr.Kind) + ": " + lastErr.Message
	}
	log.Error().Str("chunk", req.Chunk.Ref()).Str("detail", detail).Msg("backend unavailable")
	return models.CompletionResult{Chunk: req.Chunk, Failure: models.BackendUnavailable, Detail: detail}
}

func (c *Client) backoff(attempt int, kind ErrorKind) time.Duration {
	delay := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
	if kind == KindRateLimited {
		delay += rateLimitGrace
	}
	return delay
}

// sleepCtx waits for d, returning false if the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
