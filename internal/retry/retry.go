// Package retry provides bounded retry with exponential backoff for
// provider calls. Every network call to a generation backend goes
// through Do so that retry budgets live in one place instead of being
// scattered across call sites.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy bounds a retry loop. Delay after attempt n is
// min(InitialDelay * Multiplier^(n-1), MaxDelay), scaled by a uniform
// random factor in [0.5, 1.0] when Jitter is set.
type Policy struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Named policies per provider class. Vision and image calls are costly,
// so they get fewer attempts and shorter delays than pure-text calls.
var (
	TextPolicy   = Policy{MaxAttempts: 5, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Multiplier: 2.0, Jitter: true}
	VisionPolicy = Policy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0, Jitter: true}
	ImagePolicy  = Policy{MaxAttempts: 3, InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second, Multiplier: 2.0, Jitter: true}
)

// Delay returns the backoff delay after the given zero-based attempt.
func (p Policy) Delay(attempt uint) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(attempt)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		d = p.MaxDelay
	}
	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + 0.5*rand.Float64()))
	}
	return d
}

// Do runs op up to policy.MaxAttempts times, sleeping the policy delay
// between retryable failures. Fatal errors (see IsRetryable) propagate
// immediately. After exhausting all attempts the last observed error is
// returned.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return retrygo.DoWithData(op,
		retrygo.Context(ctx),
		retrygo.Attempts(attempts),
		retrygo.RetryIf(IsRetryable),
		retrygo.LastErrorOnly(true),
		retrygo.DelayType(func(n uint, _ error, _ *retrygo.Config) time.Duration {
			return p.Delay(n)
		}),
	)
}

var retryablePatterns = []string{
	"429",
	"500",
	"503",
	"rate limit",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"temporarily unavailable",
	"overloaded",
}

// IsRetryable classifies an error as transient (rate limiting, 5xx,
// timeouts, resets) or fatal (malformed request, auth failure, context
// cancellation). Fatal errors must not be retried or failed over.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pat := range retryablePatterns {
		if strings.Contains(msg, pat) {
			return true
		}
	}
	return false
}
