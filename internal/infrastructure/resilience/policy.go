package resilience

import (
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/config"
)

// Config is the retry and circuit breaker policy shared by the embedding
// client and the index request publisher.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

const backoffMultiplier = 2.0

// FromSettings converts the RETRY_* and BREAKER_* keys of the service
// configuration. Negative counts clamp to zero, which normalize then
// replaces with the default.
func FromSettings(cfg config.Config) Config {
	return Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         backoffMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.BreakerOpenTimeoutSec) * time.Second,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}

// DefaultConfig is the policy an unconfigured service runs with.
func DefaultConfig() Config {
	return FromSettings(config.Config{
		RetryMaxAttempts:        config.DefaultRetryMaxAttempts,
		RetryInitialBackoffMS:   config.DefaultRetryInitialBackoffMS,
		RetryMaxBackoffMS:       config.DefaultRetryMaxBackoffMS,
		BreakerEnabled:          true,
		BreakerMinRequests:      config.DefaultBreakerMinRequests,
		BreakerFailureRatio:     config.DefaultBreakerFailureRatio,
		BreakerOpenTimeoutSec:   config.DefaultBreakerOpenTimeoutSec,
		BreakerHalfOpenMaxCalls: config.DefaultBreakerHalfOpenMaxCalls,
	})
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
