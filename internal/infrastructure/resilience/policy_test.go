package resilience

import (
	"testing"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/config"
)

func TestFromSettingsConvertsUnits(t *testing.T) {
	got := FromSettings(config.Config{
		RetryMaxAttempts:        4,
		RetryInitialBackoffMS:   50,
		RetryMaxBackoffMS:       800,
		BreakerEnabled:          true,
		BreakerMinRequests:      7,
		BreakerFailureRatio:     0.3,
		BreakerOpenTimeoutSec:   12,
		BreakerHalfOpenMaxCalls: -1,
	})
	if got.RetryMaxAttempts != 4 || got.RetryInitialBackoff != 50*time.Millisecond || got.RetryMaxBackoff != 800*time.Millisecond {
		t.Fatalf("unexpected retry settings: %+v", got)
	}
	if got.RetryMultiplier != backoffMultiplier {
		t.Fatalf("unexpected multiplier: %v", got.RetryMultiplier)
	}
	if !got.BreakerEnabled || got.BreakerMinRequests != 7 || got.BreakerOpenTimeout != 12*time.Second {
		t.Fatalf("unexpected breaker settings: %+v", got)
	}
	if got.BreakerHalfOpenMaxCalls != 0 {
		t.Fatalf("negative half-open calls must clamp to 0, got %d", got.BreakerHalfOpenMaxCalls)
	}
	if n := got.normalize().BreakerHalfOpenMaxCalls; n != config.DefaultBreakerHalfOpenMaxCalls {
		t.Fatalf("clamped half-open calls must fall back to the default, got %d", n)
	}
}

func TestDefaultConfigMatchesLoadedDefaults(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE",
		"RETRY_MAX_ATTEMPTS",
		"RETRY_INITIAL_BACKOFF_MS",
		"RETRY_MAX_BACKOFF_MS",
		"BREAKER_ENABLED",
		"BREAKER_MIN_REQUESTS",
		"BREAKER_FAILURE_RATIO",
		"BREAKER_OPEN_TIMEOUT_SECONDS",
		"BREAKER_HALF_OPEN_MAX_CALLS",
	} {
		t.Setenv(key, "")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := FromSettings(cfg), DefaultConfig(); got != want {
		t.Fatalf("loaded policy %+v differs from default %+v", got, want)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	got := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	def := DefaultConfig()
	if got.RetryMaxAttempts != def.RetryMaxAttempts || got.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("zero values not defaulted: %+v", got)
	}
	if got.RetryMaxBackoff != time.Second {
		t.Fatalf("max backoff must not undercut initial backoff, got %v", got.RetryMaxBackoff)
	}
	if got.BreakerOpenTimeout != 30*time.Second || got.RetryMultiplier != backoffMultiplier {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}
