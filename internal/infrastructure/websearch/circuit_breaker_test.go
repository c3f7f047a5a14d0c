package websearch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trippedBreaker(t *testing.T, cfg CircuitBreakerConfig) *CircuitBreaker {
	t.Helper()
	cb := NewCircuitBreaker("brave", cfg)
	for i := 0; i < cfg.FailureThreshold; i++ {
		_ = cb.Execute(func() error { return errors.New("upstream down") })
	}
	require.Equal(t, StateOpen, cb.State())
	return cb
}

func TestCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 3
	cb := trippedBreaker(t, cfg)

	err := cb.Execute(func() error { return nil })
	assert.ErrorContains(t, err, "circuit breaker is open for brave")
}

func TestCircuitBreakerHalfOpensAfterTimeout(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.SuccessThreshold = 1
	cfg.Timeout = time.Millisecond
	cb := trippedBreaker(t, cfg)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Millisecond
	cb := trippedBreaker(t, cfg)

	time.Sleep(5 * time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerDisabledNeverOpens(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.Enabled = false
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker("brave", cfg)

	_ = cb.Execute(func() error { return errors.New("down") })
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}
