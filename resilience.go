package respcache

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilienceConfig holds the resilience policies applied to network fetches.
// Policies are disabled by default and must be explicitly enabled.
type ResilienceConfig struct {
	// RetryPolicy configures retry behavior using failsafe-go. If nil,
	// retry is disabled.
	RetryPolicy retrypolicy.RetryPolicy[*http.Response]

	// CircuitBreaker configures circuit breaker behavior using failsafe-go.
	// If nil, the circuit breaker is disabled.
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
}

// RetryPolicyBuilder returns a retry policy builder preconfigured for HTTP
// fetches: retries on network errors and 5xx responses, up to 3 times, with
// exponential backoff from 100ms to 10s. Customize further before Build().
func RetryPolicyBuilder() retrypolicy.Builder[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a circuit breaker builder preconfigured for
// HTTP fetches: opens after 5 consecutive failures (network errors or 5xx),
// half-opens after 60s, closes after 2 consecutive successes.
func CircuitBreakerBuilder() circuitbreaker.Builder[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// executeWithResilience wraps a network fetch with the configured policies.
func (t *Transport) executeWithResilience(fn func() (*http.Response, error)) (*http.Response, error) {
	if t.resilience == nil {
		return fn()
	}

	var policies []failsafe.Policy[*http.Response]
	if t.resilience.RetryPolicy != nil {
		policies = append(policies, t.resilience.RetryPolicy)
	}
	if t.resilience.CircuitBreaker != nil {
		policies = append(policies, t.resilience.CircuitBreaker)
	}
	if len(policies) == 0 {
		return fn()
	}

	return failsafe.With(policies...).Get(fn)
}
