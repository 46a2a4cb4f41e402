package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

const (
	// DefaultPollAttempts bounds how often a readiness condition is re-checked.
	DefaultPollAttempts = 10
	// DefaultPollInterval is the fixed wait between readiness checks.
	DefaultPollInterval = 2 * time.Second

	pollExhaustedErrorTemplateConstant = "condition not met after %d attempts: %w"
)

// WaitUntil re-runs the check at a fixed interval until it succeeds, the
// attempt budget is exhausted, or the context is cancelled. Exhaustion is
// surfaced as a timeout-style failure wrapping the last observed error.
func WaitUntil(executionContext context.Context, attempts int, interval time.Duration, check func(context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	callError := retry.Call(retry.CallArgs{
		Func: func() error {
			return check(executionContext)
		},
		Attempts: attempts,
		Delay:    interval,
		Clock:    clock.WallClock,
		Stop:     executionContext.Done(),
	})
	if callError == nil {
		return nil
	}
	if retry.IsAttemptsExceeded(callError) {
		return fmt.Errorf(pollExhaustedErrorTemplateConstant, attempts, retry.LastError(callError))
	}
	return callError
}
