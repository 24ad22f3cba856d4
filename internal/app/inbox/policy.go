package inbox

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// CallPolicy bounds a single store call: a per-attempt timeout and how many
// attempts transient failures get.
type CallPolicy struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Policies separates reads from writes; reads retry more liberally.
type Policies struct {
	Read  CallPolicy
	Write CallPolicy
}

func DefaultPolicies() Policies {
	return Policies{
		Read:  CallPolicy{Timeout: 5 * time.Second, MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond},
		Write: CallPolicy{Timeout: 5 * time.Second, MaxAttempts: 2, InitialBackoff: 200 * time.Millisecond},
	}
}

// call runs op under p. Only domain.StoreError failures are retried.
func call(ctx context.Context, p CallPolicy, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		exp.InitialInterval = p.InitialBackoff
	}
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := op(attemptCtx)
		if err != nil && !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
