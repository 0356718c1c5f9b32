package observability

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ReadinessFunc adapts a function to the shared ReadinessChecker interface.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// AllReady reports ready only when every checker does. The first failure wins.
func AllReady(checkers ...sharedobs.ReadinessChecker) sharedobs.ReadinessChecker {
	return ReadinessFunc(func(ctx context.Context) error {
		for _, c := range checkers {
			if err := c.CheckReadiness(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
