package invoicing

import (
	"context"
	"errors"

	"github.com/invoicing/backend/internal/domain/shared"
)

// DefaultConflictRetries is used when a service is configured with a non-positive retry count
const DefaultConflictRetries = 3

// retryOnConflict runs attempt until it succeeds, fails with something other than a
// concurrency conflict, or the attempts are used up. Each attempt must reload the aggregate.
func retryOnConflict(ctx context.Context, attempts int, attempt func() error) error {
	if attempts < 1 {
		attempts = DefaultConflictRetries
	}

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = attempt()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

// publishEvents hands the pending events of each aggregate to the publisher and clears them.
// Publishing happens after the save committed; handler failures never fail the command.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, aggregates ...shared.AggregateRoot) {
	for _, aggregate := range aggregates {
		if aggregate == nil {
			continue
		}
		if publisher != nil {
			_ = publisher.Publish(ctx, aggregate.GetDomainEvents()...)
		}
		aggregate.ClearDomainEvents()
	}
}
