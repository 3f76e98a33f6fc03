package usecases

import (
	"context"

	"github.com/orris-inc/subsync/internal/application/notification/services"
	"github.com/orris-inc/subsync/internal/domain/subscription"
)

// Synchronizer recomputes the notification tasks of one subscription.
type Synchronizer interface {
	Sync(ctx context.Context, sub *subscription.Subscription) (services.SyncResult, error)
}
