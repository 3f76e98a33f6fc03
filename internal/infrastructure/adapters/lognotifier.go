package adapters

import (
	"context"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// LogNotifier delivers notifications to the log. It is used when no Redis
// stream is configured.
type LogNotifier struct {
	logger logger.Interface
}

func NewLogNotifier(logger logger.Interface) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	n.logger.Infow("subscription notification due",
		"type", msg.Type.String(),
		"subscription_id", msg.SubscriptionID,
		"scheduled_for", biztime.FormatMySQL(msg.ScheduledFor),
		"task_id", msg.TaskID,
	)
	return nil
}
