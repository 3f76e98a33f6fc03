package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// maxStreamLength caps the notification stream; consumers are expected to
// keep up well within it.
const maxStreamLength = 100000

// RedisStreamNotifier hands due notifications to the delivery service by
// appending them to a Redis stream.
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
	logger logger.Interface
}

func NewRedisStreamNotifier(client *redis.Client, logger logger.Interface) *RedisStreamNotifier {
	return &RedisStreamNotifier{
		client: client,
		stream: constants.RedisStreamNotifications,
		logger: logger,
	}
}

func (n *RedisStreamNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: maxStreamLength,
		Approx: true,
		Values: map[string]interface{}{
			"type":            string(msg.Type),
			"subscription_id": msg.SubscriptionID,
			"scheduled_for":   biztime.FormatMySQL(msg.ScheduledFor),
			"task_id":         msg.TaskID,
		},
	}).Result()
	if err != nil {
		n.logger.Errorw("failed to enqueue notification",
			"type", msg.Type,
			"subscription_id", msg.SubscriptionID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	n.logger.Infow("notification enqueued",
		"type", msg.Type,
		"subscription_id", msg.SubscriptionID,
		"stream_id", id,
	)
	return nil
}
