package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/orris-inc/subsync/internal/domain/notification"
	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

const defaultPolicyTTL = time.Minute

// cachedPolicy is the JSON form kept in redis. Stored is false when the
// store has no policy, so the miss is cached too.
type cachedPolicy struct {
	Stored            bool      `json:"stored"`
	Enabled           bool      `json:"enabled"`
	OffsetAmount      int       `json:"offset_amount"`
	OffsetUnit        string    `json:"offset_unit"`
	ManualRenewalMode string    `json:"manual_renewal_mode"`
	LastChangedAt     time.Time `json:"last_changed_at"`
}

func toCachedPolicy(p *notification.Policy) cachedPolicy {
	if p == nil {
		return cachedPolicy{}
	}
	return cachedPolicy{
		Stored:            true,
		Enabled:           p.Enabled,
		OffsetAmount:      p.Offset.Amount,
		OffsetUnit:        string(p.Offset.Unit),
		ManualRenewalMode: string(p.ManualRenewalMode),
		LastChangedAt:     p.LastChangedAt.UTC(),
	}
}

func (c cachedPolicy) policy() *notification.Policy {
	if !c.Stored {
		return nil
	}
	return &notification.Policy{
		Enabled:           c.Enabled,
		Offset:            vo.Offset{Amount: c.OffsetAmount, Unit: vo.OffsetUnit(c.OffsetUnit)},
		ManualRenewalMode: vo.ManualRenewalMode(c.ManualRenewalMode),
		LastChangedAt:     c.LastChangedAt.UTC(),
	}
}

// PolicyCache is a read-through redis cache in front of a
// notification.PolicyRepository. Redis failures fall back to the store.
type PolicyCache struct {
	next   notification.PolicyRepository
	client *redis.Client
	ttl    time.Duration
	loads  singleflight.Group
	logger logger.Interface
}

func NewPolicyCache(next notification.PolicyRepository, client *redis.Client, ttl time.Duration, logger logger.Interface) *PolicyCache {
	if ttl <= 0 {
		ttl = defaultPolicyTTL
	}
	return &PolicyCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *PolicyCache) Get(ctx context.Context) (*notification.Policy, error) {
	data, err := c.client.Get(ctx, constants.RedisKeyNotificationPolicy).Bytes()
	switch {
	case err == nil:
		var cached cachedPolicy
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.policy(), nil
		}
		c.logger.Warnw("discarding unreadable cached notification policy", "error", err)
	case !errors.Is(err, redis.Nil):
		c.logger.Warnw("failed to read notification policy from cache", "error", err)
	}

	// Concurrent misses share one store read.
	value, err, _ := c.loads.Do(constants.RedisKeyNotificationPolicy, func() (interface{}, error) {
		policy, err := c.next.Get(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, policy)
		return policy, nil
	})
	if err != nil {
		return nil, err
	}

	policy, _ := value.(*notification.Policy)
	if policy == nil {
		return nil, nil
	}
	copied := *policy
	return &copied, nil
}

// Save writes through to the store and drops the cached copy. The store
// write is authoritative: a failed invalidation is logged and the stale
// entry expires with its TTL.
func (c *PolicyCache) Save(ctx context.Context, policy notification.Policy) error {
	if err := c.next.Save(ctx, policy); err != nil {
		return err
	}
	_ = c.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached policy. Other instances call it when they
// learn about a policy change.
func (c *PolicyCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, constants.RedisKeyNotificationPolicy).Err(); err != nil {
		c.logger.Warnw("failed to invalidate cached notification policy", "error", err)
		return fmt.Errorf("failed to invalidate notification policy cache: %w", err)
	}
	c.logger.Debugw("notification policy cache invalidated")
	return nil
}

func (c *PolicyCache) store(ctx context.Context, policy *notification.Policy) {
	data, err := json.Marshal(toCachedPolicy(policy))
	if err != nil {
		c.logger.Warnw("failed to marshal notification policy for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, constants.RedisKeyNotificationPolicy, data, c.ttl).Err(); err != nil {
		c.logger.Warnw("failed to cache notification policy", "error", err)
	}
}
