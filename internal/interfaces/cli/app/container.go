// Package app wires infrastructure, repositories and use cases for the CLI
// commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	notificationServices "github.com/orris-inc/subsync/internal/application/notification/services"
	notificationUsecases "github.com/orris-inc/subsync/internal/application/notification/usecases"
	subscriptionServices "github.com/orris-inc/subsync/internal/application/subscription/services"
	subscriptionUsecases "github.com/orris-inc/subsync/internal/application/subscription/usecases"
	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/infrastructure/adapters"
	"github.com/orris-inc/subsync/internal/infrastructure/cache"
	"github.com/orris-inc/subsync/internal/infrastructure/config"
	"github.com/orris-inc/subsync/internal/infrastructure/database"
	"github.com/orris-inc/subsync/internal/infrastructure/payment"
	"github.com/orris-inc/subsync/internal/infrastructure/pubsub"
	"github.com/orris-inc/subsync/internal/infrastructure/repository"
	"github.com/orris-inc/subsync/internal/infrastructure/taskqueue"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// Env is the base every command needs: configuration, logging and the
// database connection.
type Env struct {
	Config *config.Config
	Logger logger.Interface
	DB     *gorm.DB
}

// LoadEnv loads configuration, initializes the logger and business timezone
// and opens the database.
func LoadEnv(configPath string) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode == "debug"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Env{
		Config: cfg,
		Logger: log,
		DB:     database.Get(),
	}, nil
}

// Close releases the database connection.
func (e *Env) Close() error {
	return database.Close()
}

// Container holds the wired components of one process.
type Container struct {
	Env        *Env
	Clock      biztime.Clock
	Dispatcher *events.SyncEventDispatcher
	TxManager  *db.TransactionManager

	// Redis is nil when redis is disabled; PolicyCache and EventBus follow it.
	Redis       *redis.Client
	PolicyCache *cache.PolicyCache
	EventBus    *pubsub.RedisEventBus

	Subscriptions *repository.SubscriptionRepositoryImpl
	Orders        *repository.SubscriptionOrderRepository
	Roles         *repository.CustomerRoleRepository
	Tasks         *taskqueue.GormTaskScheduler
	Policies      *notificationServices.PolicyService
	Notifier      notification.Notifier

	Synchronizer *notificationServices.NotificationSynchronizer
	Reconciler   *notificationUsecases.ReconciliationBatchProcessor
	Dispatch     *notificationUsecases.DispatchDueNotificationsUseCase
	UpdatePolicy *notificationUsecases.UpdatePolicyUseCase
	GetPolicy    *notificationUsecases.GetPolicyUseCase

	CreateSubscription *subscriptionUsecases.CreateSubscriptionUseCase
	GetSubscription    *subscriptionUsecases.GetSubscriptionUseCase
	UpdateStatus       *subscriptionUsecases.UpdateStatusUseCase
	Switch             *subscriptionUsecases.SwitchSubscriptionUseCase
	UpdateDates        *subscriptionUsecases.UpdateDatesUseCase
	DeleteDate         *subscriptionUsecases.DeleteDateUseCase
	CalculateDate      *subscriptionUsecases.CalculateDateUseCase
	RecordOrder        *subscriptionUsecases.RecordOrderUseCase
}

// NewContainer wires every component on top of env.
func NewContainer(ctx context.Context, env *Env) (*Container, error) {
	cfg := env.Config
	log := env.Logger

	c := &Container{
		Env:        env,
		Clock:      biztime.SystemClock{},
		Dispatcher: events.NewSyncEventDispatcher(),
		TxManager:  db.NewTransactionManager(env.DB),
	}

	if cfg.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			_ = c.Redis.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Infow("redis connection established", "address", cfg.Redis.GetAddr())
	}

	defaults, err := defaultPolicy(cfg)
	if err != nil {
		return nil, err
	}

	c.Subscriptions = repository.NewSubscriptionRepository(env.DB, log)
	c.Orders = repository.NewSubscriptionOrderRepository(env.DB, log)
	c.Roles = repository.NewCustomerRoleRepository(env.DB, log)
	c.Tasks = taskqueue.NewGormTaskScheduler(env.DB, log)

	var policyRepo notification.PolicyRepository = repository.NewNotificationPolicyRepository(
		repository.NewSystemSettingRepository(env.DB, log),
		c.TxManager,
		log,
	)
	if c.Redis != nil {
		c.PolicyCache = cache.NewPolicyCache(policyRepo, c.Redis, cfg.Notification.CacheTTL(), log)
		policyRepo = c.PolicyCache
		c.EventBus = pubsub.NewRedisEventBus(c.Redis, log)
		c.Notifier = pubsub.NewRedisStreamNotifier(c.Redis, log)
	} else {
		c.Notifier = adapters.NewLogNotifier(log)
	}
	c.Policies = notificationServices.NewPolicyService(policyRepo, defaults, log)

	c.Synchronizer = notificationServices.NewNotificationSynchronizer(c.Tasks, c.Policies, c.Clock, log)
	c.Reconciler = notificationUsecases.NewReconciliationBatchProcessor(
		c.Subscriptions,
		c.Tasks,
		c.Policies,
		c.Synchronizer,
		cfg.Reconciliation.BatchSize,
		cfg.Reconciliation.MaxBatchesPerRun,
		log,
	)
	c.Dispatch = notificationUsecases.NewDispatchDueNotificationsUseCase(c.Tasks, c.Notifier, c.Clock, cfg.Dispatch.BatchSize, log)
	c.UpdatePolicy = notificationUsecases.NewUpdatePolicyUseCase(policyRepo, c.Policies, c.Tasks, c.Dispatcher, c.Clock, log)
	c.GetPolicy = notificationUsecases.NewGetPolicyUseCase(c.Policies, log)

	capabilities := payment.NewStaticCapabilityResolver(cfg.Payment)
	c.CreateSubscription = subscriptionUsecases.NewCreateSubscriptionUseCase(c.Subscriptions, c.Dispatcher, c.Clock, log)
	c.GetSubscription = subscriptionUsecases.NewGetSubscriptionUseCase(c.Subscriptions, log)
	c.UpdateStatus = subscriptionUsecases.NewUpdateStatusUseCase(c.Subscriptions, capabilities, c.Dispatcher, c.Clock, log)
	c.Switch = subscriptionUsecases.NewSwitchSubscriptionUseCase(c.Subscriptions, c.Dispatcher, c.Clock, log)
	c.UpdateDates = subscriptionUsecases.NewUpdateDatesUseCase(c.Subscriptions, c.Dispatcher, c.Clock, log)
	c.DeleteDate = subscriptionUsecases.NewDeleteDateUseCase(c.Subscriptions, c.Dispatcher, c.Clock, log)
	c.CalculateDate = subscriptionUsecases.NewCalculateDateUseCase(c.Subscriptions, c.Orders, c.Clock, log)
	c.RecordOrder = subscriptionUsecases.NewRecordOrderUseCase(c.Subscriptions, c.Orders, c.TxManager, c.Dispatcher, c.Clock, log)

	if err := c.registerHandlers(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) registerHandlers() error {
	log := c.Env.Logger

	if err := notificationServices.RegisterSyncHandler(c.Dispatcher, c.Subscriptions, c.Synchronizer, log); err != nil {
		return err
	}
	if err := subscriptionServices.RegisterRoleSyncHandlers(c.Dispatcher, c.Roles, log); err != nil {
		return err
	}
	if c.EventBus != nil {
		if err := c.EventBus.RegisterForwarding(c.Dispatcher,
			subscription.EventTypeSubscriptionCreated,
			subscription.EventTypeStatusChanged,
			subscription.EventTypeDateChanged,
			subscription.EventTypeScheduleChanged,
			notification.EventTypePolicyChanged,
		); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the redis client. The database belongs to Env.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Env.Logger.Warnw("failed to close redis client", "error", err)
		}
	}
}

func defaultPolicy(cfg *config.Config) (notification.Policy, error) {
	offset, err := nvo.NewOffset(cfg.Notification.OffsetAmount, cfg.Notification.OffsetUnit)
	if err != nil {
		return notification.Policy{}, fmt.Errorf("invalid notification defaults: %w", err)
	}
	policy, err := notification.NewPolicy(
		cfg.Notification.Enabled,
		offset,
		nvo.ManualRenewalMode(cfg.Notification.ManualRenewalMode),
		// A zero change time leaves only never-synced subscriptions pending.
		time.Time{},
	)
	if err != nil {
		return notification.Policy{}, fmt.Errorf("invalid notification defaults: %w", err)
	}
	return policy, nil
}

// WithContainer loads the environment, wires a container, runs fn and
// releases everything afterwards.
func WithContainer(ctx context.Context, configPath string, fn func(c *Container) error) error {
	env, err := LoadEnv(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := NewContainer(ctx, env)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}
