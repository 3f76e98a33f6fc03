package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Database table names
	TableSubscriptions      = "subscriptions"
	TableSubscriptionOrders = "subscription_orders"
	TableScheduledTasks     = "scheduled_tasks"
	TableSystemSettings     = "system_settings"
	TableCustomerRoles      = "customer_roles"

	// Setting categories
	SettingCategoryNotification = "notification"

	// Redis keys and channels
	RedisKeyNotificationPolicy = "subsync:notification:policy"
	RedisChannelEvents         = "subsync:events"
	RedisStreamNotifications   = "subsync:notifications"

	// ID prefixes
	PrefixSubscription = "sub"
)
