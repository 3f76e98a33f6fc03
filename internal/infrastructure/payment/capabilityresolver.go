package payment

import (
	"context"
	"strings"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/config"
)

// StaticCapabilityResolver answers capability lookups from configuration.
// Payment methods are matched case-insensitively; unknown methods and
// subscriptions without one get the default capabilities.
type StaticCapabilityResolver struct {
	defaults subscription.PaymentCapabilities
	gateways map[string]subscription.PaymentCapabilities
}

func NewStaticCapabilityResolver(cfg config.PaymentConfig) *StaticCapabilityResolver {
	gateways := make(map[string]subscription.PaymentCapabilities, len(cfg.Gateways))
	for name, caps := range cfg.Gateways {
		gateways[strings.ToLower(name)] = toCapabilities(caps)
	}
	return &StaticCapabilityResolver{
		defaults: toCapabilities(cfg.Default),
		gateways: gateways,
	}
}

func (r *StaticCapabilityResolver) Capabilities(ctx context.Context, paymentMethod string) subscription.PaymentCapabilities {
	if caps, ok := r.gateways[strings.ToLower(paymentMethod)]; ok {
		return caps
	}
	return r.defaults
}

func toCapabilities(c config.GatewayCapabilities) subscription.PaymentCapabilities {
	return subscription.PaymentCapabilities{
		Suspension:   c.Suspension,
		Reactivation: c.Reactivation,
		Cancellation: c.Cancellation,
	}
}
