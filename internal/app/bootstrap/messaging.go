package bootstrap

import (
	"github.com/wolfman30/messenger-booking-relay/internal/channels/messenger"
	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
)

// BuildMessengerClient creates the Send API client with the shared
// outbound token bucket.
func BuildMessengerClient(cfg *appconfig.Config) *messenger.Client {
	return messenger.NewClient(cfg.PageAccessToken,
		messenger.WithGraphAPIBase(cfg.GraphAPIBase),
		messenger.WithRateLimit(cfg.SendRate, cfg.SendBurst),
	)
}
