package venue

import (
	"fmt"
	"strings"

	"reconciler/internal/config"
	"reconciler/pkg/ratelimit"
	"reconciler/pkg/retry"
)

// NewVenue создает клиент площадки по конфигурации
func NewVenue(cfg config.VenueConfig) (Venue, error) {
	httpCfg := DefaultHTTPClientConfig().WithTimeout(cfg.Timeout)

	switch strings.ToLower(cfg.Name) {
	case "coinbase":
		return NewCoinbase(CoinbaseConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			HTTP:      httpCfg,
			Limiter:   ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
			Retry:     retry.VenueConfig(cfg.MaxRetries, cfg.RetryBackoff),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported venue: %s", cfg.Name)
	}
}
