package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and a one-line startup summary
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("MarketPulse", GetVersion())

	cache := config.Cache.Backend
	if cache == "" {
		cache = "none"
	}

	logger.Info().
		Str("version", GetFullVersion()).
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("cache", cache).
		Bool("auto_blog", config.Scheduler.Enabled).
		Msg("MarketPulse starting")
}
