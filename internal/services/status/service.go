package status

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
)

// Service reports liveness and credential status
type Service struct {
	config    *common.Config
	kvStorage interfaces.KeyValueReader
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a status service. kvStorage may be nil.
func NewService(config *common.Config, kvStorage interfaces.KeyValueReader, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
		now:       time.Now,
	}
}

// Health returns the liveness payload
func (s *Service) Health() models.Health {
	return models.Health{
		Status:    "healthy",
		Timestamp: s.now(),
		Version:   common.GetVersion(),
	}
}

// APIStatus resolves every upstream credential the same way the clients do (env, KV store, config).
// Reddit needs no key and is always reported as available.
func (s *Service) APIStatus(ctx context.Context) models.APIStatus {
	return models.APIStatus{
		DhanHQ:       s.configured(ctx, "dhan_access_token", s.config.Dhan.AccessToken),
		AlphaVantage: s.configured(ctx, "alpha_vantage_api_key", s.config.AlphaVantage.APIKey),
		NewsAPI:      s.configured(ctx, "news_api_key", s.config.NewsAPI.APIKey),
		Reddit:       true,
		OpenAI:       s.configured(ctx, "openai_api_key", s.config.OpenAI.APIKey),
		Serp:         s.configured(ctx, "serp_api_key", s.config.Serp.APIKey),
		Claude:       s.configured(ctx, "anthropic_api_key", s.config.Claude.APIKey),
		Gemini:       s.configured(ctx, "gemini_api_key", s.config.Gemini.APIKey),
	}
}

func (s *Service) configured(ctx context.Context, name, fallback string) bool {
	_, err := common.ResolveAPIKey(ctx, s.kvStorage, name, fallback)
	return err == nil
}
