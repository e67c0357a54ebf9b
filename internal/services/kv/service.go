// Package kv manages API keys supplied at runtime through the key/value store.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
)

// ErrUnknownKey is returned for names outside KnownKeys
var ErrUnknownKey = errors.New("unknown API key name")

// KnownKeys maps every storable API key name to its description
var KnownKeys = map[string]string{
	"dhan_access_token":     "DhanHQ access token",
	"alpha_vantage_api_key": "Alpha Vantage API key",
	"news_api_key":          "NewsAPI key",
	"openai_api_key":        "OpenAI API key",
	"anthropic_api_key":     "Anthropic API key",
	"gemini_api_key":        "Google Gemini API key",
	"serp_api_key":          "SerpAPI key",
}

// KeyInfo describes a stored key without exposing its value
type KeyInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Stored      bool       `json:"stored"`
	Masked      string     `json:"masked,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Service stores and lists runtime API keys
type Service struct {
	storage interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewService creates a new key/value service
func NewService(storage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Set stores or replaces an API key
func (s *Service) Set(ctx context.Context, name string, value string) (*KeyInfo, error) {
	name, description, err := lookup(name)
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value for %s cannot be empty", name)
	}

	created, err := s.storage.Upsert(ctx, name, value, description)
	if err != nil {
		s.logger.Error().Err(err).Str("key", name).Msg("Failed to store API key")
		return nil, err
	}

	s.logger.Info().Str("key", name).Bool("created", created).Msg("Stored API key")

	pair, err := s.storage.GetPair(ctx, name)
	if err != nil {
		return nil, err
	}
	return info(name, description, pair), nil
}

// Delete removes a stored API key
func (s *Service) Delete(ctx context.Context, name string) error {
	name, _, err := lookup(name)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, name); err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Error().Err(err).Str("key", name).Msg("Failed to delete API key")
		}
		return err
	}

	s.logger.Info().Str("key", name).Msg("Deleted API key")
	return nil
}

// List reports every known key and whether it is stored, sorted by name
func (s *Service) List(ctx context.Context) ([]KeyInfo, error) {
	pairs, err := s.storage.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list API keys")
		return nil, err
	}

	stored := make(map[string]*interfaces.KeyValuePair, len(pairs))
	for i := range pairs {
		stored[pairs[i].Key] = &pairs[i]
	}

	result := make([]KeyInfo, 0, len(KnownKeys))
	for name, description := range KnownKeys {
		result = append(result, *info(name, description, stored[name]))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	s.logger.Debug().Int("stored", len(stored)).Msg("Listed API keys")
	return result, nil
}

func lookup(name string) (string, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	description, ok := KnownKeys[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return name, description, nil
}

func info(name, description string, pair *interfaces.KeyValuePair) *KeyInfo {
	ki := &KeyInfo{Name: name, Description: description}
	if pair == nil {
		return ki
	}
	updated := pair.UpdatedAt
	ki.Stored = true
	ki.Masked = Mask(pair.Value)
	ki.UpdatedAt = &updated
	return ki
}

// Mask hides all but the last four characters of a secret
func Mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
