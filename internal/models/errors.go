package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is wrapped by every ConfigurationError
var ErrNotConfigured = errors.New("not configured")

// ErrNotFound is returned when an upstream has no record for the requested item
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a missing credential or setting. It is raised before any upstream call.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured", e.Setting)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrNotConfigured
}

// NewConfigurationError creates a ConfigurationError for the named setting
func NewConfigurationError(setting string) error {
	return &ConfigurationError{Setting: setting}
}

// UpstreamError is a non-2xx or undecodable reply from a third-party API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d, endpoint: %s)", e.Service, e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError is returned when the local limiter for an upstream cannot grant a token in time.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Service, e.RetryAfter)
}
