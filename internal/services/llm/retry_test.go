package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("POST /chat/completions: 429 Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("Rate limit reached for requests")))
	assert.True(t, IsRateLimitError(errors.New("googleapi: Error code: 429")))
	assert.False(t, IsRateLimitError(errors.New("401 Unauthorized")))
	assert.False(t, IsRateLimitError(errors.New("prompt has 14290 tokens, limit exceeded for model context")))
	assert.False(t, IsRateLimitError(errors.New("request req_4291 failed: 500 Internal Server Error")))
	assert.False(t, IsRateLimitError(errors.New("invalid argument: max_tokens 429 is below minimum")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 45500*time.Millisecond, ExtractRetryDelay(err))

	err = errors.New("Rate limit reached. Please try again in 20s.")
	assert.Equal(t, 20*time.Second, ExtractRetryDelay(err))

	assert.Zero(t, ExtractRetryDelay(errors.New("no hint")))
	assert.Zero(t, ExtractRetryDelay(nil))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	assert.Equal(t, 5*time.Second, c.CalculateBackoff(0, 0))
	assert.Equal(t, 10*time.Second, c.CalculateBackoff(1, 0))
	assert.Equal(t, 20*time.Second, c.CalculateBackoff(2, 0))
	assert.Equal(t, 21*time.Second, c.CalculateBackoff(0, 20*time.Second))
	assert.Equal(t, c.MaxBackoff, c.CalculateBackoff(10, 0))
}
