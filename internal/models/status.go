package models

import "time"

// Health is the liveness response
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// APIStatus reports which upstream credentials are configured
type APIStatus struct {
	DhanHQ       bool `json:"dhanhq"`
	AlphaVantage bool `json:"alpha_vantage"`
	NewsAPI      bool `json:"news_api"`
	Reddit       bool `json:"reddit"`
	OpenAI       bool `json:"openai"`
	Serp         bool `json:"serp"`
	Claude       bool `json:"claude"`
	Gemini       bool `json:"gemini"`
}
