package common

import (
	"github.com/google/uuid"
)

// NewBlogID generates a unique blog post ID with the "blog_" prefix
// Format: blog_<uuid>
func NewBlogID() string {
	return "blog_" + uuid.New().String()
}

// NewRequestID generates an ID used to correlate log lines for one HTTP request
func NewRequestID() string {
	return uuid.New().String()
}
