package models

import "time"

// BlogKind distinguishes stored posts
type BlogKind string

const (
	BlogKindEducation BlogKind = "education"
	BlogKindStock     BlogKind = "stock"
	BlogKindDaily     BlogKind = "daily"
)

// BlogData is the structured post the LLM is asked to return for education topics.
type BlogData struct {
	Title             string   `json:"title" validate:"required"`
	Content           string   `json:"content" validate:"required"`
	MetaDescription   string   `json:"meta_description"`
	Keywords          []string `json:"keywords"`
	EstimatedReadTime string   `json:"estimated_read_time"`
	Category          string   `json:"category"`
}

// BlogPost is a generated post as persisted in the blog store.
type BlogPost struct {
	ID                string    `json:"id" badgerhold:"key"`
	Kind              BlogKind  `json:"kind" badgerholdIndex:"Kind"`
	Topic             string    `json:"topic"`
	Symbol            string    `json:"symbol,omitempty"`
	Style             string    `json:"style"`
	MarketingIncluded bool      `json:"marketing_included"`
	Data              BlogData  `json:"blog_data"`
	ContentHTML       string    `json:"content_html"`
	Provider          string    `json:"provider"`
	Model             string    `json:"model"`
	Fallback          bool      `json:"fallback"` // LLM reply was not valid JSON
	GeneratedAt       time.Time `json:"generated_at"`
}

// EducationBlog is the response of the trading-education generate endpoint.
type EducationBlog struct {
	ID                string    `json:"id"`
	Topic             string    `json:"topic"`
	BlogData          BlogData  `json:"blog_data"`
	ContentHTML       string    `json:"content_html"`
	GeneratedAt       time.Time `json:"generated_at"`
	MarketingIncluded bool      `json:"marketing_included"`
}

// StockBlog is the response of the stock analysis blog endpoint.
type StockBlog struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	GeneratedAt time.Time `json:"generated_at"`
	Style       string    `json:"style"`
}

// DailyBlog wraps the education post generated for today's calendar topic.
type DailyBlog struct {
	DailyBlog   *EducationBlog `json:"daily_blog"`
	Topic       string         `json:"topic"`
	GeneratedAt time.Time      `json:"generated_at"`
	Status      string         `json:"status"`
}

// TopicCatalog lists the education calendar.
type TopicCatalog struct {
	Topics      []string       `json:"topics"`
	TotalTopics int            `json:"total_topics"`
	Categories  map[string]int `json:"categories"`
}

// AutoBlogSchedule configures daily post generation.
type AutoBlogSchedule struct {
	Enabled  bool   `json:"enabled"`
	PostTime string `json:"post_time" validate:"required,datetime=15:04"`
	Timezone string `json:"timezone" validate:"required,timezone"`
}

// ScheduleStatus is returned after (re)configuring the schedule.
type ScheduleStatus struct {
	Enabled  bool       `json:"enabled"`
	PostTime string     `json:"post_time"`
	Timezone string     `json:"timezone"`
	NextPost *time.Time `json:"next_post"`
	Message  string     `json:"message"`
}
