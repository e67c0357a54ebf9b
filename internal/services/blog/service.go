// Package blog generates stock analysis and trading education posts through an LLM provider
// and keeps them in the blog store.
package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const (
	DefaultStyle = "professional"

	stockMaxTokens     = 1000
	educationMaxTokens = 3000
	temperature        = 0.7

	// StatusReadyForPublishing marks a generated daily post
	StatusReadyForPublishing = "ready_for_publishing"
)

// StockBlogRequest asks for a market update post about one stock
type StockBlogRequest struct {
	StockSymbol string           `json:"stock_symbol" validate:"required"`
	StockData   map[string]any   `json:"stock_data"`
	NewsData    []map[string]any `json:"news_data"`
	Style       string           `json:"style"`
}

// EducationBlogRequest asks for a trading education post
type EducationBlogRequest struct {
	Topic            string `json:"topic" validate:"required"`
	IncludeMarketing bool   `json:"include_marketing"`
	Style            string `json:"style"`
}

// NewEducationBlogRequest returns a request with the default marketing and style settings
func NewEducationBlogRequest(topic string) EducationBlogRequest {
	return EducationBlogRequest{Topic: topic, IncludeMarketing: true, Style: DefaultStyle}
}

// Options selects the models used per post type. Empty means the provider default.
type Options struct {
	StockModel     string
	EducationModel string
}

// Service generates and stores blog posts
type Service struct {
	llm      interfaces.LLMService
	store    interfaces.BlogStorage
	opts     Options
	markdown goldmark.Markdown
	validate *validator.Validate
	now      func() time.Time
	logger   arbor.ILogger
}

// NewService creates a blog service. store may be nil, in which case posts are not persisted.
func NewService(llm interfaces.LLMService, store interfaces.BlogStorage, opts Options, logger arbor.ILogger) *Service {
	return &Service{
		llm:   llm,
		store: store,
		opts:  opts,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// GenerateStockBlog writes a market update post for a stock from caller-supplied quote and news data
func (s *Service) GenerateStockBlog(ctx context.Context, req *StockBlogRequest) (*models.StockBlog, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Style == "" {
		req.Style = DefaultStyle
	}

	prompt, err := stockPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.llm.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: prompt}},
		Model:             s.opts.StockModel,
		Temperature:       temperature,
		MaxTokens:         stockMaxTokens,
		SystemInstruction: stockSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate blog post: %w", err)
	}

	now := s.now()
	post := &models.BlogPost{
		ID:          common.NewBlogID(),
		Kind:        models.BlogKindStock,
		Topic:       req.StockSymbol,
		Symbol:      req.StockSymbol,
		Style:       req.Style,
		ContentHTML: s.renderHTML(resp.Text),
		Provider:    resp.Provider,
		Model:       resp.Model,
		GeneratedAt: now,
		Data: models.BlogData{
			Title:   fmt.Sprintf("Analysis: %s - Market Update", req.StockSymbol),
			Content: resp.Text,
		},
	}
	s.persist(ctx, post)

	return &models.StockBlog{
		ID:          post.ID,
		Symbol:      req.StockSymbol,
		Title:       post.Data.Title,
		Content:     resp.Text,
		ContentHTML: post.ContentHTML,
		GeneratedAt: now,
		Style:       req.Style,
	}, nil
}

// GenerateEducationBlog writes a trading education post for a topic
func (s *Service) GenerateEducationBlog(ctx context.Context, req *EducationBlogRequest) (*models.EducationBlog, error) {
	post, err := s.generateEducation(ctx, req, models.BlogKindEducation)
	if err != nil {
		return nil, err
	}
	return educationResponse(post), nil
}

// GenerateDaily writes the education post for the calendar topic of now's day of month
func (s *Service) GenerateDaily(ctx context.Context, now time.Time) (*models.DailyBlog, error) {
	topic := TopicForDay(now.Day())
	req := NewEducationBlogRequest(topic)

	s.logger.Info().Str("topic", topic).Msg("Generating daily blog")

	post, err := s.generateEducation(ctx, &req, models.BlogKindDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to generate daily blog: %w", err)
	}

	return &models.DailyBlog{
		DailyBlog:   educationResponse(post),
		Topic:       topic,
		GeneratedAt: s.now(),
		Status:      StatusReadyForPublishing,
	}, nil
}

// Topics returns the education calendar
func (s *Service) Topics() models.TopicCatalog {
	topics := Topics()
	return models.TopicCatalog{
		Topics:      topics,
		TotalTopics: len(topics),
		Categories:  TopicCategories(),
	}
}

// List returns stored posts newest first; an empty kind lists every kind
func (s *Service) List(ctx context.Context, kind models.BlogKind, limit int) ([]*models.BlogPost, error) {
	if s.store == nil {
		return []*models.BlogPost{}, nil
	}
	return s.store.ListBlogs(ctx, kind, limit)
}

// Get returns one stored post
func (s *Service) Get(ctx context.Context, id string) (*models.BlogPost, error) {
	if s.store == nil {
		return nil, interfaces.ErrBlogNotFound
	}
	return s.store.GetBlog(ctx, id)
}

func (s *Service) generateEducation(ctx context.Context, req *EducationBlogRequest, kind models.BlogKind) (*models.BlogPost, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Style == "" {
		req.Style = DefaultStyle
	}

	resp, err := s.llm.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: educationPrompt(req.Topic, req.IncludeMarketing, req.Style)}},
		Model:             s.opts.EducationModel,
		Temperature:       temperature,
		MaxTokens:         educationMaxTokens,
		SystemInstruction: educationSystemPrompt,
		JSONOutput:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate blog: %w", err)
	}

	data, ok := s.parseBlogData(resp.Text)
	if !ok {
		s.logger.Warn().
			Str("topic", req.Topic).
			Str("provider", resp.Provider).
			Msg("LLM reply was not a valid blog document, using fallback")
		data = FallbackBlogData(req.Topic, resp.Text)
	}

	post := &models.BlogPost{
		ID:                common.NewBlogID(),
		Kind:              kind,
		Topic:             req.Topic,
		Style:             req.Style,
		MarketingIncluded: req.IncludeMarketing,
		Data:              data,
		ContentHTML:       s.renderHTML(data.Content),
		Provider:          resp.Provider,
		Model:             resp.Model,
		Fallback:          !ok,
		GeneratedAt:       s.now(),
	}
	s.persist(ctx, post)

	return post, nil
}

// parseBlogData decodes and validates the JSON document requested from the LLM
func (s *Service) parseBlogData(text string) (models.BlogData, bool) {
	var data models.BlogData
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &data); err != nil {
		return models.BlogData{}, false
	}
	if err := s.validate.Struct(&data); err != nil {
		return models.BlogData{}, false
	}
	if data.Keywords == nil {
		data.Keywords = []string{}
	}
	return data, true
}

// FallbackBlogData wraps a raw LLM reply when it is not the requested JSON document
func FallbackBlogData(topic, content string) models.BlogData {
	return models.BlogData{
		Title:             fmt.Sprintf("Complete Guide to %s", topic),
		Content:           content,
		MetaDescription:   fmt.Sprintf("Master %s with our comprehensive guide. Learn professional trading techniques and strategies.", topic),
		Keywords:          []string{strings.ToLower(topic), "trading", "technical analysis"},
		EstimatedReadTime: "8 minutes",
		Category:          "Trading Education",
	}
}

var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// stripCodeFences removes a markdown code fence around a JSON reply
func stripCodeFences(s string) string {
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}
	return strings.TrimSpace(s)
}

func (s *Service) renderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to render blog markdown")
		return ""
	}
	return buf.String()
}

func (s *Service) persist(ctx context.Context, post *models.BlogPost) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveBlog(ctx, post); err != nil {
		s.logger.Error().Err(err).Str("id", post.ID).Msg("Failed to save blog post")
		return
	}
	s.logger.Info().
		Str("id", post.ID).
		Str("kind", string(post.Kind)).
		Str("topic", post.Topic).
		Msg("Blog post saved")
}

func educationResponse(post *models.BlogPost) *models.EducationBlog {
	return &models.EducationBlog{
		ID:                post.ID,
		Topic:             post.Topic,
		BlogData:          post.Data,
		ContentHTML:       post.ContentHTML,
		GeneratedAt:       post.GeneratedAt,
		MarketingIncluded: post.MarketingIncluded,
	}
}
