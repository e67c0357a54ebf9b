package blog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
)

type stubLLM struct {
	reply    string
	err      error
	requests []*interfaces.ContentRequest
}

func (s *stubLLM) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &interfaces.ContentResponse{Text: s.reply, Provider: "openai", Model: "gpt-test"}, nil
}

func (s *stubLLM) Configured(ctx context.Context) bool { return s.err == nil }

type memoryBlogStore struct {
	mu    sync.Mutex
	posts map[string]*models.BlogPost
}

func newMemoryBlogStore() *memoryBlogStore {
	return &memoryBlogStore{posts: map[string]*models.BlogPost{}}
}

func (m *memoryBlogStore) SaveBlog(ctx context.Context, post *models.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post
	return nil
}

func (m *memoryBlogStore) GetBlog(ctx context.Context, id string) (*models.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post, ok := m.posts[id]; ok {
		return post, nil
	}
	return nil, interfaces.ErrBlogNotFound
}

func (m *memoryBlogStore) ListBlogs(ctx context.Context, kind models.BlogKind, limit int) ([]*models.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BlogPost
	for _, post := range m.posts {
		if kind == "" || post.Kind == kind {
			out = append(out, post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryBlogStore) DeleteBlog(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func newTestService(llm *stubLLM, store interfaces.BlogStorage) *Service {
	svc := NewService(llm, store, Options{StockModel: "gpt-3.5-turbo"}, arbor.NewLogger())
	svc.now = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestTopics_Calendar(t *testing.T) {
	topics := Topics()
	require.Len(t, topics, 34)
	assert.Equal(t, "Bollinger Bands: Complete Guide to Volatility Trading", topics[0])
	assert.Equal(t, "Options Greeks: Delta, Gamma, Theta, Vega", topics[33])

	assert.Equal(t, map[string]int{
		"Technical Indicators": 8,
		"Trading Strategies":   7,
		"Market Analysis":      7,
		"Risk Management":      6,
		"Options Trading":      6,
	}, TopicCategories())

	catalog := newTestService(&stubLLM{}, nil).Topics()
	assert.Equal(t, 34, catalog.TotalTopics)
	assert.Len(t, catalog.Topics, 34)
}

func TestTopicForDay(t *testing.T) {
	topics := Topics()
	assert.Equal(t, topics[1], TopicForDay(1))
	assert.Equal(t, topics[31], TopicForDay(31))
	assert.Equal(t, topics[0], TopicForDay(34))
}

func TestGenerateStockBlog(t *testing.T) {
	llm := &stubLLM{reply: "## Overview\n\nRELIANCE closed higher."}
	store := newMemoryBlogStore()
	svc := newTestService(llm, store)

	blog, err := svc.GenerateStockBlog(context.Background(), &StockBlogRequest{
		StockSymbol: "RELIANCE",
		StockData:   map[string]any{"lastPrice": 2450.5},
		NewsData:    []map[string]any{{"title": "Reliance expands retail"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE", blog.Symbol)
	assert.Equal(t, "Analysis: RELIANCE - Market Update", blog.Title)
	assert.Equal(t, "## Overview\n\nRELIANCE closed higher.", blog.Content)
	assert.Equal(t, "professional", blog.Style)
	assert.Contains(t, blog.ContentHTML, "<h2")
	assert.True(t, strings.HasPrefix(blog.ID, "blog_"))

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, stockSystemPrompt, req.SystemInstruction)
	assert.Contains(t, req.Messages[0].Content, "Generate a professional blog post about RELIANCE")
	assert.Contains(t, req.Messages[0].Content, `"lastPrice": 2450.5`)

	stored, err := store.GetBlog(context.Background(), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BlogKindStock, stored.Kind)
}

func TestGenerateStockBlog_RequiresSymbol(t *testing.T) {
	llm := &stubLLM{reply: "x"}
	svc := newTestService(llm, nil)

	_, err := svc.GenerateStockBlog(context.Background(), &StockBlogRequest{})

	var validationErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)
	assert.Empty(t, llm.requests)
}

func TestGenerateEducationBlog_ParsesFencedJSON(t *testing.T) {
	llm := &stubLLM{reply: "```json\n" + `{
		"title": "Bollinger Bands Explained",
		"content": "## Intro\n\nBands wrap price.",
		"meta_description": "Learn Bollinger Bands",
		"keywords": ["bollinger", "volatility"],
		"estimated_read_time": "9 minutes",
		"category": "Technical Indicators"
	}` + "\n```"}
	store := newMemoryBlogStore()
	svc := newTestService(llm, store)

	req := NewEducationBlogRequest("Bollinger Bands: Complete Guide to Volatility Trading")
	blog, err := svc.GenerateEducationBlog(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, "Bollinger Bands Explained", blog.BlogData.Title)
	assert.Equal(t, []string{"bollinger", "volatility"}, blog.BlogData.Keywords)
	assert.Equal(t, "Technical Indicators", blog.BlogData.Category)
	assert.True(t, blog.MarketingIncluded)
	assert.Contains(t, blog.ContentHTML, `<h2 id="intro">Intro</h2>`)
	assert.Contains(t, blog.ContentHTML, "<p>Bands wrap price.</p>")

	require.Len(t, llm.requests, 1)
	sent := llm.requests[0]
	assert.Equal(t, 3000, sent.MaxTokens)
	assert.True(t, sent.JSONOutput)
	assert.Equal(t, educationSystemPrompt, sent.SystemInstruction)
	assert.Contains(t, sent.Messages[0].Content, "XenAlgo")

	stored, err := store.GetBlog(context.Background(), blog.ID)
	require.NoError(t, err)
	assert.False(t, stored.Fallback)
	assert.Equal(t, models.BlogKindEducation, stored.Kind)
}

func TestGenerateEducationBlog_WithoutMarketing(t *testing.T) {
	llm := &stubLLM{reply: `{"title": "T", "content": "C"}`}
	svc := newTestService(llm, nil)

	blog, err := svc.GenerateEducationBlog(context.Background(), &EducationBlogRequest{Topic: "Scalping"})
	require.NoError(t, err)

	assert.False(t, blog.MarketingIncluded)
	assert.NotContains(t, llm.requests[0].Messages[0].Content, "XenAlgo")
	assert.Contains(t, llm.requests[0].Messages[0].Content, "educational, and professional.")
	assert.Equal(t, []string{}, blog.BlogData.Keywords)
}

func TestGenerateEducationBlog_Fallback(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"plain text", "Support and resistance are price levels..."},
		{"json missing content", `{"title": "Only a title"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.reply}
			store := newMemoryBlogStore()
			svc := newTestService(llm, store)

			req := NewEducationBlogRequest("Support and Resistance")
			blog, err := svc.GenerateEducationBlog(context.Background(), &req)
			require.NoError(t, err)

			assert.Equal(t, FallbackBlogData("Support and Resistance", tt.reply), blog.BlogData)
			assert.Equal(t, "Complete Guide to Support and Resistance", blog.BlogData.Title)
			assert.Equal(t, []string{"support and resistance", "trading", "technical analysis"}, blog.BlogData.Keywords)
			assert.Equal(t, "8 minutes", blog.BlogData.EstimatedReadTime)
			assert.Equal(t, "Trading Education", blog.BlogData.Category)

			stored, err := store.GetBlog(context.Background(), blog.ID)
			require.NoError(t, err)
			assert.True(t, stored.Fallback)
		})
	}
}

func TestGenerateEducationBlog_ProviderError(t *testing.T) {
	llm := &stubLLM{err: models.NewConfigurationError("openai_api_key")}
	store := newMemoryBlogStore()
	svc := newTestService(llm, store)

	req := NewEducationBlogRequest("Scalping")
	_, err := svc.GenerateEducationBlog(context.Background(), &req)

	assert.ErrorIs(t, err, models.ErrNotConfigured)
	posts, _ := store.ListBlogs(context.Background(), "", 0)
	assert.Empty(t, posts)
}

func TestGenerateDaily(t *testing.T) {
	llm := &stubLLM{reply: `{"title": "Daily", "content": "Body"}`}
	store := newMemoryBlogStore()
	svc := newTestService(llm, store)

	day := time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC)
	daily, err := svc.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, Topics()[5], daily.Topic)
	assert.Equal(t, StatusReadyForPublishing, daily.Status)
	require.NotNil(t, daily.DailyBlog)
	assert.Equal(t, daily.Topic, daily.DailyBlog.Topic)
	assert.True(t, daily.DailyBlog.MarketingIncluded)

	posts, err := svc.List(context.Background(), models.BlogKindDaily, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, daily.DailyBlog.ID, posts[0].ID)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(&stubLLM{}, newMemoryBlogStore())

	_, err := svc.Get(context.Background(), "blog_missing")
	assert.True(t, errors.Is(err, interfaces.ErrBlogNotFound))

	svc = newTestService(&stubLLM{}, nil)
	_, err = svc.Get(context.Background(), "blog_missing")
	assert.ErrorIs(t, err, interfaces.ErrBlogNotFound)

	posts, err := svc.List(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}

func TestRenderHTML_OmitsRawHTML(t *testing.T) {
	svc := newTestService(&stubLLM{}, nil)

	out := svc.renderHTML("# Title\n\n<script>alert(1)</script>\n\n<img src=x onerror=alert(2)>")

	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "onerror")
}
