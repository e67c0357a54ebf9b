package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/services/blog"
)

const (
	blogsPath        = "/trading-education/blogs"
	defaultBlogLimit = 20
	maxBlogLimit     = 100
)

// BlogHandler serves blog generation, the topic calendar, the schedule and stored posts
type BlogHandler struct {
	blogService BlogService
	scheduler   ScheduleService
	logger      arbor.ILogger
	now         func() time.Time
}

// NewBlogHandler creates a new BlogHandler
func NewBlogHandler(blogService BlogService, scheduler ScheduleService, logger arbor.ILogger) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
		scheduler:   scheduler,
		logger:      logger,
		now:         time.Now,
	}
}

// GenerateStockBlogHandler handles POST /openai/generate-blog
func (h *BlogHandler) GenerateStockBlogHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req := blog.StockBlogRequest{Style: blog.DefaultStyle}
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Stock blog generation")
		return
	}

	post, err := h.blogService.GenerateStockBlog(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Stock blog generation")
		return
	}

	WriteJSON(w, http.StatusOK, post)
}

// GenerateEducationBlogHandler handles POST /trading-education/generate-blog
func (h *BlogHandler) GenerateEducationBlogHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req := blog.NewEducationBlogRequest("")
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Education blog generation")
		return
	}

	post, err := h.blogService.GenerateEducationBlog(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Education blog generation")
		return
	}

	WriteJSON(w, http.StatusOK, post)
}

// TopicsHandler handles GET /trading-education/topics
func (h *BlogHandler) TopicsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.blogService.Topics())
}

// AutoScheduleHandler handles POST (configure) and GET (status) /trading-education/auto-schedule
func (h *BlogHandler) AutoScheduleHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, h.scheduler.Status())
	case http.MethodPost:
		schedule := h.scheduler.DefaultSchedule()
		schedule.Enabled = true
		if err := DecodeJSON(r, &schedule); err != nil {
			writeServiceError(w, h.logger, err, "Auto-schedule")
			return
		}

		status, err := h.scheduler.Configure(r.Context(), schedule)
		if err != nil {
			writeServiceError(w, h.logger, err, "Auto-schedule")
			return
		}

		WriteJSON(w, http.StatusOK, status)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// GenerateDailyHandler handles POST /trading-education/generate-daily
func (h *BlogHandler) GenerateDailyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	daily, err := h.blogService.GenerateDaily(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, h.logger, err, "Daily blog generation")
		return
	}

	WriteJSON(w, http.StatusOK, daily)
}

// ListBlogsHandler handles GET /trading-education/blogs?limit=&kind=
func (h *BlogHandler) ListBlogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := GetLimitParam(r, defaultBlogLimit)
	if limit > maxBlogLimit {
		limit = maxBlogLimit
	}
	kind := models.BlogKind(r.URL.Query().Get("kind"))

	posts, err := h.blogService.List(r.Context(), kind, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "List blogs")
		return
	}
	if posts == nil {
		posts = []*models.BlogPost{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"blogs": posts,
		"total": len(posts),
	})
}

// GetBlogHandler handles GET /trading-education/blogs/{id}
func (h *BlogHandler) GetBlogHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	// Extract id from path: /trading-education/blogs/{id}
	encodedID := strings.TrimPrefix(r.URL.Path, blogsPath+"/")
	id, err := url.PathUnescape(encodedID)
	if err != nil || id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid blog id")
		return
	}

	post, err := h.blogService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Get blog")
		return
	}

	WriteJSON(w, http.StatusOK, post)
}
