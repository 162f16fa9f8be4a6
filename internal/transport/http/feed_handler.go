package httptransport

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/config"
	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/storage"
	redisstore "github.com/outloudvi/mail-list-rss/internal/storage/redis"
)

// FeedHandler 读侧接口处理器：条目列表、内容、原文与 RSS 输出。
type FeedHandler struct {
	cfg   *config.Config
	store storage.FeedRepository
	cache *redisstore.Cache // 可为 nil
	log   *zap.Logger
}

// NewFeedHandler 创建读侧处理器。
func NewFeedHandler(cfg *config.Config, store storage.FeedRepository, cache *redisstore.Cache, log *zap.Logger) *FeedHandler {
	return &FeedHandler{
		cfg:   cfg,
		store: store,
		cache: cache,
		log:   log,
	}
}

// Index 首页，列出可用端点。
func (h *FeedHandler) Index(c *gin.Context) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Mail List</title></head><body>")
	b.WriteString("<h1>Mail List</h1><ul>")
	b.WriteString(`<li><a href="/rss">RSS</a></li>`)
	b.WriteString(`<li><a href="/feeds">Feeds (JSON)</a></li>`)
	b.WriteString(`<li><a href="/boxes">Boxes</a></li>`)
	b.WriteString("</ul></body></html>")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

// ListFeeds 分页返回条目摘要列表。
func (h *FeedHandler) ListFeeds(c *gin.Context) {
	limit := h.cfg.Web.PerPage
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	skip := 0
	if v := c.Query("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}

	feeds, err := h.store.ListFeeds(c.Request.Context(), limit, skip)
	if err != nil {
		h.log.Error("list feeds failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	list := domain.FeedList{Items: make([]domain.FeedSummary, 0, len(feeds))}
	for i := range feeds {
		list.Items = append(list.Items, feeds[i].Summary())
	}

	c.JSON(http.StatusOK, list)
}

// GetFeedContent 返回条目的 HTML 内容。
func (h *FeedHandler) GetFeedContent(c *gin.Context) {
	feed, ok := h.lookupFeed(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(feed.Content))
}

// GetFeedRaw 返回条目的原始邮件文本。
func (h *FeedHandler) GetFeedRaw(c *gin.Context) {
	feed, ok := h.lookupFeed(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(feed.Raw))
}

// ListBoxes 返回所有出现过的邮箱名。
func (h *FeedHandler) ListBoxes(c *gin.Context) {
	boxes, err := h.store.ListBoxes(c.Request.Context())
	if err != nil {
		h.log.Error("list boxes failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if boxes == nil {
		boxes = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"boxes": boxes})
}

// lookupFeed 按 ID 查询条目，优先读缓存；未找到时写好响应并返回 false。
func (h *FeedHandler) lookupFeed(c *gin.Context) (*domain.Feed, bool) {
	id := c.Param("id")

	if h.cache != nil {
		if feed, ok := h.cache.CachedFeed(c.Request.Context(), id); ok {
			return feed, true
		}
	}

	feed, err := h.store.GetFeed(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrFeedNotFound) {
			c.Data(http.StatusNotFound, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("feed %s not found", html.EscapeString(id))))
			return nil, false
		}
		h.log.Error("get feed failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	if h.cache != nil {
		if err := h.cache.CacheFeed(c.Request.Context(), feed); err != nil {
			h.log.Warn("cache feed failed", zap.String("id", id), zap.Error(err))
		}
	}

	return feed, true
}
