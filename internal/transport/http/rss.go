package httptransport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
)

// RSS 输出全量条目的 RSS 文档。
func (h *FeedHandler) RSS(c *gin.Context) {
	h.serveRSS(c, "")
}

// RSSByBox 输出单个邮箱的 RSS 文档。
func (h *FeedHandler) RSSByBox(c *gin.Context) {
	h.serveRSS(c, c.Param("box"))
}

// serveRSS 渲染并输出 RSS，带可选的 Redis 缓存。
func (h *FeedHandler) serveRSS(c *gin.Context, box string) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if xml, ok := h.cache.CachedRSS(ctx, box); ok {
			c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(xml))
			return
		}
	}

	items, err := h.store.ListRecentFeeds(ctx, box, h.cfg.Web.PerPage)
	if err != nil {
		h.log.Error("list recent feeds failed", zap.String("box", box), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	xml, err := h.renderRSS(box, items)
	if err != nil {
		h.log.Error("render rss failed", zap.String("box", box), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheRSS(ctx, box, xml); err != nil {
			h.log.Warn("cache rss failed", zap.String("box", box), zap.Error(err))
		}
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(xml))
}

// renderRSS 把条目列表渲染为 RSS 2.0 文档。
func (h *FeedHandler) renderRSS(box string, items []domain.Feed) (string, error) {
	base := "https://" + h.cfg.Web.Domain

	title := "Mail List"
	link := base + "/rss"
	if box != "" {
		title = fmt.Sprintf("Mail List - %s", box)
		link = base + "/rss/" + box
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Mails from the mailing lists",
		Created:     time.Now(),
	}

	for i := range items {
		item := &items[i]
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      item.ID,
			Title:   item.Title,
			Author:  &feeds.Author{Name: item.Author},
			Link:    &feeds.Link{Href: base + "/feeds/" + item.ID},
			Content: item.Content,
			Created: item.CreatedAt,
		})
	}

	return feed.ToRss()
}
