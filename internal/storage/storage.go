package storage

import (
	"context"
	"errors"

	"github.com/outloudvi/mail-list-rss/internal/domain"
)

var (
	// ErrFeedNotFound 条目不存在。
	ErrFeedNotFound = errors.New("feed not found")
)

// FeedRepository 定义条目数据存取操作。
//
// 写路径只有 InsertFeed，由持久化伺服单写者调用；
// 读路径供 Web 列表与 RSS 渲染使用。
type FeedRepository interface {
	InsertFeed(ctx context.Context, feed *domain.Feed) error
	GetFeed(ctx context.Context, id string) (*domain.Feed, error)
	// ListFeeds 按入库时间倒序分页列出条目。
	ListFeeds(ctx context.Context, limit, skip int) ([]domain.Feed, error)
	// ListRecentFeeds 按入库时间倒序取最新条目，fromBox 为空表示不过滤。
	ListRecentFeeds(ctx context.Context, fromBox string, limit int) ([]domain.Feed, error)
	// ListBoxes 列出去重后的目标邮箱。
	ListBoxes(ctx context.Context) ([]string, error)
	// Health 探活，供健康检查使用。
	Health() error
}
