package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/storage"
)

// Store 使用内存保存条目数据，主要用于开发验证。
type Store struct {
	mu    sync.RWMutex
	feeds map[string]*domain.Feed
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		feeds: make(map[string]*domain.Feed),
	}
}

// InsertFeed 保存条目。同 ID 覆盖写入（upsert 语义）。
func (s *Store) InsertFeed(_ context.Context, feed *domain.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *feed
	s.feeds[feed.ID] = &clone
	return nil
}

// GetFeed 按 ID 取条目。
func (s *Store) GetFeed(_ context.Context, id string) (*domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[id]
	if !ok {
		return nil, storage.ErrFeedNotFound
	}
	clone := *feed
	return &clone, nil
}

// ListFeeds 按入库时间倒序分页列出条目。
func (s *Store) ListFeeds(_ context.Context, limit, skip int) ([]domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedDesc()
	if skip >= len(sorted) {
		return nil, nil
	}
	sorted = sorted[skip:]
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// ListRecentFeeds 按入库时间倒序取最新条目，fromBox 为空表示不过滤。
func (s *Store) ListRecentFeeds(_ context.Context, fromBox string, limit int) ([]domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Feed
	for _, feed := range s.sortedDesc() {
		if fromBox != "" && feed.FromBox != fromBox {
			continue
		}
		out = append(out, feed)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListBoxes 列出去重后的目标邮箱，按字典序。
func (s *Store) ListBoxes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var boxes []string
	for _, feed := range s.feeds {
		if _, ok := seen[feed.FromBox]; ok {
			continue
		}
		seen[feed.FromBox] = struct{}{}
		boxes = append(boxes, feed.FromBox)
	}
	sort.Strings(boxes)
	return boxes, nil
}

// Health 内存存储恒为健康。
func (s *Store) Health() error {
	return nil
}

// sortedDesc 返回按入库时间倒序的条目快照。调用方须持读锁。
func (s *Store) sortedDesc() []domain.Feed {
	out := make([]domain.Feed, 0, len(s.feeds))
	for _, feed := range s.feeds {
		out = append(out, *feed)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
