package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outloudvi/mail-list-rss/internal/domain"
)

// Cache 基于 Redis 的读侧缓存：渲染好的 RSS 文档和单条目查询。
//
// 存储始终是事实来源，缓存只靠短 TTL 过期，不做主动失效。
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 创建 Redis 缓存实例并验证连通性。
func NewCache(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close 关闭连接。
func (c *Cache) Close() error {
	return c.client.Close()
}

// CacheRSS 缓存某个邮箱（空串代表全量）的 RSS 文档。
func (c *Cache) CacheRSS(ctx context.Context, box, xml string) error {
	return c.client.Set(ctx, rssKey(box), xml, c.ttl).Err()
}

// CachedRSS 取缓存的 RSS 文档，未命中返回 ("", false)。
func (c *Cache) CachedRSS(ctx context.Context, box string) (string, bool) {
	data, err := c.client.Get(ctx, rssKey(box)).Result()
	if err != nil {
		return "", false
	}
	return data, true
}

// CacheFeed 缓存单个条目。
func (c *Cache) CacheFeed(ctx context.Context, feed *domain.Feed) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, feedKey(feed.ID), data, c.ttl).Err()
}

// CachedFeed 取缓存的条目，未命中返回 (nil, false)。
func (c *Cache) CachedFeed(ctx context.Context, id string) (*domain.Feed, bool) {
	data, err := c.client.Get(ctx, feedKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var feed domain.Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, false
	}
	return &feed, true
}

// Health 探活。
func (c *Cache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func rssKey(box string) string {
	if box == "" {
		return "rss:_all"
	}
	return "rss:" + box
}

func feedKey(id string) string {
	return "feed:" + id
}
