package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/storage"
)

// Pingable 可探活的附属组件（如 Redis 缓存）。
type Pingable interface {
	Health() error
}

// Checker 健康检查器，聚合存活与就绪探针。
type Checker struct {
	handler healthcheck.Handler
	store   storage.FeedRepository
	logger  *zap.Logger
}

// NewChecker 创建健康检查器并注册存储探针。
func NewChecker(store storage.FeedRepository, logger *zap.Logger) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
	}
	c.handler.AddLivenessCheck("storage", store.Health)
	c.handler.AddReadinessCheck("storage", store.Health)
	return c
}

// AddCheck 注册附属组件探针。
func (c *Checker) AddCheck(name string, p Pingable) {
	c.handler.AddReadinessCheck(name, p.Health)
}

// LiveHandler 存活探针端点。
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(c.handler.LiveEndpoint)
}

// ReadyHandler 就绪探针端点。
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(c.handler.ReadyEndpoint)
}
