package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/monitoring"
	"github.com/outloudvi/mail-list-rss/internal/storage"
)

// Notifier 在条目成功入库后收到通知（WebSocket 推送等）。
type Notifier interface {
	NotifyNewFeed(feed *domain.Feed)
}

// Servo 是唯一的持久化消费者：循环接收队列条目并逐条写入存储。
//
// 状态机只有两态：Running（收一条写一条）→ Stopped（队列关闭，干净退出）。
// 写入失败只告警并继续，不重试、不回队、不留死信。这是刻意的
// 至多一次、尽力而为语义：条目在一次失败的写入尝试后即告丢失。
type Servo struct {
	queue    *Queue
	store    storage.FeedRepository
	log      *zap.Logger
	metrics  *monitoring.Metrics
	notifier Notifier
	done     chan struct{}
}

// NewServo 创建持久化伺服。
func NewServo(queue *Queue, store storage.FeedRepository, log *zap.Logger) *Servo {
	return &Servo{
		queue: queue,
		store: store,
		log:   log,
		done:  make(chan struct{}),
	}
}

// SetMetrics 挂接监控指标（可选）。
func (s *Servo) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// SetNotifier 挂接入库通知（可选）。
func (s *Servo) SetNotifier(n Notifier) {
	s.notifier = n
}

// Run 运行消费循环，直到队列关闭。ctx 只约束单次写入，
// 不会中断循环本身——终止信号只有队列关闭一个。
func (s *Servo) Run(ctx context.Context) {
	s.log.Info("servo starting")

	for {
		feed, ok := s.queue.Receive()
		if !ok {
			break
		}
		if s.metrics != nil {
			s.metrics.QueueDepth.Set(float64(s.queue.Len()))
		}

		s.log.Info("new feed",
			zap.String("id", feed.ID),
			zap.String("title", feed.Title),
			zap.String("author", feed.Author),
			zap.Int("len", len(feed.Content)),
		)

		if err := s.store.InsertFeed(ctx, feed); err != nil {
			s.log.Warn("insert feed failed, feed dropped",
				zap.String("id", feed.ID),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.InsertFailures.Inc()
			}
			continue
		}

		if s.metrics != nil {
			s.metrics.FeedsInserted.Inc()
		}
		if s.notifier != nil {
			s.notifier.NotifyNewFeed(feed)
		}
	}

	s.log.Info("servo stopping")
	close(s.done)
}

// Done 在消费循环退出后关闭。
func (s *Servo) Done() <-chan struct{} {
	return s.done
}
