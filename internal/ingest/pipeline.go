package ingest

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/mailparse"
	"github.com/outloudvi/mail-list-rss/internal/monitoring"
)

// Pipeline 是邮件入库流水线：解析结果 → 邮箱解析 → 条目构建 → 入队。
//
// 域名与规则表在进程启动时装配完毕，此后只读，无需加锁。
type Pipeline struct {
	serveDomain string
	rules       []domain.Rule
	queue       *Queue
	log         *zap.Logger
	metrics     *monitoring.Metrics
}

// NewPipeline 创建流水线。
func NewPipeline(serveDomain string, rules []domain.Rule, queue *Queue, log *zap.Logger) *Pipeline {
	return &Pipeline{
		serveDomain: serveDomain,
		rules:       rules,
		queue:       queue,
		log:         log,
	}
}

// SetMetrics 挂接监控指标（可选）。
func (p *Pipeline) SetMetrics(m *monitoring.Metrics) {
	p.metrics = m
}

// Queue 返回底层交接队列。
func (p *Pipeline) Queue() *Queue {
	return p.queue
}

// NewIntake 为一个并发的收信任务申请入口，内部持有独立的生产者句柄。
// 用完必须 Close，否则队列永远不会进入收尾。
func (p *Pipeline) NewIntake() *Intake {
	return &Intake{
		pipeline: p,
		producer: p.queue.Producer(),
	}
}

// Intake 绑定单个生产者句柄的流水线入口。
type Intake struct {
	pipeline *Pipeline
	producer *Producer
}

// Process 处理一次投递事件：成功的副作用是一个条目最终入队。
//
// 失败分两类，均由调用方决定如何答复对端：
//   - ErrRejected：不属于任何受理邮箱，消息丢弃；
//   - ErrInvalidEncoding：内容不是合法 UTF-8，消息丢弃。
//
// 消息要么完整走完构建并入队，要么不留任何中间状态。
func (in *Intake) Process(raw []byte, msg *mailparse.Message) error {
	p := in.pipeline

	box, err := ResolveMailbox(msg, p.serveDomain, p.rules)
	if err != nil {
		if p.metrics != nil && errors.Is(err, ErrRejected) {
			p.metrics.FeedsRejected.Inc()
		}
		return fmt.Errorf("not sending to %s, blocked: %w", p.serveDomain, err)
	}

	feed, err := BuildFeed(raw, msg, box)
	if err != nil {
		if p.metrics != nil && errors.Is(err, ErrInvalidEncoding) {
			p.metrics.EncodingErrors.Inc()
		}
		return err
	}

	if err := in.producer.Send(feed); err != nil {
		return fmt.Errorf("queue feed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.FeedsBuilt.Inc()
		p.metrics.QueueDepth.Set(float64(p.queue.Len()))
	}
	return nil
}

// Close 归还生产者句柄。
func (in *Intake) Close() {
	in.producer.Close()
}
