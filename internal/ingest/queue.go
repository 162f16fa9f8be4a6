package ingest

import (
	"errors"
	"sync"

	"github.com/outloudvi/mail-list-rss/internal/domain"
)

// ErrProducerClosed 在已关闭的生产者句柄上发送。
var ErrProducerClosed = errors.New("send on closed producer")

// Queue 是多生产者、单消费者的入库交接队列。
//
// 容量策略是显式配置项：capacity > 0 为有界队列，队满时 Send 阻塞，
// 对收信侧形成自然背压；capacity <= 0 为无界队列，Send 永不阻塞，
// 代价是积压会占用内存。
//
// 生产者句柄按引用计数管理：最后一个句柄关闭且积压投递完毕后，
// Receive 返回流结束。这是消费者唯一的终止信号，没有显式停机消息。
type Queue struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	items    []*domain.Feed
	capacity int
	open     int  // 存活的生产者句柄数
	started  bool // 是否出现过生产者，避免启动初期误判关闭
}

// NewQueue 创建交接队列，capacity <= 0 表示无界。
func NewQueue(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q
}

// Producer 申请一个生产者句柄。句柄不是并发安全的，
// 每个生产任务各取各的。
func (q *Queue) Producer() *Producer {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.open++
	q.started = true
	return &Producer{queue: q}
}

// Len 当前积压数量。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// closed 判定流结束：有过生产者、现在一个不剩。调用方须持锁。
func (q *Queue) closedLocked() bool {
	return q.started && q.open == 0
}

// Receive 取出下一个条目，队列空时阻塞。
// 流结束（生产者全部关闭且积压排空）时返回 (nil, false)。
func (q *Queue) Receive() (*domain.Feed, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closedLocked() {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}

	feed := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return feed, true
}

// Producer 队列的生产者句柄。
type Producer struct {
	queue  *Queue
	closed bool
	mu     sync.Mutex
}

// Send 入队一个条目。有界队列满时挂起，直到消费者腾出空间。
func (p *Producer) Send(feed *domain.Feed) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.capacity > 0 && len(q.items) >= q.capacity {
		q.notFull.Wait()
	}

	q.items = append(q.items, feed)
	q.notEmpty.Signal()
	return nil
}

// Close 归还句柄。最后一个句柄关闭后队列进入收尾：
// 消费者排空积压后得到流结束信号。重复关闭无害。
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	q := p.queue
	q.mu.Lock()
	q.open--
	if q.closedLocked() {
		q.notEmpty.Broadcast()
	}
	q.mu.Unlock()
}
