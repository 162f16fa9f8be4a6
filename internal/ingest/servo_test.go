package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/storage"
)

// fakeRepo 记录写入尝试，并可按条目 ID 注入失败。
type fakeRepo struct {
	mu       sync.Mutex
	inserted []string
	failIDs  map[string]bool
}

func (r *fakeRepo) InsertFeed(_ context.Context, feed *domain.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[feed.ID] {
		return errors.New("storage unavailable")
	}
	r.inserted = append(r.inserted, feed.ID)
	return nil
}

func (r *fakeRepo) GetFeed(context.Context, string) (*domain.Feed, error) {
	return nil, storage.ErrFeedNotFound
}
func (r *fakeRepo) ListFeeds(context.Context, int, int) ([]domain.Feed, error)         { return nil, nil }
func (r *fakeRepo) ListRecentFeeds(context.Context, string, int) ([]domain.Feed, error) { return nil, nil }
func (r *fakeRepo) ListBoxes(context.Context) ([]string, error)                        { return nil, nil }
func (r *fakeRepo) Health() error                                                      { return nil }

func (r *fakeRepo) insertedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inserted...)
}

type fakeNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *fakeNotifier) NotifyNewFeed(feed *domain.Feed) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, feed.ID)
}

func TestServo_InsertsEveryReceivedFeed(t *testing.T) {
	const producers = 4
	const perProducer = 25

	q := NewQueue(0)
	repo := &fakeRepo{}
	servo := NewServo(q, repo, zap.NewNop())

	go servo.Run(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		p := q.Producer()
		go func(p *Producer, base int) {
			defer wg.Done()
			defer p.Close()
			for j := 0; j < perProducer; j++ {
				require.NoError(t, p.Send(&domain.Feed{ID: newFeedID()}))
			}
		}(p, i)
	}
	wg.Wait()

	select {
	case <-servo.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("servo did not stop after queue closure")
	}

	assert.Len(t, repo.insertedIDs(), producers*perProducer)
}

func TestServo_DropsFailedInsertAndContinues(t *testing.T) {
	q := NewQueue(0)
	repo := &fakeRepo{failIDs: map[string]bool{"bad": true}}
	servo := NewServo(q, repo, zap.NewNop())

	go servo.Run(context.Background())

	p := q.Producer()
	require.NoError(t, p.Send(&domain.Feed{ID: "ok-1"}))
	require.NoError(t, p.Send(&domain.Feed{ID: "bad"}))
	require.NoError(t, p.Send(&domain.Feed{ID: "ok-2"}))
	p.Close()

	select {
	case <-servo.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("servo did not stop after queue closure")
	}

	// 失败的条目被丢弃，不重试，后续条目照常写入
	assert.Equal(t, []string{"ok-1", "ok-2"}, repo.insertedIDs())
}

func TestServo_NotifiesAfterInsert(t *testing.T) {
	q := NewQueue(0)
	repo := &fakeRepo{failIDs: map[string]bool{"bad": true}}
	notifier := &fakeNotifier{}

	servo := NewServo(q, repo, zap.NewNop())
	servo.SetNotifier(notifier)

	go servo.Run(context.Background())

	p := q.Producer()
	require.NoError(t, p.Send(&domain.Feed{ID: "ok"}))
	require.NoError(t, p.Send(&domain.Feed{ID: "bad"}))
	p.Close()

	select {
	case <-servo.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("servo did not stop after queue closure")
	}

	// 只有成功入库的条目触发通知
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []string{"ok"}, notifier.ids)
}
