package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outloudvi/mail-list-rss/internal/domain"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(0)
	p := q.Producer()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Send(&domain.Feed{ID: id}))
	}
	p.Close()

	var got []string
	for {
		feed, ok := q.Receive()
		if !ok {
			break
		}
		got = append(got, feed.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestQueue_ClosesAfterAllProducersDrop(t *testing.T) {
	q := NewQueue(0)
	p1 := q.Producer()
	p2 := q.Producer()

	require.NoError(t, p1.Send(&domain.Feed{ID: "x"}))
	p1.Close()

	// 另一个句柄仍然存活，队列不应关闭
	feed, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "x", feed.ID)

	done := make(chan struct{})
	go func() {
		_, ok := q.Receive()
		assert.False(t, ok)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("receive returned while a producer was still open")
	case <-time.After(50 * time.Millisecond):
	}

	p2.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive did not observe queue closure")
	}
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := NewQueue(0)
	p := q.Producer()
	other := q.Producer()

	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Send(&domain.Feed{ID: "x"}), ErrProducerClosed)

	// 重复关闭不应把另一个存活句柄也计掉
	require.NoError(t, other.Send(&domain.Feed{ID: "y"}))
	other.Close()

	feed, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "y", feed.ID)
	_, ok = q.Receive()
	assert.False(t, ok)
}

func TestQueue_BoundedBackpressure(t *testing.T) {
	q := NewQueue(1)
	p := q.Producer()

	require.NoError(t, p.Send(&domain.Feed{ID: "a"}))

	sent := make(chan struct{})
	go func() {
		require.NoError(t, p.Send(&domain.Feed{ID: "b"}))
		close(sent)
	}()

	// 队列满，第二次发送应当挂起
	select {
	case <-sent:
		t.Fatal("send completed on a full bounded queue")
	case <-time.After(50 * time.Millisecond):
	}

	feed, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "a", feed.ID)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("send did not unblock after receive")
	}

	p.Close()
	feed, ok = q.Receive()
	require.True(t, ok)
	assert.Equal(t, "b", feed.ID)
}

func TestQueue_UnboundedNeverBlocks(t *testing.T) {
	q := NewQueue(0)
	p := q.Producer()

	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Send(&domain.Feed{ID: "x"}))
	}
	assert.Equal(t, 1000, q.Len())
	p.Close()
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 50

	q := NewQueue(4)

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		p := q.Producer()
		go func(p *Producer) {
			defer wg.Done()
			defer p.Close()
			for j := 0; j < perProducer; j++ {
				require.NoError(t, p.Send(&domain.Feed{ID: "x"}))
			}
		}(p)
	}

	count := 0
	for {
		_, ok := q.Receive()
		if !ok {
			break
		}
		count++
	}
	wg.Wait()
	assert.Equal(t, producers*perProducer, count)
}
