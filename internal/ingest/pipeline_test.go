package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/mailparse"
)

func TestIntake_ProcessQueuesFeed(t *testing.T) {
	q := NewQueue(0)
	p := NewPipeline("example.com", nil, q, zap.NewNop())

	intake := p.NewIntake()
	defer intake.Close()

	raw := []byte("From: a@b.c\r\n\r\nbody")
	msg := &mailparse.Message{
		Subject: "hi",
		From:    addr("a@b.c"),
		To:      addr("me@example.com"),
	}
	require.NoError(t, intake.Process(raw, msg))

	require.Equal(t, 1, q.Len())
	feed, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "me@example.com", feed.FromBox)
	assert.Equal(t, "hi", feed.Title)
}

func TestIntake_ProcessBlocked(t *testing.T) {
	q := NewQueue(0)
	p := NewPipeline("example.com", nil, q, zap.NewNop())

	intake := p.NewIntake()
	defer intake.Close()

	msg := &mailparse.Message{From: addr("a@b.c"), To: addr("me@other.net")}
	err := intake.Process([]byte("raw"), msg)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 0, q.Len())
}

func TestIntake_ProcessInvalidEncoding(t *testing.T) {
	q := NewQueue(0)
	p := NewPipeline("example.com", nil, q, zap.NewNop())

	intake := p.NewIntake()
	defer intake.Close()

	msg := &mailparse.Message{To: addr("me@example.com")}
	err := intake.Process([]byte{0xff, 0xfe}, msg)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Equal(t, 0, q.Len())
}

func TestIntake_RulesRoute(t *testing.T) {
	rules := []domain.Rule{{
		ToBox:  "news",
		Filter: []domain.Filter{{Type: domain.FilterByFrom, Address: "alerts@vendor.com"}},
	}}
	q := NewQueue(0)
	p := NewPipeline("example.com", rules, q, zap.NewNop())

	intake := p.NewIntake()
	defer intake.Close()

	msg := &mailparse.Message{From: addr("alerts@vendor.com"), To: addr("me@other.net")}
	require.NoError(t, intake.Process([]byte("raw"), msg))

	feed, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "news", feed.FromBox)
}
