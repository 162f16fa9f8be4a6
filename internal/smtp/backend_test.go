package smtp

import (
	"bytes"
	"strings"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/ingest"
)

func testSession(t *testing.T, rules []domain.Rule) (*Session, *ingest.Queue) {
	t.Helper()

	queue := ingest.NewQueue(0)
	pipeline := ingest.NewPipeline("example.com", rules, queue, zap.NewNop())
	backend := NewBackend(pipeline, zap.NewNop(), nil, 1024*1024)

	return &Session{
		backend: backend,
		intake:  pipeline.NewIntake(),
		remote:  "127.0.0.1:12345",
	}, queue
}

func TestSession_DataAccepted(t *testing.T) {
	session, queue := testSession(t, nil)
	defer session.Logout()

	raw := "From: Alerts <alerts@vendor.com>\r\n" +
		"To: digest@example.com\r\n" +
		"Subject: Weekly digest\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>hello</p>\r\n"

	require.NoError(t, session.Mail("alerts@vendor.com", nil))
	require.NoError(t, session.Rcpt("digest@example.com", nil))
	require.NoError(t, session.Data(bytes.NewReader([]byte(raw))))

	feed, ok := queue.Receive()
	require.True(t, ok)
	assert.Equal(t, "digest@example.com", feed.FromBox)
	assert.Equal(t, "Weekly digest", feed.Title)
	assert.Equal(t, "alerts@vendor.com (Alerts)", feed.Author)
}

func TestSession_DataBlocked(t *testing.T) {
	session, queue := testSession(t, nil)
	defer session.Logout()

	raw := "From: stranger@other.net\r\n" +
		"To: nobody@other.net\r\n" +
		"Subject: spam\r\n" +
		"\r\n" +
		"body\r\n"

	err := session.Data(bytes.NewReader([]byte(raw)))
	require.Error(t, err)

	var smtpErr *gosmtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, 0, queue.Len())
}

func TestSession_DataRoutedByRule(t *testing.T) {
	rules := []domain.Rule{{
		ToBox:  "news",
		Filter: []domain.Filter{{Type: domain.FilterByFrom, Address: "alerts@vendor.com"}},
	}}
	session, queue := testSession(t, rules)
	defer session.Logout()

	raw := "From: alerts@vendor.com\r\n" +
		"To: subscriber@other.net\r\n" +
		"Subject: routed\r\n" +
		"\r\n" +
		"body\r\n"

	require.NoError(t, session.Data(bytes.NewReader([]byte(raw))))

	feed, ok := queue.Receive()
	require.True(t, ok)
	assert.Equal(t, "news", feed.FromBox)
}

func TestSession_DataTooLarge(t *testing.T) {
	queue := ingest.NewQueue(0)
	pipeline := ingest.NewPipeline("example.com", nil, queue, zap.NewNop())
	backend := NewBackend(pipeline, zap.NewNop(), nil, 128)
	session := &Session{
		backend: backend,
		intake:  pipeline.NewIntake(),
		remote:  "127.0.0.1:12345",
	}
	defer session.Logout()

	raw := "From: alerts@vendor.com\r\n" +
		"To: digest@example.com\r\n" +
		"Subject: big\r\n" +
		"\r\n" +
		strings.Repeat("x", 4096)

	// 超限消息整封拒收，不允许截断后入库
	err := session.Data(bytes.NewReader([]byte(raw)))
	require.Error(t, err)

	var smtpErr *gosmtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 552, smtpErr.Code)
	assert.Equal(t, 0, queue.Len())
}

func TestSession_DataAtLimitKeepsFullRaw(t *testing.T) {
	queue := ingest.NewQueue(0)
	pipeline := ingest.NewPipeline("example.com", nil, queue, zap.NewNop())

	raw := "From: alerts@vendor.com\r\n" +
		"To: digest@example.com\r\n" +
		"Subject: exact\r\n" +
		"\r\n" +
		"body"

	backend := NewBackend(pipeline, zap.NewNop(), nil, int64(len(raw)))
	session := &Session{
		backend: backend,
		intake:  pipeline.NewIntake(),
		remote:  "127.0.0.1:12345",
	}
	defer session.Logout()

	require.NoError(t, session.Data(bytes.NewReader([]byte(raw))))

	feed, ok := queue.Receive()
	require.True(t, ok)
	// 原文逐字节保留
	assert.Equal(t, raw, feed.Raw)
}

func TestSession_DataUnparsable(t *testing.T) {
	session, queue := testSession(t, nil)
	defer session.Logout()

	err := session.Data(bytes.NewReader([]byte("not a mail message")))
	require.Error(t, err)

	var smtpErr *gosmtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 554, smtpErr.Code)
	assert.Equal(t, 0, queue.Len())
}

func TestConnectionLimiter(t *testing.T) {
	limiter := NewConnectionLimiter(2, 100)

	assert.True(t, limiter.Acquire())
	assert.True(t, limiter.Acquire())
	assert.False(t, limiter.Acquire())

	limiter.Release()
	assert.True(t, limiter.Acquire())
	assert.Equal(t, 2, limiter.Current())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(3)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	// 令牌耗尽
	assert.False(t, limiter.Allow())
}
