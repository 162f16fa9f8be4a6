package smtp

import (
	"errors"
	"io"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/ingest"
	"github.com/outloudvi/mail-list-rss/internal/mailparse"
)

// 对端看到的拒收应答。5.7.1 表示策略拒绝，5.6.0 表示内容不可用。
var (
	errBlocked = &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
		Message:      "Recipient not served here",
	}
	errBadContent = &gosmtp.SMTPError{
		Code:         554,
		EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
		Message:      "Message content rejected",
	}
	errTooLarge = &gosmtp.SMTPError{
		Code:         552,
		EnhancedCode: gosmtp.EnhancedCode{5, 3, 4},
		Message:      "Message exceeds maximum size",
	}
	errTooManyConns = &gosmtp.SMTPError{
		Code:         421,
		EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
		Message:      "Too many connections, try again later",
	}
)

// Backend SMTP 后端，每个连接派生一个绑定流水线入口的会话。
type Backend struct {
	pipeline        *ingest.Pipeline
	logger          *zap.Logger
	limiter         *ConnectionLimiter
	maxMessageBytes int64
}

// NewBackend 创建 SMTP 后端。
func NewBackend(pipeline *ingest.Pipeline, logger *zap.Logger, limiter *ConnectionLimiter, maxMessageBytes int64) *Backend {
	return &Backend{
		pipeline:        pipeline,
		logger:          logger,
		limiter:         limiter,
		maxMessageBytes: maxMessageBytes,
	}
}

// NewSession 为新连接创建会话。
func (b *Backend) NewSession(conn *gosmtp.Conn) (gosmtp.Session, error) {
	if b.limiter != nil && !b.limiter.Acquire() {
		b.logger.Warn("connection rejected by limiter",
			zap.String("remote", conn.Conn().RemoteAddr().String()),
		)
		return nil, errTooManyConns
	}

	return &Session{
		backend: b,
		intake:  b.pipeline.NewIntake(),
		remote:  conn.Conn().RemoteAddr().String(),
	}, nil
}

// Session 单个 SMTP 连接的会话状态。
//
// MAIL/RCPT 阶段一律放行：受理与否取决于解析后的信头，在 DATA
// 阶段统一裁决，与信封上的地址无关。
type Session struct {
	backend *Backend
	intake  *ingest.Intake
	remote  string
}

// AuthPlain 接受任意凭证。收信端不做发件认证。
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail 处理 MAIL FROM 命令。
func (s *Session) Mail(from string, opts *gosmtp.MailOptions) error {
	return nil
}

// Rcpt 处理 RCPT TO 命令。
func (s *Session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	return nil
}

// Data 接收并处理邮件数据。
func (s *Session) Data(r io.Reader) error {
	// 多读一个字节用于判定超限：截断入库会丢失原文，必须整封拒收
	raw, err := io.ReadAll(io.LimitReader(r, s.backend.maxMessageBytes+1))
	if err != nil {
		s.backend.logger.Warn("read message failed",
			zap.String("remote", s.remote),
			zap.Error(err),
		)
		return errBadContent
	}
	if int64(len(raw)) > s.backend.maxMessageBytes {
		s.backend.logger.Warn("message too large",
			zap.String("remote", s.remote),
			zap.Int64("limit", s.backend.maxMessageBytes),
		)
		return errTooLarge
	}

	msg, err := mailparse.Parse(raw)
	if err != nil {
		s.backend.logger.Warn("parse message failed",
			zap.String("remote", s.remote),
			zap.Error(err),
		)
		return errBadContent
	}

	if err := s.intake.Process(raw, msg); err != nil {
		switch {
		case errors.Is(err, ingest.ErrRejected):
			s.backend.logger.Info("message blocked",
				zap.String("remote", s.remote),
				zap.String("subject", msg.Subject),
			)
			return errBlocked
		case errors.Is(err, ingest.ErrInvalidEncoding):
			s.backend.logger.Warn("message encoding rejected",
				zap.String("remote", s.remote),
				zap.String("subject", msg.Subject),
			)
			return errBadContent
		default:
			s.backend.logger.Warn("process message failed",
				zap.String("remote", s.remote),
				zap.Error(err),
			)
			return errBadContent
		}
	}

	return nil
}

// Reset 重置会话状态。
func (s *Session) Reset() {}

// Logout 会话结束时归还流水线入口与连接许可。
func (s *Session) Logout() error {
	s.intake.Close()
	if s.backend.limiter != nil {
		s.backend.limiter.Release()
	}
	return nil
}
