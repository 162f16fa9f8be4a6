package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/mailparse"
)

const (
	// UnknownTitle 主题缺失时的占位标题。
	UnknownTitle = "Unknown Title"
	// UnknownAuthor 发件人无法解析时的占位作者。
	UnknownAuthor = "Unknown"
)

// ErrInvalidEncoding 原始字节或 HTML 正文不是合法 UTF-8。
// 按数据质量问题记录并丢弃，不重试。
var ErrInvalidEncoding = errors.New("message content is not valid utf-8")

// BuildFeed 由原始字节、解析结果和已解析的目标邮箱构造条目。
//
// 标题与作者缺失只产生占位值，绝不失败；唯一的失败条件是编码非法。
// 前置条件：邮箱解析已经成功，fromBox 非空。
func BuildFeed(raw []byte, msg *mailparse.Message, fromBox string) (*domain.Feed, error) {
	if fromBox == "" {
		return nil, fmt.Errorf("build feed: empty from_box")
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("build feed: raw message: %w", ErrInvalidEncoding)
	}

	content := bytes.Join(msg.HTMLParts, nil)
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("build feed: html content: %w", ErrInvalidEncoding)
	}

	title := msg.Subject
	if title == "" {
		title = UnknownTitle
	}

	return &domain.Feed{
		ID:        newFeedID(),
		CreatedAt: time.Now().UTC(),
		Title:     title,
		Author:    formatAuthor(msg.From),
		Content:   string(content),
		Raw:       string(raw),
		FromBox:   fromBox,
	}, nil
}

// formatAuthor 由发件人头部推导作者串。
// 只有单地址形态参与推导："地址 (显示名)"、仅显示名、仅地址，
// 其余形态一律落到占位值。
func formatAuthor(from mailparse.HeaderValue) string {
	if from.Kind != mailparse.KindAddress {
		return UnknownAuthor
	}
	addr := from.Address
	switch {
	case addr.Addr != "" && addr.Name != "":
		return fmt.Sprintf("%s (%s)", addr.Addr, addr.Name)
	case addr.Addr == "" && addr.Name != "":
		return addr.Name
	case addr.Addr != "":
		return addr.Addr
	default:
		return UnknownAuthor
	}
}
