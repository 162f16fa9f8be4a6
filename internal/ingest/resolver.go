package ingest

import (
	"errors"
	"sort"
	"strings"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/mailparse"
)

// ErrRejected 消息不属于任何受理邮箱。这不是系统故障：
// 垃圾邮件和误投邮件走到这里属于预期，消息直接丢弃，不会入队。
var ErrRejected = errors.New("message does not target any accepted mailbox")

// ResolveMailbox 决定消息的目标邮箱。
//
// 先做域名检查：任一收件地址含有 "@"+domain 子串时，该完整地址
// 就是目标邮箱，并且优先于所有规则。这里刻意保留宽松的子串语义
// （"notfoo@example.com" 对 "example.com" 也算命中），不做结构化解析。
// 域名不中则按声明顺序扫描规则，取第一条命中规则的 to_box；
// 前面的规则遮蔽后面的。两步都落空返回 ErrRejected。
func ResolveMailbox(msg *mailparse.Message, serveDomain string, rules []domain.Rule) (string, error) {
	recipients := msg.To.Flatten()
	sort.Strings(recipients)

	suffix := "@" + serveDomain
	for _, addr := range recipients {
		if strings.Contains(addr, suffix) {
			return addr, nil
		}
	}

	senders := msg.From.Flatten()
	sort.Strings(senders)

	for _, rule := range rules {
		if rule.Matches(senders, recipients) {
			return rule.ToBox, nil
		}
	}

	return "", ErrRejected
}
