package domain

import (
	"encoding/json"
	"fmt"
)

// FilterType 过滤器类型。
type FilterType string

const (
	// FilterByFrom 按发件人地址匹配。
	FilterByFrom FilterType = "ByFrom"
	// FilterByTo 按收件人地址匹配。
	FilterByTo FilterType = "ByTo"
)

// Filter 表示一条地址匹配谓词。
//
// JSON 形式沿用配置的 tag/content 风格：
//
//	{"type": "ByFrom", "params": "alerts@vendor.com"}
type Filter struct {
	Type    FilterType `json:"type"`
	Address string     `json:"params"`
}

// Matches 判断谓词是否命中。from/to 是消息头展开后的地址列表，
// 要求精确相等，不做大小写或子串处理。
func (f Filter) Matches(from, to []string) bool {
	var list []string
	switch f.Type {
	case FilterByFrom:
		list = from
	case FilterByTo:
		list = to
	default:
		return false
	}
	for _, addr := range list {
		if addr == f.Address {
			return true
		}
	}
	return false
}

// Rule 表示一条路由规则：命中任意一个谓词即投递到 ToBox。
type Rule struct {
	ToBox  string   `json:"to_box"`
	Filter []Filter `json:"filter"`
}

// Matches 判断规则是否命中（谓词之间为逻辑或）。
func (r Rule) Matches(from, to []string) bool {
	for _, f := range r.Filter {
		if f.Matches(from, to) {
			return true
		}
	}
	return false
}

// ParseRules 解析规则配置（JSON 数组）。
//
// 规则顺序即声明顺序，解析后保持不变；配置非法时返回错误，
// 由调用方降级为空规则表并记录告警，绝不让进程启动失败。
func ParseRules(data []byte) ([]Rule, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	for i, r := range rules {
		if r.ToBox == "" {
			return nil, fmt.Errorf("parse rules: rule %d has no to_box", i)
		}
		if len(r.Filter) == 0 {
			return nil, fmt.Errorf("parse rules: rule %d (%s) has an empty filter list", i, r.ToBox)
		}
		for _, f := range r.Filter {
			if f.Type != FilterByFrom && f.Type != FilterByTo {
				return nil, fmt.Errorf("parse rules: rule %d (%s) has unknown filter type %q", i, r.ToBox, f.Type)
			}
		}
	}
	return rules, nil
}
