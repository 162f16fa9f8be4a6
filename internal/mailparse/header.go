package mailparse

import (
	"mime"
	"net/mail"
	"strings"
)

// Kind 标识头部值的结构形态。
type Kind int

const (
	// KindNone 头部缺失或无法识别。
	KindNone Kind = iota
	// KindAddress 单个地址。
	KindAddress
	// KindAddressList 地址列表。
	KindAddressList
	// KindGroup 地址组（RFC 5322 group）。
	KindGroup
	// KindGroupList 地址组列表。
	KindGroupList
	// KindText 自由文本。
	KindText
	// KindTextList 自由文本列表。
	KindTextList
)

// Address 单个邮件地址，显示名可为空。
type Address struct {
	Name string
	Addr string
}

// Group 一个命名的地址组。
type Group struct {
	Name    string
	Members []Address
}

// HeaderValue 是头部值的标签化变体：Kind 决定哪个字段有效。
type HeaderValue struct {
	Kind    Kind
	Address Address
	List    []Address
	Group   Group
	Groups  []Group
	Text    string
	Texts   []string
}

// Flatten 将任意形态的头部值展开为有序地址/文本串列表。
//
// 映射规则：单地址取地址部分（为空则产出空表）；地址列表逐项展开；
// 组展开其成员；组列表逐组展开；文本产出单元素；文本列表逐项产出；
// 其余形态产出空表。数据缺失永远表现为空表，不是错误。
func (v HeaderValue) Flatten() []string {
	switch v.Kind {
	case KindAddress:
		if v.Address.Addr == "" {
			return nil
		}
		return []string{v.Address.Addr}
	case KindAddressList:
		return flattenAddresses(v.List)
	case KindGroup:
		return flattenAddresses(v.Group.Members)
	case KindGroupList:
		var out []string
		for _, g := range v.Groups {
			out = append(out, flattenAddresses(g.Members)...)
		}
		return out
	case KindText:
		return []string{v.Text}
	case KindTextList:
		return append([]string(nil), v.Texts...)
	default:
		return nil
	}
}

func flattenAddresses(list []Address) []string {
	var out []string
	for _, a := range list {
		if a.Addr != "" {
			out = append(out, a.Addr)
		}
	}
	return out
}

// ParseHeaderValue 将原始头部值解析为标签化变体。
//
// 依次尝试：地址组、地址列表、自由文本。go 标准库的地址解析器会把
// 组语法静默展开成成员列表，所以组判定必须先行。解析永不失败，
// 无法识别的输入按自由文本处理。
func ParseHeaderValue(raw string) HeaderValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return HeaderValue{Kind: KindNone}
	}

	if groups, ok := parseGroups(trimmed); ok {
		if len(groups) == 1 {
			return HeaderValue{Kind: KindGroup, Group: groups[0]}
		}
		return HeaderValue{Kind: KindGroupList, Groups: groups}
	}

	if list, err := mail.ParseAddressList(trimmed); err == nil && len(list) > 0 {
		addrs := make([]Address, 0, len(list))
		for _, a := range list {
			addrs = append(addrs, Address{Name: a.Name, Addr: a.Address})
		}
		if len(addrs) == 1 {
			return HeaderValue{Kind: KindAddress, Address: addrs[0]}
		}
		return HeaderValue{Kind: KindAddressList, List: addrs}
	}

	return HeaderValue{Kind: KindText, Text: decodeWords(trimmed)}
}

// parseGroups 尝试按组语法解析：`Name: a@b, c@d;` 可重复多段。
// 每个分号结尾的段都必须带冒号命名，否则判定失败。
func parseGroups(raw string) ([]Group, bool) {
	if !strings.HasSuffix(strings.TrimSpace(raw), ";") {
		return nil, false
	}

	var groups []Group
	for _, seg := range strings.Split(raw, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		colon := strings.Index(seg, ":")
		if colon < 0 {
			return nil, false
		}
		// 冒号出现在地址里说明不是组语法
		if at := strings.Index(seg, "@"); at >= 0 && at < colon {
			return nil, false
		}
		g := Group{Name: decodeWords(strings.TrimSpace(seg[:colon]))}
		memberPart := strings.TrimSpace(seg[colon+1:])
		if memberPart != "" {
			members, err := mail.ParseAddressList(memberPart)
			if err != nil {
				return nil, false
			}
			for _, a := range members {
				g.Members = append(g.Members, Address{Name: a.Name, Addr: a.Address})
			}
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, false
	}
	return groups, true
}

// decodeWords 解码 RFC 2047 编码字（=?charset?...?=），失败时原样返回。
func decodeWords(value string) string {
	if value == "" || !strings.Contains(value, "=?") {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
