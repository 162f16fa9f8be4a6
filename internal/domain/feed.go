package domain

import (
	"time"
)

// Feed 表示一封已入库的邮件条目。
//
// ID 既是存储主键，也是对外的永久链接 slug（10 位 URL 安全随机令牌），
// 在构造时生成且不可变更。条目一经创建不再修改。
type Feed struct {
	ID        string    `gorm:"primaryKey;size:16" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Title     string    `gorm:"size:998" json:"title"`
	Author    string    `gorm:"size:512" json:"author"`
	Content   string    `gorm:"type:text" json:"content"`
	Raw       string    `gorm:"type:text" json:"raw"`
	FromBox   string    `gorm:"index;size:255" json:"from_box"`
}

// FeedSummary 列表接口返回的条目摘要。
type FeedSummary struct {
	Title    string `json:"title"`
	CreateAt string `json:"create_at"`
	ID       string `json:"id"`
}

// FeedList 列表接口的响应载荷。
type FeedList struct {
	Items []FeedSummary `json:"items"`
}

// Summary 生成条目摘要，时间采用 RFC 2822 格式。
func (f *Feed) Summary() FeedSummary {
	return FeedSummary{
		Title:    f.Title,
		CreateAt: f.CreatedAt.Format(time.RFC1123Z),
		ID:       f.ID,
	}
}
