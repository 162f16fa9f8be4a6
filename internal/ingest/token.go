package ingest

import (
	"crypto/rand"
)

// feedIDLength 条目 ID 固定长度。ID 同时作为永久链接 slug，
// 碰撞概率按可忽略处理，不做唯一性兜底。
const feedIDLength = 10

// idAlphabet URL 安全字符集，64 个字符，字节取模不产生偏差。
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// newFeedID 生成定长 URL 安全随机令牌，使用加密强随机源。
func newFeedID() string {
	buf := make([]byte, feedIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败说明系统随机源不可用，无法继续
		panic("ingest: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)&(len(idAlphabet)-1)]
	}
	return string(buf)
}
