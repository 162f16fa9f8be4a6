package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth 对整个读侧 API 做 HTTP Basic Auth。
//
// 配置的密码以 "$2" 开头时按 bcrypt 哈希比对，否则做常数时间
// 明文比对。凭证未配置时不要挂载本中间件。
func BasicAuth(username, password string) gin.HandlerFunc {
	hashed := strings.HasPrefix(password, "$2")

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !userMatches(user, username) || !passwordMatches(pass, password, hashed) {
			c.Header("WWW-Authenticate", `Basic realm="mail-list-rss"`)
			c.AbortWithStatus(401)
			return
		}
		c.Next()
	}
}

func userMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func passwordMatches(got, want string, hashed bool) bool {
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(want), []byte(got)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
