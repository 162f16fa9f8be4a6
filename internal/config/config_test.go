package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MAILLIST_SERVER_HOST",
		"MAILLIST_SERVER_PORT",
		"MAILLIST_SMTP_BIND_ADDR",
		"MAILLIST_SMTP_DOMAIN",
		"MAILLIST_SMTP_MAX_MESSAGE_BYTES",
		"MAILLIST_WEB_DOMAIN",
		"MAILLIST_WEB_PER_PAGE",
		"MAILLIST_WEB_AUTH_USERNAME",
		"MAILLIST_WEB_AUTH_PASSWORD",
		"MAILLIST_INGEST_QUEUE_SIZE",
		"MAILLIST_LOG_LEVEL",
		"MAILLIST_LOG_DEVELOPMENT",
		"MAILLIST_DATABASE_TYPE",
		"MAILLIST_REDIS_ENABLED",
		"MAILLIST_RULES",
		"MAILLIST_RULES_FILE",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	clearEnv := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, ":10000", cfg.SMTP.BindAddr)
		assert.Equal(t, "example.com", cfg.SMTP.Domain)
		assert.Equal(t, int64(10*1024*1024), cfg.SMTP.MaxMessageBytes)
		assert.Equal(t, "example.com", cfg.Web.Domain) // 回落到 SMTP 域名
		assert.Equal(t, 10, cfg.Web.PerPage)
		assert.Equal(t, 0, cfg.Ingest.QueueSize)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Empty(t, cfg.Database.Type)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
		assert.Empty(t, cfg.RulesJSON)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv()
		os.Setenv("MAILLIST_SERVER_PORT", "9090")
		os.Setenv("MAILLIST_SMTP_DOMAIN", "mail.example.org")
		os.Setenv("MAILLIST_WEB_DOMAIN", "rss.example.org")
		os.Setenv("MAILLIST_WEB_PER_PAGE", "25")
		os.Setenv("MAILLIST_INGEST_QUEUE_SIZE", "128")
		os.Setenv("MAILLIST_RULES", `[{"to_box":"news","filter":[{"type":"ByFrom","params":"a@b.c"}]}]`)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "mail.example.org", cfg.SMTP.Domain)
		assert.Equal(t, "rss.example.org", cfg.Web.Domain)
		assert.Equal(t, 25, cfg.Web.PerPage)
		assert.Equal(t, 128, cfg.Ingest.QueueSize)
		assert.Contains(t, cfg.RulesJSON, "news")
	})

	t.Run("认证凭证必须成对设置", func(t *testing.T) {
		clearEnv()
		os.Setenv("MAILLIST_WEB_AUTH_USERNAME", "admin")

		_, err := Load()
		assert.Error(t, err)

		os.Setenv("MAILLIST_WEB_AUTH_PASSWORD", "secret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "admin", cfg.Web.AuthUsername)
		assert.Equal(t, "secret", cfg.Web.AuthPassword)
	})

	t.Run("规则文件优先于内联规则", func(t *testing.T) {
		clearEnv()
		path := filepath.Join(t.TempDir(), "rules.json")
		content := `[{"to_box":"ops","filter":[{"type":"ByTo","params":"ops@corp.example"}]}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		os.Setenv("MAILLIST_RULES", `[{"to_box":"inline","filter":[{"type":"ByFrom","params":"x@y.z"}]}]`)
		os.Setenv("MAILLIST_RULES_FILE", path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, content, cfg.RulesJSON)
		assert.NoError(t, cfg.RulesFileError)
	})

	t.Run("规则文件读取失败只降级不报错", func(t *testing.T) {
		clearEnv()
		os.Setenv("MAILLIST_RULES_FILE", filepath.Join(t.TempDir(), "missing.json"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.RulesJSON)
		assert.Error(t, cfg.RulesFileError)
	})
}
