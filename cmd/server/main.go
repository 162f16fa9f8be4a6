package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outloudvi/mail-list-rss/internal/config"
	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/health"
	"github.com/outloudvi/mail-list-rss/internal/ingest"
	"github.com/outloudvi/mail-list-rss/internal/logger"
	"github.com/outloudvi/mail-list-rss/internal/monitoring"
	"github.com/outloudvi/mail-list-rss/internal/smtp"
	"github.com/outloudvi/mail-list-rss/internal/storage"
	"github.com/outloudvi/mail-list-rss/internal/storage/memory"
	redisstore "github.com/outloudvi/mail-list-rss/internal/storage/redis"
	sqlstore "github.com/outloudvi/mail-list-rss/internal/storage/sql"
	httptransport "github.com/outloudvi/mail-list-rss/internal/transport/http"
	"github.com/outloudvi/mail-list-rss/internal/websocket"
)

// main 启动同时包含 SMTP 收信与 HTTP 读侧的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting mail-list-rss server",
		zap.String("domain", cfg.SMTP.Domain),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.FeedRepository
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(cfg.Database.Type, cfg.Database.DSN, sqlstore.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 初始化 Redis 读侧缓存（可选）
	var cache *redisstore.Cache
	if cfg.Redis.Enabled {
		cache, err = redisstore.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			log.Warn("failed to connect to redis, continuing without cache", zap.Error(err))
			cache = nil
		} else {
			log.Info("redis cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewChecker(store, log)
	if cache != nil {
		healthChecker.AddCheck("redis", cache)
	}

	// 装配路由规则表；解析失败降级为空表，域名检查仍然生效
	var rules []domain.Rule
	if cfg.RulesFileError != nil {
		log.Warn("failed to read rules file, continuing with empty rules", zap.Error(cfg.RulesFileError))
	} else if cfg.RulesJSON != "" {
		rules, err = domain.ParseRules([]byte(cfg.RulesJSON))
		if err != nil {
			log.Warn("failed to parse rules, continuing with empty rules", zap.Error(err))
			rules = nil
		} else {
			log.Info("routing rules loaded", zap.Int("count", len(rules)))
		}
	}

	// 装配入库流水线：队列、伺服与 SMTP 入口
	queue := ingest.NewQueue(cfg.Ingest.QueueSize)
	pipeline := ingest.NewPipeline(cfg.SMTP.Domain, rules, queue, log)
	pipeline.SetMetrics(metrics)

	// 根生产者句柄：关闭它代表收信侧不再产出
	rootIntake := pipeline.NewIntake()

	servo := ingest.NewServo(queue, store, log)
	servo.SetMetrics(metrics)

	// 创建 WebSocket Hub 并接入入库通知
	wsHub := websocket.NewHub(nil, log)
	servo.SetNotifier(wsHub)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:       cfg,
		Store:        store,
		Cache:        cache,
		Metrics:      metrics,
		Health:       healthChecker,
		WebSocketHub: wsHub,
		Logger:       log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 创建 SMTP 服务器
	limiter := smtp.NewConnectionLimiter(cfg.SMTP.MaxConnections, cfg.SMTP.MaxConnRate)
	smtpBackend := smtp.NewBackend(pipeline, log, limiter, cfg.SMTP.MaxMessageBytes)
	smtpServer := gosmtp.NewServer(smtpBackend)
	smtpServer.Addr = cfg.SMTP.BindAddr
	smtpServer.Domain = cfg.SMTP.Domain
	smtpServer.AllowInsecureAuth = true
	smtpServer.ReadTimeout = 10 * time.Second
	smtpServer.WriteTimeout = 10 * time.Second
	smtpServer.MaxMessageBytes = cfg.SMTP.MaxMessageBytes
	smtpServer.MaxRecipients = 50

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 伺服独立于信号运行：它的终止条件只有队列关闭一个，
	// 这样关停期间已入队的条目仍会被写完
	go servo.Run(context.Background())

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		// 先关 SMTP，停止新条目产出
		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 归还根生产者句柄：所有生产者退出后队列关闭，伺服排空后停机
		rootIntake.Close()
		select {
		case <-servo.Done():
			log.Info("servo drained")
		case <-time.After(10 * time.Second):
			log.Warn("servo drain timeout, exiting anyway")
		}

		if cache != nil {
			if err := cache.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
