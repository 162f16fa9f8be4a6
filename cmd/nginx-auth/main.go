package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/logger"
)

// nginx 邮件代理的认证端点。对所有探询返回同一份静态应答，
// 把连接转发到固定的后端 SMTP 服务。
func main() {
	viper.SetEnvPrefix("maillist")
	viper.AutomaticEnv()
	viper.SetDefault("auth_listen", ":8081")
	viper.SetDefault("auth_server", "127.0.0.1")
	viper.SetDefault("auth_port", "10000")

	log := logger.NewDevelopmentLogger()
	defer log.Sync()

	listenOn := viper.GetString("auth_listen")
	authServer := viper.GetString("auth_server")
	authPort := viper.GetString("auth_port")

	response := fmt.Sprintf(
		"HTTP/1.0 200 OK\r\nAuth-Status: OK\r\nAuth-Server: %s\r\nAuth-Port: %s\r\n\r\n",
		authServer, authPort,
	)

	ln, err := net.Listen("tcp", listenOn)
	if err != nil {
		log.Fatal("failed to listen", zap.String("address", listenOn), zap.Error(err))
	}

	log.Info("starting nginx auth responder",
		zap.String("address", listenOn),
		zap.String("auth_server", authServer),
		zap.String("auth_port", authPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept failed", zap.Error(err))
			continue
		}

		go func(conn net.Conn) {
			defer conn.Close()
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if _, err := conn.Write([]byte(response)); err != nil {
				log.Warn("write response failed",
					zap.String("remote", conn.RemoteAddr().String()),
					zap.Error(err),
				)
			}
		}(conn)
	}
}
