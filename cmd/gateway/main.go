// API Gatewayサービスのエントリポイント。
// リクエストのルーティング、CORS、JWTによる認証・認可を担当する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/apigateway/internal/config"
	"github.com/nao1215/apigateway/internal/gateway"
	"github.com/nao1215/apigateway/pkg/telemetry"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		log.Fatalf("トレーシングの初期化に失敗: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("トレーシングの停止に失敗: %v", err)
		}
	}()

	server, err := gateway.NewServer(cfg, gateway.WithLogger(logger))
	if err != nil {
		log.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}

	log.Printf("Gatewayサービスを起動します: :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		log.Printf("Gatewayサービスの起動に失敗: %v", err)
		stop()
		os.Exit(1)
	}
}
