package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/apigateway/internal/config"
	"github.com/nao1215/apigateway/internal/pipeline"
	"github.com/nao1215/apigateway/internal/route"
	"github.com/nao1215/apigateway/pkg/cors"
	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/nao1215/apigateway/pkg/middleware"
	"github.com/nao1215/apigateway/pkg/telemetry"
	"github.com/nao1215/apigateway/pkg/token"
)

// Server はAPI GatewayのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// serviceName はヘルスチェックとトレースに使うサービス名。
	serviceName string
	// pipeline はリクエストの評価を行う。
	pipeline *pipeline.Pipeline
	// forwarder はバックエンドへの転送を行う。
	forwarder *httpclient.Forwarder
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout time.Duration
	// logger は診断ログの出力先。
	logger *slog.Logger
	// now は現在時刻を返す。
	now func() time.Time
}

// Option はServerの任意設定。
type Option func(*Server)

// WithLogger は診断ログの出力先を設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer は設定から新しいGatewayサーバーを生成する。
func NewServer(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		port:            cfg.Port,
		serviceName:     cfg.ServiceName,
		forwarder:       httpclient.New(cfg.ForwardTimeout),
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("トークン検証器の初期化に失敗: %w", err)
	}
	enforcer, err := cors.NewEnforcer(cfg.CORS)
	if err != nil {
		return nil, fmt.Errorf("CORSポリシーの初期化に失敗: %w", err)
	}
	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("ルートテーブルの初期化に失敗: %w", err)
	}
	classifier := route.NewClassifier(cfg.PublicPaths)
	s.pipeline, err = pipeline.New(pipeline.Options{
		Routes:     table,
		Classifier: classifier,
		CORS:       enforcer,
		Verifier:   codec,
		Logger:     s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("パイプラインの初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery(s.logger))
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	// ルートはすべてパイプラインで解決するため、Gin側には登録しない
	router.NoRoute(s.handleGateway())
	s.router = router

	for _, r := range table.Rules() {
		s.logger.Info("ルートを登録しました", "id", r.ID, "patterns", r.Patterns, "target", r.Target,
			"requires_auth", r.RequiresAuth, "admin_only", r.AdminOnly)
	}
	s.logger.Info("公開パスを設定しました", "paths", classifier.PublicPaths())
	return s, nil
}

// Handler はトレース計装済みのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return telemetry.HTTPMiddleware(s.serviceName, s.router)
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("ポート %s のリッスンに失敗: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve はlnでリクエストを受け付ける。ctxがキャンセルされると処理中の
// リクエストの完了を待ってから戻る。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Gatewayサービスを起動しました", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Gatewayサービスを停止します")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	return nil
}
