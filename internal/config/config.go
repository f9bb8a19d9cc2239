package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nao1215/apigateway/internal/route"
	"github.com/nao1215/apigateway/pkg/cors"
	"github.com/nao1215/apigateway/pkg/telemetry"
)

// DefaultJWTSecret はJWT_SECRETが未設定の場合に使う開発用の秘密鍵。
const DefaultJWTSecret = "dev-secret-key"

// Config はGatewayの設定。Loadで生成した後は変更しない。
type Config struct {
	// Port はリッスンポート。
	Port string
	// ServiceName はヘルスチェックとトレースに使うサービス名。
	ServiceName string
	// JWTSecret はBearerトークンの署名検証に使う秘密鍵。
	JWTSecret string
	// ForwardTimeout はバックエンドへの転送1回あたりのタイムアウト。
	ForwardTimeout time.Duration
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration
	// CORS はCORSポリシーの設定。
	CORS cors.Config
	// PublicPaths は認証を行わないパスの一覧。
	PublicPaths []string
	// Routes はルート定義。
	Routes []route.Rule
	// Telemetry はトレーシングの設定。
	Telemetry telemetry.Config
	// LogLevel は診断ログの出力レベル。
	LogLevel slog.Level
}

// ServiceURLs はバックエンドサービスのURL。
type ServiceURLs struct {
	User             string
	Subscription     string
	UserSubscription string
	Email            string
}

// Load は.envファイルと環境変数から設定を読み込む。
// ENV_FILEが指定された場合はそのファイルを必須とし、未指定の場合は.envが存在すれば読み込む。
func Load(logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv, logger)
}

func loadDotEnv(file string) error {
	if file != "" {
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("環境変数ファイル %s の読み込みに失敗: %w", file, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return nil
}

// FromEnv はgetenvから設定を組み立てる。
func FromEnv(getenv func(string) string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env := envReader(getenv)

	cfg := Config{
		Port:        env.or("PORT", "8080"),
		ServiceName: env.or("SERVICE_NAME", "api-gateway"),
		JWTSecret:   env.or("JWT_SECRET", DefaultJWTSecret),
		CORS:        cors.DefaultConfig(),
		PublicPaths: DefaultPublicPaths(),
	}
	if cfg.JWTSecret == DefaultJWTSecret {
		logger.Warn("JWT_SECRETが未設定のため開発用の秘密鍵を使用します")
	}

	var err error
	if cfg.ForwardTimeout, err = env.duration("FORWARD_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = env.duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	if v := env.list("CORS_ALLOWED_ORIGINS"); v != nil {
		cfg.CORS.AllowedOrigins = v
	}
	cfg.CORS.DefaultOrigin = env.or("CORS_DEFAULT_ORIGIN", cfg.CORS.DefaultOrigin)
	if cfg.CORS.MaxAge, err = env.duration("CORS_MAX_AGE", cfg.CORS.MaxAge); err != nil {
		return Config{}, err
	}

	if v := env.list("GATEWAY_PUBLIC_PATHS"); v != nil {
		cfg.PublicPaths = v
	}

	if file := env.get("ROUTES_FILE"); file != "" {
		if cfg.Routes, err = LoadRoutesFile(file); err != nil {
			return Config{}, err
		}
	} else {
		cfg.Routes = DefaultRoutes(ServiceURLs{
			User:             env.or("USER_SERVICE_URL", "http://localhost:8081"),
			Subscription:     env.or("SUBSCRIPTION_SERVICE_URL", "http://localhost:8082"),
			UserSubscription: env.or("USER_SUBSCRIPTION_SERVICE_URL", "http://localhost:8083"),
			Email:            env.or("EMAIL_SERVICE_URL", "http://localhost:8084"),
		})
	}

	if cfg.Telemetry, err = telemetryFromEnv(env, cfg.ServiceName); err != nil {
		return Config{}, err
	}
	if v := env.get("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL の値 %q が不正です: %w", v, err)
		}
	}
	return cfg, nil
}

// DefaultPublicPaths は認証を行わない既定のパスを返す。
// "/" はルート文書のみ、それ以外は前方一致で判定される。
func DefaultPublicPaths() []string {
	return []string{
		"/",
		"/index.html",
		"/static/",
		"/css/",
		"/js/",
		"/images/",
		"/favicon.ico",
		"/api/auth/login",
		"/api/auth/register",
		"/api/auth/refresh",
		"/api/subscriptions/available",
		"/actuator/health",
		"/api/health",
		"/health",
	}
}

// HealthPath はGateway自身が応答するヘルスチェックのパス。
const HealthPath = "/actuator/health"

// DefaultRoutes は既定のルート定義を返す。
func DefaultRoutes(urls ServiceURLs) []route.Rule {
	local := route.ForwardScheme + HealthPath
	return []route.Rule{
		{ID: "auth-service", Patterns: []string{"/api/auth/**"}, Target: urls.User},
		{ID: "user-service", Patterns: []string{"/api/users/**"}, Target: urls.User, RequiresAuth: true},
		{ID: "admin-service", Patterns: []string{"/api/admin/**"}, Target: urls.User, RequiresAuth: true, AdminOnly: true},
		{ID: "subscription-service", Patterns: []string{"/api/subscriptions/**"}, Target: urls.Subscription, RequiresAuth: true},
		{ID: "user-subscription-service", Patterns: []string{"/api/user-subscriptions/**"}, Target: urls.UserSubscription, RequiresAuth: true},
		{ID: "email-service", Patterns: []string{"/api/email/**"}, Target: urls.Email, RequiresAuth: true},
		{ID: "gateway-health", Patterns: []string{"/", "/health", "/api/health", HealthPath}, Target: local},
		{ID: "fallback", Patterns: []string{"/fallback"}, Target: local},
	}
}

func telemetryFromEnv(env envReader, serviceName string) (telemetry.Config, error) {
	timeout, err := env.duration("OTEL_EXPORTER_OTLP_TIMEOUT", 5*time.Second)
	if err != nil {
		return telemetry.Config{}, err
	}
	insecure, err := env.flag("OTEL_EXPORTER_OTLP_INSECURE")
	if err != nil {
		return telemetry.Config{}, err
	}
	required, err := env.flag("OTEL_REQUIRED")
	if err != nil {
		return telemetry.Config{}, err
	}
	return telemetry.Config{
		ServiceName: env.or("OTEL_SERVICE_NAME", serviceName),
		Endpoint:    env.get("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Headers:     env.get("OTEL_EXPORTER_OTLP_HEADERS"),
		Timeout:     timeout,
		Insecure:    insecure,
		Required:    required,
		Sampler:     env.get("OTEL_TRACES_SAMPLER"),
		SamplerArg:  env.get("OTEL_TRACES_SAMPLER_ARG"),
	}, nil
}

// envReader は環境変数を読み取る関数。値の前後の空白は取り除く。
type envReader func(string) string

func (e envReader) get(key string) string {
	return strings.TrimSpace(e(key))
}

// or は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func (e envReader) or(key, defaultValue string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return defaultValue
}

// list はカンマ区切りの値を返す。未設定の場合はnil。
func (e envReader) list(key string) []string {
	v := e.get(key)
	if v == "" {
		return nil
	}
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// duration は "30s" 形式または秒数の値を返す。
func (e envReader) duration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := e.get(key)
	if v == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		v = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s の値 %q が不正です: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s に負の値は指定できません: %q", key, v)
	}
	return d, nil
}

func (e envReader) flag(key string) (bool, error) {
	v := e.get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s の値 %q が不正です: %w", key, v, err)
	}
	return b, nil
}
