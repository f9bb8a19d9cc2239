package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
)

// defaultServiceName はサービス名が空の場合に使う名前。
const defaultServiceName = "api-gateway"

// Config はトレーシングの設定。
type Config struct {
	// ServiceName はリソース属性service.nameの値。
	ServiceName string
	// Endpoint はOTLP/HTTPエクスポーターの送信先（host:port）。空の場合はエクスポートしない。
	Endpoint string
	// Headers はエクスポート時に付与するヘッダー。"k1=v1,k2=v2" 形式。
	Headers string
	// Timeout はエクスポートのタイムアウト。
	Timeout time.Duration
	// Insecure がtrueの場合はTLSを使わない。
	Insecure bool
	// Required がtrueの場合、エクスポーターの初期化失敗をエラーとして返す。
	Required bool
	// Sampler はサンプラー名（always_on, always_off, traceidratio, parentbased）。
	Sampler string
	// SamplerArg はサンプリング比率。
	SamplerArg string
}

// ShutdownFunc はトレーサープロバイダーを停止する関数。
type ShutdownFunc func(context.Context) error

// Init はグローバルなトレーサープロバイダーとプロパゲーターを設定する。
// Endpointが空の場合はスパンを記録するがエクスポートはしない。
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = defaultServiceName
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
	))
	if err != nil {
		// スキーマURLの衝突時もサービス名だけは設定する
		res = resource.NewSchemaless(semconv.ServiceName(name))
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(parseSampler(cfg.Sampler, cfg.SamplerArg)),
	}

	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		exporter, err := newExporter(ctx, endpoint, cfg)
		switch {
		case err != nil && cfg.Required:
			return nil, fmt.Errorf("OTLPエクスポーターの初期化に失敗: %w", err)
		case err != nil:
			logger.Warn("OTLPエクスポーターを無効化しました", "endpoint", endpoint, "error", err)
		default:
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, endpoint string, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if headers := parseHeaders(cfg.Headers); len(headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}

// HTTPMiddleware は受信リクエストにスパンを作成するハンドラーを返す。
func HTTPMiddleware(serviceName string, next http.Handler) http.Handler {
	name := strings.TrimSpace(serviceName)
	if name == "" {
		name = defaultServiceName
	}
	return otelhttp.NewHandler(next, name)
}

// InstrumentClient はclientのTransportをトレース付きのものに差し替える。
// clientがnilの場合は新しいクライアントを生成する。
func InstrumentClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(base)
	return client
}

// parseSampler はサンプラー名と比率からSamplerを生成する。比率は0〜1に丸める。
func parseSampler(name, arg string) sdktrace.Sampler {
	ratio := 1.0
	if v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64); err == nil {
		ratio = min(max(v, 0), 1)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio)
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// parseHeaders は "k1=v1,k2=v2" 形式の文字列をマップにする。不正な要素は無視する。
func parseHeaders(raw string) map[string]string {
	var out map[string]string
	for part := range strings.SplitSeq(raw, ",") {
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
