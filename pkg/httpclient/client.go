package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/apigateway/pkg/telemetry"
)

// DefaultTimeout は転送1回あたりの既定のタイムアウト。
const DefaultTimeout = 30 * time.Second

// hopByHopHeaders は転送時に取り除くヘッダー（RFC 9110 7.6.1）。
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder はバックエンドへリクエストを転送するHTTPクライアント。
// 複数のゴルーチンから同時に使用できる。
type Forwarder struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
}

// New は新しいForwarderを生成する。timeoutが0以下の場合はDefaultTimeoutを使う。
func New(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Forwarder{httpClient: telemetry.InstrumentClient(client)}
}

// Outbound はバックエンドへ送るリクエスト。
type Outbound struct {
	// Method はHTTPメソッド。
	Method string
	// Target は転送先のベースURL（例: "http://user-service:8081"）。
	Target string
	// Path は受信したリクエストパス。Targetのパスの後ろに連結する。
	Path string
	// RawQuery はクエリ文字列。
	RawQuery string
	// Header は転送するヘッダー。Doの中でコピーしてから加工する。
	Header http.Header
	// Body はリクエストボディ。nilの場合はボディなし。
	Body io.Reader
	// ContentLength はボディの長さ。不明な場合は-1。
	ContentLength int64
	// RemoteAddr はクライアントのアドレス（host:port）。X-Forwarded-Forに追記する。
	RemoteAddr string
	// Host はクライアントが指定したHost。X-Forwarded-Hostに設定する。
	Host string
	// TLS はクライアント接続がTLSかどうか。X-Forwarded-Protoに反映する。
	TLS bool
}

// Do はリクエストをバックエンドへ送信する。
// 成功時は呼び出し側がレスポンスボディを閉じる必要がある。
func (f *Forwarder) Do(ctx context.Context, out Outbound) (*http.Response, error) {
	u, err := targetURL(out.Target, out.Path, out.RawQuery)
	if err != nil {
		return nil, err
	}

	body := out.Body
	if body == nil || out.ContentLength == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, out.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("転送リクエストの作成に失敗: %w", err)
	}
	if body != http.NoBody {
		req.ContentLength = out.ContentLength
	}

	req.Header = out.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	RemoveHopByHop(req.Header)
	setForwarded(req.Header, out)
	if _, ok := req.Header["User-Agent"]; !ok {
		// net/httpの既定User-Agentを付けない
		req.Header.Set("User-Agent", "")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("バックエンドへの転送に失敗: %w", err)
	}
	return resp, nil
}

// IsTimeout はerrがタイムアウトによるものかを判定する。
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RemoveHopByHop はhからホップバイホップヘッダーを取り除く。
// Connectionヘッダーに列挙されたヘッダーも対象とする。
func RemoveHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

func setForwarded(h http.Header, out Outbound) {
	if ip, _, err := net.SplitHostPort(out.RemoteAddr); err == nil {
		if prior := h.Values("X-Forwarded-For"); len(prior) > 0 {
			ip = strings.Join(prior, ", ") + ", " + ip
		}
		h.Set("X-Forwarded-For", ip)
	}
	if out.Host != "" {
		h.Set("X-Forwarded-Host", out.Host)
	}
	proto := "http"
	if out.TLS {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
}

// targetURL はベースURLに受信パスとクエリを連結する。
func targetURL(target, path, rawQuery string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("転送先URL %q のパースに失敗: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("転送先URL %q が不正です", target)
	}
	u.Path = joinPath(u.Path, path)
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u, nil
}

func joinPath(base, path string) string {
	switch {
	case base == "" || base == "/":
		if path == "" {
			return "/"
		}
		return path
	case path == "":
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
