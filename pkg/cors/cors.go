package cors

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// レスポンスヘッダー名。
const (
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderMaxAge           = "Access-Control-Max-Age"
)

// Config はCORSポリシーの設定。
type Config struct {
	// AllowedOrigins は許可するオリジン。"*" を含むものはパターンとして扱う（例: "http://localhost:*"）。
	AllowedOrigins []string
	// DefaultOrigin は許可リストに一致しない場合に返すオリジン。
	DefaultOrigin string
	// AllowedMethods はAccess-Control-Allow-Methodsに列挙するメソッド。
	AllowedMethods []string
	// AllowedHeaders はAccess-Control-Allow-Headersに列挙するヘッダー。
	AllowedHeaders []string
	// ExposedHeaders はAccess-Control-Expose-Headersに列挙するヘッダー。
	ExposedHeaders []string
	// MaxAge はプリフライト結果のキャッシュ期間。
	MaxAge time.Duration
}

// DefaultConfig は既定のCORS設定を返す。
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://localhost:4200",
		},
		DefaultOrigin: "http://localhost:3000",
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodPatch,
		},
		AllowedHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-User-Id",
			"X-User-Role",
		},
		ExposedHeaders: []string{"Authorization", "X-User-Id"},
		MaxAge:         time.Hour,
	}
}

// Enforcer はCORSヘッダーを計算する。生成後は読み取り専用。
type Enforcer struct {
	exact         map[string]struct{}
	patterns      []string
	defaultOrigin string
	methods       string
	headers       string
	exposed       string
	maxAge        string
}

// NewEnforcer は設定からEnforcerを生成する。
func NewEnforcer(cfg Config) (*Enforcer, error) {
	if strings.TrimSpace(cfg.DefaultOrigin) == "" {
		return nil, errors.New("CORSの既定オリジンが空です")
	}
	if len(cfg.AllowedMethods) == 0 {
		return nil, errors.New("CORSの許可メソッドが空です")
	}
	if cfg.MaxAge < 0 {
		return nil, errors.New("CORSのMaxAgeが負の値です")
	}

	e := &Enforcer{
		exact:         make(map[string]struct{}, len(cfg.AllowedOrigins)),
		defaultOrigin: cfg.DefaultOrigin,
		methods:       strings.Join(cfg.AllowedMethods, ","),
		headers:       strings.Join(cfg.AllowedHeaders, ", "),
		exposed:       strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:        strconv.FormatInt(int64(cfg.MaxAge/time.Second), 10),
	}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case strings.Contains(o, "*"):
			e.patterns = append(e.patterns, o)
		default:
			e.exact[o] = struct{}{}
		}
	}
	return e, nil
}

// AllowOrigin はAccess-Control-Allow-Originに返すオリジンを決める。
func (e *Enforcer) AllowOrigin(origin string) string {
	if origin == "" {
		return e.defaultOrigin
	}
	if _, ok := e.exact[origin]; ok {
		return origin
	}
	for _, p := range e.patterns {
		if matchGlob(p, origin) {
			return origin
		}
	}
	return e.defaultOrigin
}

// Headers はoriginに対するCORSレスポンスヘッダーを新しく生成して返す。
func (e *Enforcer) Headers(origin string) http.Header {
	h := make(http.Header, 7)
	h.Set(HeaderAllowOrigin, e.AllowOrigin(origin))
	h.Set(HeaderAllowMethods, e.methods)
	if e.headers != "" {
		h.Set(HeaderAllowHeaders, e.headers)
	}
	if e.exposed != "" {
		h.Set(HeaderExposeHeaders, e.exposed)
	}
	h.Set(HeaderAllowCredentials, "true")
	h.Set(HeaderMaxAge, e.maxAge)
	h.Set("Vary", "Origin")
	return h
}

// IsPreflight はmethodがプリフライトリクエストかを判定する。
func IsPreflight(method string) bool {
	return method == http.MethodOptions
}

// IsCORSHeader はnameがこのパッケージの管理するレスポンスヘッダーかを判定する。
// バックエンドが返した同名ヘッダーを取り除くために使う。
func IsCORSHeader(name string) bool {
	return strings.HasPrefix(http.CanonicalHeaderKey(name), "Access-Control-")
}

// matchGlob は "*" を任意の文字列として扱うパターン照合を行う。
func matchGlob(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(s, mid)
		if i < 0 {
			return false
		}
		s = s[i+len(mid):]
	}
	return len(s) >= len(last) && strings.HasSuffix(s, last)
}
