package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultRole はroleクレームを持たないトークンに割り当てるロール。
	DefaultRole = "USER"
	// RoleAdmin は管理者ロール。
	RoleAdmin = "ADMIN"
)

// ErrInvalidToken はトークンが利用できないことを表す。
// 原因はerrors.Unwrapで辿れるが、制御フローでは区別しない。
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims は検証済みトークンから取り出したクレーム。
// Codec.Verify以外で生成してはならない。
type Claims struct {
	// Subject はユーザー名。
	Subject string
	// Role はユーザーのロール。
	Role string
	// IssuedAt は発行時刻。iatが無い場合はゼロ値。
	IssuedAt time.Time
	// ExpiresAt は有効期限。
	ExpiresAt time.Time
}

// tokenClaims はJWTペイロードの形。
// roleは文字列以外が入っていてもパースを失敗させないためanyで受ける。
type tokenClaims struct {
	jwt.RegisteredClaims
	Role any `json:"role,omitempty"`
}

// Codec はHMAC署名されたトークンを検証する。
// 生成後は読み取り専用で、複数のゴルーチンから同時に使える。
type Codec struct {
	key    []byte
	parser *jwt.Parser
}

// Option はCodecの設定を変更する。
type Option func(*codecOptions)

type codecOptions struct {
	now func() time.Time
}

// WithClock は有効期限の判定に使う時計を差し替える。
func WithClock(now func() time.Time) Option {
	return func(o *codecOptions) {
		o.now = now
	}
}

// NewCodec は共有シークレットからCodecを生成する。
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("JWTシークレットが空です")
	}
	o := codecOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Codec{
		key: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{
				jwt.SigningMethodHS256.Alg(),
				jwt.SigningMethodHS384.Alg(),
				jwt.SigningMethodHS512.Alg(),
			}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(o.now),
		),
	}, nil
}

// Verify はトークンを検証してクレームを返す。
// 失敗時のエラーは必ずErrInvalidTokenをラップしており、パニックも同様に扱う。
func (c *Codec) Verify(raw string) (claims Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims = Claims{}
			err = fmt.Errorf("%w: トークン検証中にパニック: %v", ErrInvalidToken, r)
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return Claims{}, fmt.Errorf("%w: トークンが空です", ErrInvalidToken)
	}

	tc := &tokenClaims{}
	if _, err := c.parser.ParseWithClaims(raw, tc, c.keyFunc); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(tc.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: subjectクレームがありません", ErrInvalidToken)
	}

	claims = Claims{
		Subject:   tc.Subject,
		Role:      roleOf(tc.Role),
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}

func (c *Codec) keyFunc(_ *jwt.Token) (any, error) {
	return c.key, nil
}

// Reason はログ出力用に検証失敗の原因を分類する。
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	default:
		return "invalid"
	}
}

// roleOf はroleクレームの値を正規化する。空や文字列以外はDefaultRoleとみなす。
func roleOf(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return DefaultRole
	}
	return s
}

// Issue はHS256で署名したトークンを生成する。
// roleが空の場合はroleクレームを含めない。開発用CLIとテストで使用する。
func Issue(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if role != "" {
		tc.Role = role
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}
