package pipeline

import (
	"log/slog"
	"strings"

	"github.com/nao1215/apigateway/internal/route"
	"github.com/nao1215/apigateway/pkg/token"
)

// bearerPrefix はAuthorizationヘッダーの接頭辞。大文字小文字を区別する。
const bearerPrefix = "Bearer "

// HeaderRequestID はリクエストIDのヘッダー。ログの相関に使う。
const HeaderRequestID = "X-Request-Id"

// Verifier はBearerトークンを検証してクレームを返す。
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// AuthFilter は認証と認可を行い、識別ヘッダーを付与する。
type AuthFilter struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewAuthFilter はAuthFilterを生成する。loggerがnilの場合はslog.Default()を使う。
func NewAuthFilter(verifier Verifier, logger *slog.Logger) *AuthFilter {
	return &AuthFilter{verifier: verifier, logger: resolveLogger(logger)}
}

// Apply はリクエストを認証・認可する。
//
// 成功時はX-User-IdとX-User-Roleを上書きしたRequestでContinueを返す。
// 途中で発生したパニックはトークン検証失敗と同じ401として扱う。
func (f *AuthFilter) Apply(r Request, rule route.Rule) (out Outcome) {
	log := f.logger.With("path", r.Path(), "route", rule.ID, "request_id", r.HeaderValue(HeaderRequestID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("認証処理中にパニックが発生しました", "panic", rec)
			out = Terminate(unauthorizedToken())
		}
	}()

	raw, ok := strings.CutPrefix(r.HeaderValue("Authorization"), bearerPrefix)
	if !ok {
		log.Warn("Authorizationヘッダーが無いか形式が不正です")
		return Terminate(unauthorizedHeader())
	}

	claims, err := f.verifier.Verify(raw)
	if err != nil {
		log.Warn("トークンの検証に失敗しました", "reason", token.Reason(err), "error", err)
		return Terminate(unauthorizedToken())
	}

	if (rule.AdminOnly || route.IsAdminScoped(r.Path())) && claims.Role != token.RoleAdmin {
		log.Warn("管理者以外のユーザーが管理者パスにアクセスしました", "user", claims.Subject, "role", claims.Role)
		return Terminate(forbiddenAdmin())
	}

	log.Debug("認証に成功しました", "user", claims.Subject, "role", claims.Role)
	return Continue(r.
		WithHeader(HeaderUserID, claims.Subject).
		WithHeader(HeaderUserRole, claims.Role))
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
