package pipeline

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nao1215/apigateway/internal/route"
	"github.com/nao1215/apigateway/pkg/cors"
)

// Options はPipelineの構成要素。すべて起動時に構築した読み取り専用の値。
type Options struct {
	// Routes はルートテーブル。
	Routes *route.Table
	// Classifier は公開パスの判定器。
	Classifier route.Classifier
	// CORS はCORSポリシー。
	CORS *cors.Enforcer
	// Verifier はBearerトークンの検証器。
	Verifier Verifier
	// Logger は診断ログの出力先。nilの場合はslog.Default()。
	Logger *slog.Logger
}

// Pipeline は固定順序でリクエストを評価する。
// 状態を持たないため、複数のゴルーチンから同時に呼び出せる。
type Pipeline struct {
	routes     *route.Table
	classifier route.Classifier
	cors       *cors.Enforcer
	auth       *AuthFilter
	logger     *slog.Logger
}

// New はPipelineを生成する。
func New(opts Options) (*Pipeline, error) {
	if opts.Routes == nil {
		return nil, errors.New("ルートテーブルが指定されていません")
	}
	if opts.CORS == nil {
		return nil, errors.New("CORSポリシーが指定されていません")
	}
	if opts.Verifier == nil {
		return nil, errors.New("トークン検証器が指定されていません")
	}
	logger := resolveLogger(opts.Logger)
	return &Pipeline{
		routes:     opts.Routes,
		classifier: opts.Classifier,
		cors:       opts.CORS,
		auth:       NewAuthFilter(opts.Verifier, logger),
		logger:     logger,
	}, nil
}

// Result はPipeline.Runの結果。
type Result struct {
	// CORSHeader はすべてのレスポンスに付与するCORSヘッダー。
	CORSHeader http.Header
	// Rule は解決されたルート。Matchedがfalseの場合はゼロ値。
	Rule route.Rule
	// Matched はルートが解決されたかどうか。
	Matched bool
	// Outcome は転送するか打ち切るか。
	Outcome Outcome
}

// Run はリクエストを評価する。
//
//  1. CORSヘッダーを計算する（常に最初）
//  2. OPTIONSならば200・空ボディで打ち切る
//  3. ルートを解決し、無ければ404で打ち切る
//  4. 公開パスまたは認証不要のルートならば識別ヘッダーを取り除いて転送する
//  5. それ以外は認証・認可フィルターの結果に従う
func (p *Pipeline) Run(r Request) Result {
	res := Result{CORSHeader: p.cors.Headers(r.HeaderValue("Origin"))}

	if cors.IsPreflight(r.Method()) {
		p.logger.Debug("プリフライトリクエストを処理しました", "path", r.Path())
		res.Outcome = Terminate(Response{Status: http.StatusOK})
		return res
	}

	rule, ok := p.routes.Match(r.Path())
	if !ok {
		p.logger.Info("ルートが見つかりません", "method", r.Method(), "path", r.Path(), "request_id", r.HeaderValue(HeaderRequestID))
		res.Outcome = Terminate(notFound())
		return res
	}
	res.Rule, res.Matched = rule, true

	if !rule.RequiresAuth || p.classifier.IsPublic(r.Path()) {
		// 識別ヘッダーはGatewayだけが設定する
		res.Outcome = Continue(r.WithoutHeader(HeaderUserID, HeaderUserRole))
		return res
	}

	res.Outcome = p.auth.Apply(r, rule)
	return res
}
