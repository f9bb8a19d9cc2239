// Package gateway はAPI GatewayのHTTPサーバーを提供する。
//
// すべてのリクエストを1つのハンドラーで受け付け、リクエストパイプライン
// （CORS、ルート解決、認証・認可）の結果に従って打ち切るか、
// バックエンドサービスへ転送する。外部からアクセス可能な唯一のサービスであり、
// セキュリティの境界線として機能する。ヘルスチェックはGateway自身が応答する。
package gateway
