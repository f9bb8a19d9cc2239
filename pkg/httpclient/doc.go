// Package httpclient はGatewayからバックエンドサービスへリクエストを転送するクライアントを提供する。
//
// ホップバイホップヘッダーの除去とX-Forwarded-*ヘッダーの付与を行い、
// リダイレクトは追従せずにそのまま呼び出し元へ返す。
// 送信リクエストはOpenTelemetryで計装され、トレースコンテキストが伝播する。
package httpclient
