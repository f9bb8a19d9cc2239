// Package middleware はGatewayのGinエンジンで使用する共通ミドルウェアを提供する。
//
// パニックリカバリとリクエストIDの付与を含む。
// 認証とCORSはリクエストパイプライン側で処理する。
package middleware
