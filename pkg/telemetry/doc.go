// Package telemetry はOpenTelemetryによる分散トレーシングを初期化する。
//
// Gatewayが受け付けたリクエストと、バックエンドへの転送リクエストの両方に
// スパンを作成し、traceparentヘッダーで下流サービスへ伝播する。
package telemetry
