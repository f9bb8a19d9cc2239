// Package apierror はGatewayが自ら返すエラーレスポンスのJSONボディを提供する。
//
// 認証失敗・ルート未検出・上流障害など、Gatewayが処理を打ち切るときは
// すべてこのパッケージの形式でボディを書き出す。
package apierror
