// Package token は署名付きBearerトークン（JWT）の検証とクレーム抽出を行う。
//
// Gatewayが信頼するクレームはこのパッケージのCodecが検証したものだけである。
// 検証失敗の理由（形式不正・署名不一致・期限切れ）はすべて ErrInvalidToken に
// 集約され、呼び出し側はログ出力のためにのみ原因を参照できる。
package token
