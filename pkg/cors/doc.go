// Package cors はGatewayのCORSポリシーを提供する。
//
// すべてのレスポンス（エラーレスポンスを含む）に同じCORSヘッダーを付与する。
// 許可リストに無いオリジンは拒否せず、既定のオリジンを返す。
// OPTIONSメソッドのプリフライトは認証やルーティングより前に打ち切られる。
package cors
