// Package pipeline はGatewayのリクエスト処理パイプラインを提供する。
//
// CORS → プリフライト打ち切り → ルート解決 → 公開パス判定 → 認証・認可 の順に
// 純粋関数として評価し、転送を続けるか（Continue）、その場で応答するか
// （Terminate）のどちらかを返す。受信したリクエストは変更せず、
// 転送用には識別ヘッダーを付与した新しいRequestを生成する。
//
// パイプラインは状態を持たない。ルートテーブル・公開パス・CORS設定・
// トークン検証器は起動時に構築した読み取り専用の値として受け取る。
package pipeline
