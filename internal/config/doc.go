// Package config はGatewayの起動時設定を読み込む。
//
// 環境変数（.envファイルを含む）とルート定義ファイル（YAML）から
// 読み取り専用のConfigを組み立てる。
package config
