// Package route はルートテーブルとパス分類を提供する。
//
// ルートテーブルは起動時に一度だけ構築され、以後は読み取り専用となる。
// パスの公開判定と管理者スコープ判定はルート解決とは独立して行う。
package route
