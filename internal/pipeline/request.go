package pipeline

import (
	"net/http"
)

// 下流サービスに伝播する識別ヘッダー。
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Request は受信リクエストの読み取り専用ビュー。
// ヘッダーを変更するメソッドはすべて新しいRequestを返す。
type Request struct {
	method   string
	path     string
	rawQuery string
	header   http.Header
}

// NewRequest はRequestを生成する。headerはコピーされる。
func NewRequest(method, path, rawQuery string, header http.Header) Request {
	return Request{
		method:   method,
		path:     path,
		rawQuery: rawQuery,
		header:   cloneHeader(header),
	}
}

// FromHTTP は*http.RequestからRequestを生成する。
func FromHTTP(r *http.Request) Request {
	return NewRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header)
}

// Method はHTTPメソッドを返す。
func (r Request) Method() string { return r.method }

// Path はリクエストパスを返す。
func (r Request) Path() string { return r.path }

// RawQuery はエンコード済みのクエリ文字列を返す。
func (r Request) RawQuery() string { return r.rawQuery }

// Header はヘッダーのコピーを返す。
func (r Request) Header() http.Header { return cloneHeader(r.header) }

// HeaderValue はkeyの最初の値を返す。
func (r Request) HeaderValue(key string) string { return r.header.Get(key) }

// WithHeader はkeyをvalueで上書きした新しいRequestを返す。
// 既存の同名ヘッダーはすべて置き換えられる。
func (r Request) WithHeader(key, value string) Request {
	h := cloneHeader(r.header)
	h.Set(key, value)
	r.header = h
	return r
}

// WithoutHeader はkeysを取り除いた新しいRequestを返す。
func (r Request) WithoutHeader(keys ...string) Request {
	h := cloneHeader(r.header)
	for _, k := range keys {
		h.Del(k)
	}
	r.header = h
	return r
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	return h.Clone()
}
