package apierror

import (
	"encoding/json"
	"net/http"
	"time"
)

// ContentType はエラーボディのContent-Type。
const ContentType = "application/json"

// Body はエラーレスポンスのボディ。
// フィールドの並びはJSON出力の順序になる。
type Body struct {
	// Success は常にfalse。
	Success bool `json:"success"`
	// Message はクライアントに返す汎用メッセージ。
	Message string `json:"message"`
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Timestamp はエポックミリ秒。
	Timestamp int64 `json:"timestamp"`
}

// New は現在時刻でエラーボディを生成する。
func New(status int, message string) Body {
	return Body{
		Success:   false,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Marshal はエラーボディをJSONにシリアライズする。
// Bodyは文字列と数値のみで構成されるため失敗しない。
func (b Body) Marshal() []byte {
	data, err := json.Marshal(b)
	if err != nil {
		// 到達しない
		return []byte(`{"success":false}`)
	}
	return data
}

// Write はエラーボディをwに書き出す。
func Write(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(New(status, message).Marshal())
}
