package apierror

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNew はNew関数を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("successがfalseでステータスとメッセージが設定されること", func(t *testing.T) {
		t.Parallel()

		before := time.Now().UnixMilli()
		body := New(http.StatusForbidden, "Admin access required")
		after := time.Now().UnixMilli()

		if body.Success {
			t.Error("Success = true, want false")
		}
		if body.Status != http.StatusForbidden {
			t.Errorf("Status = %d, want %d", body.Status, http.StatusForbidden)
		}
		if body.Message != "Admin access required" {
			t.Errorf("Message = %q, want %q", body.Message, "Admin access required")
		}
		if body.Timestamp < before || body.Timestamp > after {
			t.Errorf("Timestamp = %d, want between %d and %d", body.Timestamp, before, after)
		}
	})
}

// TestMarshal はJSONの形を検証する。
func TestMarshal(t *testing.T) {
	t.Parallel()

	t.Run("フィールドが定義順に出力されること", func(t *testing.T) {
		t.Parallel()

		data := Body{Message: "Invalid or expired token", Status: 401, Timestamp: 1700000000000}.Marshal()
		want := `{"success":false,"message":"Invalid or expired token","status":401,"timestamp":1700000000000}`
		if string(data) != want {
			t.Errorf("Marshal() = %s, want %s", data, want)
		}
	})
}

// TestWrite はWrite関数を検証する。
func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("Content-Typeとステータスとボディが書き出されること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		Write(w, http.StatusNotFound, "No route found")

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
			t.Errorf("Content-Type = %q, want application/json", got)
		}

		var got map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if got["success"] != false {
			t.Errorf("success = %v, want false", got["success"])
		}
		if got["message"] != "No route found" {
			t.Errorf("message = %v, want %q", got["message"], "No route found")
		}
		if got["status"] != float64(http.StatusNotFound) {
			t.Errorf("status = %v, want %d", got["status"], http.StatusNotFound)
		}
	})
}
