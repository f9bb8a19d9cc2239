package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/apigateway/pkg/apierror"
)

// MessageInternalError はパニック時にクライアントへ返すメッセージ。
const MessageInternalError = "Internal server error"

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にログを出力し、標準のエラーボディで500を返す。
// レスポンスの書き出しが始まっている場合は接続を打ち切るだけとする。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[PANIC] ハンドラーでパニックが発生しました",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
					"panic", r,
				)
				c.Abort()
				if !c.Writer.Written() {
					apierror.Write(c.Writer, http.StatusInternalServerError, MessageInternalError)
				}
			}
		}()
		c.Next()
	}
}
