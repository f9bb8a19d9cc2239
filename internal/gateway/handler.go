package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/apigateway/internal/pipeline"
	"github.com/nao1215/apigateway/internal/route"
	"github.com/nao1215/apigateway/pkg/apierror"
	"github.com/nao1215/apigateway/pkg/cors"
	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/nao1215/apigateway/pkg/middleware"
)

// 転送に失敗した場合のメッセージ。
const (
	MessageUpstreamTimeout     = "Upstream service timed out"
	MessageUpstreamUnavailable = "Upstream service unavailable"
	MessageMethodNotAllowed    = "Method not allowed"
)

// handleGateway はすべてのリクエストを受け付けるハンドラを返す。
func (s *Server) handleGateway() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := s.pipeline.Run(pipeline.FromHTTP(c.Request))

		if resp, ok := res.Outcome.Response(); ok {
			applyCORS(c.Writer.Header(), res.CORSHeader)
			writeTerminal(c, resp)
			return
		}

		req, _ := res.Outcome.Request()
		if res.Rule.IsLocal() {
			applyCORS(c.Writer.Header(), res.CORSHeader)
			s.serveLocal(c, req, res.Rule)
			return
		}
		s.forward(c, req, res.Rule, res.CORSHeader)
	}
}

// writeTerminal はパイプラインが打ち切ったレスポンスを書き出す。
func writeTerminal(c *gin.Context, resp pipeline.Response) {
	if len(resp.Body) == 0 {
		c.Status(resp.Status)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Data(resp.Status, resp.ContentType, resp.Body)
}

// forward はリクエストをバックエンドへ転送し、レスポンスをそのまま返す。
func (s *Server) forward(c *gin.Context, req pipeline.Request, rule route.Rule, corsHeader http.Header) {
	log := s.logger.With("route", rule.ID, "method", req.Method(), "path", req.Path(),
		"request_id", middleware.GetRequestID(c))

	resp, err := s.forwarder.Do(c.Request.Context(), httpclient.Outbound{
		Method:        req.Method(),
		Target:        rule.Target,
		Path:          req.Path(),
		RawQuery:      req.RawQuery(),
		Header:        req.Header(),
		Body:          c.Request.Body,
		ContentLength: c.Request.ContentLength,
		RemoteAddr:    c.Request.RemoteAddr,
		Host:          c.Request.Host,
		TLS:           c.Request.TLS != nil,
	})
	if err != nil {
		applyCORS(c.Writer.Header(), corsHeader)
		switch {
		case httpclient.IsTimeout(err):
			log.Warn("バックエンドがタイムアウトしました", "target", rule.Target, "error", err)
			apierror.Write(c.Writer, http.StatusGatewayTimeout, MessageUpstreamTimeout)
		case errors.Is(err, context.Canceled):
			// クライアントは切断済みのため、書き出しは失敗しても構わない
			log.Info("クライアントが転送完了前に切断しました")
			apierror.Write(c.Writer, http.StatusBadGateway, MessageUpstreamUnavailable)
		default:
			log.Error("バックエンドとの通信に失敗しました", "target", rule.Target, "error", err)
			apierror.Write(c.Writer, http.StatusBadGateway, MessageUpstreamUnavailable)
		}
		return
	}
	defer resp.Body.Close()

	dst := c.Writer.Header()
	src := resp.Header.Clone()
	httpclient.RemoveHopByHop(src)
	for name, values := range src {
		if cors.IsCORSHeader(name) || name == middleware.HeaderRequestID {
			continue
		}
		dst[name] = values
	}
	applyCORS(dst, corsHeader)

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Warn("バックエンドのレスポンスの中継に失敗しました", "status", resp.StatusCode, "error", err)
	}
}

// healthStatus はヘルスチェックのレスポンス。
type healthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Port      int    `json:"port,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

// serveLocal はGateway自身が応答するルートを処理する。
func (s *Server) serveLocal(c *gin.Context, req pipeline.Request, rule route.Rule) {
	if req.Method() != http.MethodGet && req.Method() != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		apierror.Write(c.Writer, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
		return
	}

	body := healthStatus{
		Status:    "UP",
		Service:   s.serviceName,
		Timestamp: s.now().UnixMilli(),
	}
	// /health はポートを含めない
	if req.Path() != "/health" {
		body.Port, _ = strconv.Atoi(s.port)
	}
	if req.Path() == "/api/health" {
		body.Message = "API Gateway is running"
	}

	s.logger.Debug("ヘルスチェックに応答しました", "path", req.Path(), "route", rule.ID)
	c.JSON(http.StatusOK, body)
}

// applyCORS はCORSヘッダーをdstに設定する。Varyは既存の値に追記する。
func applyCORS(dst, corsHeader http.Header) {
	for name, values := range corsHeader {
		if name != "Vary" {
			dst[name] = slices.Clone(values)
			continue
		}
		for _, v := range values {
			if !slices.Contains(dst.Values("Vary"), v) {
				dst.Add("Vary", v)
			}
		}
	}
}
