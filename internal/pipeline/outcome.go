package pipeline

import (
	"net/http"

	"github.com/nao1215/apigateway/pkg/apierror"
)

// Response はパイプラインがその場で返すレスポンス。
type Response struct {
	// Status はHTTPステータスコード。
	Status int
	// ContentType はボディのContent-Type。ボディが無い場合は空。
	ContentType string
	// Body はレスポンスボディ。プリフライトでは空。
	Body []byte
}

// errorResponse は標準形式のエラーレスポンスを生成する。
func errorResponse(status int, message string) Response {
	return Response{
		Status:      status,
		ContentType: apierror.ContentType,
		Body:        apierror.New(status, message).Marshal(),
	}
}

type outcomeKind int

const (
	kindContinue outcomeKind = iota
	kindTerminate
)

// Outcome は各段階の結果。Continue（次の段階へ進む）かTerminate（打ち切る）のどちらか。
type Outcome struct {
	kind     outcomeKind
	request  Request
	response Response
}

// Continue は処理を続けるOutcomeを返す。
func Continue(r Request) Outcome {
	return Outcome{kind: kindContinue, request: r}
}

// Terminate は処理を打ち切るOutcomeを返す。
func Terminate(resp Response) Outcome {
	return Outcome{kind: kindTerminate, response: resp}
}

// Request は転送に使うRequestを返す。Terminateの場合はfalse。
func (o Outcome) Request() (Request, bool) {
	if o.kind != kindContinue {
		return Request{}, false
	}
	return o.request, true
}

// Response は打ち切り時のレスポンスを返す。Continueの場合はfalse。
func (o Outcome) Response() (Response, bool) {
	if o.kind != kindTerminate {
		return Response{}, false
	}
	return o.response, true
}

// Terminated はTerminateかどうかを返す。
func (o Outcome) Terminated() bool {
	return o.kind == kindTerminate
}

// エラーメッセージ。クライアントに返す文言はこれ以外に変えない。
const (
	MessageMissingAuthHeader = "Missing or invalid Authorization header"
	MessageInvalidToken      = "Invalid or expired token"
	MessageAdminRequired     = "Admin access required"
	MessageNoRoute           = "No route found"
)

func unauthorizedHeader() Response {
	return errorResponse(http.StatusUnauthorized, MessageMissingAuthHeader)
}

func unauthorizedToken() Response {
	return errorResponse(http.StatusUnauthorized, MessageInvalidToken)
}

func forbiddenAdmin() Response {
	return errorResponse(http.StatusForbidden, MessageAdminRequired)
}

func notFound() Response {
	return errorResponse(http.StatusNotFound, MessageNoRoute)
}
