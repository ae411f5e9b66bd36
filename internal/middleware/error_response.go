package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/devent/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusForCode はエラーコードとHTTPステータスの対応。
var statusForCode = map[string]int{
	model.ErrCodeValidationFailed:   http.StatusBadRequest,
	model.ErrCodeEmailConflict:      http.StatusConflict,
	model.ErrCodeInvalidCredentials: http.StatusUnauthorized,
	model.ErrCodeUnauthenticated:    http.StatusUnauthorized,
	model.ErrCodeEventNotFound:      http.StatusNotFound,
	model.ErrCodeImageRequired:      http.StatusBadRequest,
	model.ErrCodeStoreUnavailable:   http.StatusServiceUnavailable,
	model.ErrCodeInternal:           http.StatusInternalServerError,
}

// WriteAPIError はエラーコードに対応するステータスで統一エラー
// レスポンスを書き込む。未知のコードは500にフォールバックする。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	status, ok := statusForCode[apiErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	WriteErrorResponse(w, status, apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
