package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daiki/tsudoi/internal/middleware"
	"github.com/daiki/tsudoi/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は認証エラーの統一レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析エラーの統一レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEventNotFound, model.ErrCodeParticipantNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeParticipantAlreadyInvited:
		return http.StatusConflict
	case model.ErrCodeInvalidEmail, model.ErrCodeInvalidEventInput, model.ErrCodeInvalidAttendanceSource:
		return http.StatusBadRequest
	case model.ErrCodeInvalidStatusTransition:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidQRPayload:
		return http.StatusBadRequest
	case model.ErrCodeQREventMismatch:
		return http.StatusConflict
	case model.ErrCodeAnalyticsLoadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
