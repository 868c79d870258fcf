package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/daiki/tsudoi/internal/middleware"
	"github.com/daiki/tsudoi/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateSettings(ctx context.Context, userID, name string, notifyEmail, notifyBrowser bool) (*model.User, error)
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー設定・退会のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{service: service, config: config}
}

// settingsRequest は設定更新リクエストのボディ。
type settingsRequest struct {
	Name          string `json:"name"`
	NotifyEmail   bool   `json:"notify_email"`
	NotifyBrowser bool   `json:"notify_browser"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	NotifyEmail   bool   `json:"notify_email"`
	NotifyBrowser bool   `json:"notify_browser"`
}

// UpdateSettings は表示名と通知設定を更新する。
// PUT /api/users/me/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateSettings(r.Context(), userID, req.Name, req.NotifyEmail, req.NotifyBrowser)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{
		ID:            updated.ID,
		Email:         updated.Email,
		Name:          updated.Name,
		NotifyEmail:   updated.NotifyEmail,
		NotifyBrowser: updated.NotifyBrowser,
	})
}

// Withdraw はアカウントを退会処理する。
// 関連するイベント・参加者・通知・セッションも削除される。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	// 退会後はセッションCookieもクリアする
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
