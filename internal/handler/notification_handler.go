package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/daiki/tsudoi/internal/middleware"
	"github.com/daiki/tsudoi/internal/model"
)

// notificationListLimit は通知一覧で返す最大件数。
// 保持件数の上限と揃えている。
const notificationListLimit = 50

// NotificationLister は通知履歴の取得に必要なインターフェース。
// repository.NotificationRepositoryの部分集合として定義する。
type NotificationLister interface {
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
}

// NotificationHandler は通知履歴のHTTPハンドラー。
type NotificationHandler struct {
	lister NotificationLister
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(lister NotificationLister) *NotificationHandler {
	return &NotificationHandler{lister: lister}
}

// notificationResponse は通知情報のAPIレスポンス。
type notificationResponse struct {
	ID      string    `json:"id"`
	EventID string    `json:"event_id"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// List はログインユーザーの通知履歴を新しい順で返す。
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.lister.ListByUserID(r.Context(), userID, notificationListLimit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = notificationResponse{
			ID:      n.ID,
			EventID: n.EventID,
			Type:    string(n.Type),
			Subject: n.Subject,
			Message: n.Message,
			SentAt:  n.SentAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}
