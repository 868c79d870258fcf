package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/daiki/tsudoi/internal/analytics"
	"github.com/daiki/tsudoi/internal/middleware"
)

// AnalyticsServiceInterface は分析ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Summarize(ctx context.Context, userID string) (*analytics.Summary, error)
	SummarizeByEvent(ctx context.Context, userID string) ([]analytics.EventSummary, error)
}

// AnalyticsHandler は出席集計のHTTPハンドラー。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// analyticsResponse は集計結果のAPIレスポンス。
type analyticsResponse struct {
	Summary *analytics.Summary       `json:"summary"`
	Events  []analytics.EventSummary `json:"events"`
}

// Summary はログインユーザーの出席集計を返す。
// GET /api/analytics
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summary, err := h.service.Summarize(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	perEvent, err := h.service.SummarizeByEvent(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyticsResponse{
		Summary: summary,
		Events:  perEvent,
	})
}
