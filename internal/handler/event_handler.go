package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daiki/tsudoi/internal/event"
	"github.com/daiki/tsudoi/internal/middleware"
	"github.com/daiki/tsudoi/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, userID string, input event.EventInput) (*model.Event, error)
	GetEvent(ctx context.Context, userID, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context, userID string) ([]*model.Event, error)
	UpdateEvent(ctx context.Context, userID, eventID string, input event.EventInput) (*model.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

// PublicEventFinder は公開イベント情報の取得に必要なインターフェース。
// repository.EventRepositoryの部分集合として定義する。
type PublicEventFinder interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service      EventServiceInterface
	publicFinder PublicEventFinder
	loc          *time.Location
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, publicFinder PublicEventFinder, loc *time.Location) *EventHandler {
	return &EventHandler{
		service:      service,
		publicFinder: publicFinder,
		loc:          loc,
	}
}

// eventRequest はイベント作成・更新リクエストのボディ。
type eventRequest struct {
	Name          string `json:"name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Description   string `json:"description"`
	NotifyEnabled bool   `json:"notify_enabled"`
}

// eventResponse はイベント情報のAPIレスポンス。
type eventResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Description   string `json:"description"`
	NotifyEnabled bool   `json:"notify_enabled"`
}

// publicEventResponse は公開イベント情報のAPIレスポンス。
// 主催者情報や通知設定は含めない。
type publicEventResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	IsPast bool   `json:"is_past"`
}

// ListEvents はログインユーザーのイベント一覧を返す。
// GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	events, err := h.service.ListEvents(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]eventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// CreateEvent はイベントを作成する。
// POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.CreateEvent(r.Context(), userID, toEventInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEventResponse(created))
}

// GetEvent はイベント詳細を返す。
// GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	found, err := h.service.GetEvent(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(found))
}

// UpdateEvent はイベントを更新する。
// PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateEvent(r.Context(), userID, chi.URLParam(r, "id"), toEventInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(updated))
}

// DeleteEvent はイベントを削除する。参加者・出席ログも一括で削除される。
// DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublicEventInfo は公開チェックインページ向けのイベント情報を返す。
// 開催済みイベントもブロックせず、is_pastフラグで注意表示を促す。
// GET /api/public/events/{id}
func (h *EventHandler) PublicEventInfo(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	found, err := h.publicFinder.FindByID(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if found == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewEventNotFoundError(eventID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(publicEventResponse{
		ID:     found.ID,
		Name:   found.Name,
		Date:   found.Date,
		Time:   found.Time,
		IsPast: found.IsPast(time.Now(), h.loc),
	})
}

// --- ヘルパー関数 ---

func toEventInput(req eventRequest) event.EventInput {
	return event.EventInput{
		Name:          req.Name,
		Date:          req.Date,
		Time:          req.Time,
		Description:   req.Description,
		NotifyEnabled: req.NotifyEnabled,
	}
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		Name:          e.Name,
		Date:          e.Date,
		Time:          e.Time,
		Description:   e.Description,
		NotifyEnabled: e.NotifyEnabled,
	}
}
