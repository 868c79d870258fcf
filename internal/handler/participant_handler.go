package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daiki/tsudoi/internal/metrics"
	"github.com/daiki/tsudoi/internal/middleware"
	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/participant"
)

// ParticipantServiceInterface は参加者ハンドラーが必要とするサービスインターフェース。
type ParticipantServiceInterface interface {
	Invite(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error)
	List(ctx context.Context, userID, eventID string) ([]*model.Participant, error)
	Remove(ctx context.Context, userID, eventID, participantID string) error
	UpdateStatus(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error)
	CheckIn(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error)
	PublicCheckIn(ctx context.Context, eventID, email, name string) (*participant.CheckInResult, error)
	ValidateScan(ctx context.Context, userID, eventID, payload string) (string, error)
	CheckinQRCode(ctx context.Context, userID, eventID, baseURL string) ([]byte, error)
	AttendanceLog(ctx context.Context, userID, eventID string) ([]*model.AttendanceLogEntry, error)
}

// ParticipantHandler は参加者・出席記録のHTTPハンドラー。
type ParticipantHandler struct {
	service ParticipantServiceInterface
	metrics metrics.MetricsCollector
	baseURL string
}

// NewParticipantHandler はParticipantHandlerを生成する。
func NewParticipantHandler(service ParticipantServiceInterface, collector metrics.MetricsCollector, baseURL string) *ParticipantHandler {
	return &ParticipantHandler{
		service: service,
		metrics: collector,
		baseURL: baseURL,
	}
}

// inviteRequest は参加者招待リクエストのボディ。
type inviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// statusUpdateRequest はステータス更新リクエストのボディ。
type statusUpdateRequest struct {
	Status string `json:"status"`
}

// checkinRequest は主催者チェックインリクエストのボディ。
type checkinRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// publicCheckinRequest は公開セルフチェックインリクエストのボディ。
type publicCheckinRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// scanRequest はQRスキャン検証リクエストのボディ。
type scanRequest struct {
	Payload string `json:"payload"`
}

// participantResponse は参加者情報のAPIレスポンス。
type participantResponse struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	InvitedAt  time.Time  `json:"invited_at"`
	AttendedAt *time.Time `json:"attended_at,omitempty"`
}

// checkinResponse はチェックイン操作のAPIレスポンス。
type checkinResponse struct {
	Participant     participantResponse `json:"participant"`
	AlreadyAttended bool                `json:"already_attended"`
}

// attendanceLogResponse は出席ログエントリのAPIレスポンス。
type attendanceLogResponse struct {
	ID               string    `json:"id"`
	ParticipantEmail string    `json:"participant_email"`
	ParticipantName  string    `json:"participant_name"`
	Source           string    `json:"source"`
	MarkedAt         time.Time `json:"marked_at"`
}

// Invite はイベントに参加者を招待する。
// POST /api/events/{id}/participants
func (h *ParticipantHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Invite(r.Context(), userID, chi.URLParam(r, "id"), req.Email, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordInvite()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toParticipantResponse(created))
}

// List はイベントの参加者一覧を返す。
// GET /api/events/{id}/participants
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	participants, err := h.service.List(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]participantResponse, len(participants))
	for i, p := range participants {
		responses[i] = toParticipantResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// Remove はイベントから参加者を削除する。
// DELETE /api/events/{id}/participants/{pid}
func (h *ParticipantHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "pid")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus は主催者による参加者ステータスの手動更新。
// PUT /api/events/{id}/participants/{pid}/status
func (h *ParticipantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateStatus(
		r.Context(), userID,
		chi.URLParam(r, "id"), chi.URLParam(r, "pid"),
		model.ParticipantStatus(req.Status),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toParticipantResponse(updated))
}

// CheckIn は主催者によるチェックイン操作を記録する。
// POST /api/events/{id}/attendance
func (h *ParticipantHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	source := model.AttendanceSource(req.Source)
	result, err := h.service.CheckIn(r.Context(), userID, chi.URLParam(r, "id"), req.Email, req.Name, source)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !result.AlreadyAttended {
		h.metrics.RecordCheckin(string(source))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCheckinResponse(result))
}

// PublicCheckIn は公開フォームからのセルフチェックインを記録する。
// POST /api/public/events/{id}/checkin
func (h *ParticipantHandler) PublicCheckIn(w http.ResponseWriter, r *http.Request) {
	var req publicCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	result, err := h.service.PublicCheckIn(r.Context(), chi.URLParam(r, "id"), req.Email, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !result.AlreadyAttended {
		h.metrics.RecordCheckin(string(model.SourcePublicForm))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCheckinResponse(result))
}

// AttendanceLog はイベントの出席ログを返す。
// GET /api/events/{id}/attendance
func (h *ParticipantHandler) AttendanceLog(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entries, err := h.service.AttendanceLog(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]attendanceLogResponse, len(entries))
	for i, entry := range entries {
		responses[i] = attendanceLogResponse{
			ID:               entry.ID,
			ParticipantEmail: entry.ParticipantEmail,
			ParticipantName:  entry.ParticipantName,
			Source:           string(entry.Source),
			MarkedAt:         entry.MarkedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// QRCode はイベントのチェックイン用QRコードをPNGで返す。
// GET /api/events/{id}/qrcode
func (h *ParticipantHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	png, err := h.service.CheckinQRCode(r.Context(), userID, chi.URLParam(r, "id"), h.baseURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// Scan はQRコードの読取結果を検証する。状態は一切変更しない。
// POST /api/events/{id}/scan
func (h *ParticipantHandler) Scan(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	eventID, err := h.service.ValidateScan(r.Context(), userID, chi.URLParam(r, "id"), req.Payload)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"event_id": eventID})
}

// --- ヘルパー関数 ---

func toParticipantResponse(p *model.Participant) participantResponse {
	return participantResponse{
		ID:         p.ID,
		EventID:    p.EventID,
		Email:      p.Email,
		Name:       p.Name,
		Status:     string(p.Status),
		InvitedAt:  p.InvitedAt,
		AttendedAt: p.AttendedAt,
	}
}

func toCheckinResponse(result *participant.CheckInResult) checkinResponse {
	return checkinResponse{
		Participant:     toParticipantResponse(result.Participant),
		AlreadyAttended: result.AlreadyAttended,
	}
}
