package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daiki/tsudoi/internal/metrics"
	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/participant"
)

// --- モック定義 ---

// mockParticipantService はParticipantServiceInterfaceのモック実装。
type mockParticipantService struct {
	inviteFn        func(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error)
	listFn          func(ctx context.Context, userID, eventID string) ([]*model.Participant, error)
	removeFn        func(ctx context.Context, userID, eventID, participantID string) error
	updateStatusFn  func(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error)
	checkInFn       func(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error)
	publicCheckInFn func(ctx context.Context, eventID, email, name string) (*participant.CheckInResult, error)
	validateScanFn  func(ctx context.Context, userID, eventID, payload string) (string, error)
	checkinQRFn     func(ctx context.Context, userID, eventID, baseURL string) ([]byte, error)
	attendanceLogFn func(ctx context.Context, userID, eventID string) ([]*model.AttendanceLogEntry, error)
}

func (m *mockParticipantService) Invite(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error) {
	if m.inviteFn != nil {
		return m.inviteFn(ctx, userID, eventID, email, name)
	}
	return nil, nil
}

func (m *mockParticipantService) List(ctx context.Context, userID, eventID string) ([]*model.Participant, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, eventID)
	}
	return nil, nil
}

func (m *mockParticipantService) Remove(ctx context.Context, userID, eventID, participantID string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, eventID, participantID)
	}
	return nil
}

func (m *mockParticipantService) UpdateStatus(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, userID, eventID, participantID, newStatus)
	}
	return nil, nil
}

func (m *mockParticipantService) CheckIn(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error) {
	if m.checkInFn != nil {
		return m.checkInFn(ctx, userID, eventID, email, name, source)
	}
	return nil, nil
}

func (m *mockParticipantService) PublicCheckIn(ctx context.Context, eventID, email, name string) (*participant.CheckInResult, error) {
	if m.publicCheckInFn != nil {
		return m.publicCheckInFn(ctx, eventID, email, name)
	}
	return nil, nil
}

func (m *mockParticipantService) ValidateScan(ctx context.Context, userID, eventID, payload string) (string, error) {
	if m.validateScanFn != nil {
		return m.validateScanFn(ctx, userID, eventID, payload)
	}
	return "", nil
}

func (m *mockParticipantService) CheckinQRCode(ctx context.Context, userID, eventID, baseURL string) ([]byte, error) {
	if m.checkinQRFn != nil {
		return m.checkinQRFn(ctx, userID, eventID, baseURL)
	}
	return nil, nil
}

func (m *mockParticipantService) AttendanceLog(ctx context.Context, userID, eventID string) ([]*model.AttendanceLogEntry, error) {
	if m.attendanceLogFn != nil {
		return m.attendanceLogFn(ctx, userID, eventID)
	}
	return nil, nil
}

func newTestParticipantHandler(svc ParticipantServiceInterface) *ParticipantHandler {
	if svc == nil {
		svc = &mockParticipantService{}
	}
	return NewParticipantHandler(svc, metrics.NopCollector{}, "https://tsudoi.example.com")
}

// --- POST /api/events/{id}/participants テスト ---

func TestParticipantHandler_Invite_Success(t *testing.T) {
	svc := &mockParticipantService{
		inviteFn: func(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error) {
			if eventID != "evt-1" {
				t.Errorf("eventID = %q, want %q", eventID, "evt-1")
			}
			if email != "taro@example.com" {
				t.Errorf("email = %q, want %q", email, "taro@example.com")
			}
			return &model.Participant{
				ID:      "p-1",
				EventID: eventID,
				Email:   email,
				Name:    name,
				Status:  model.StatusInvited,
			}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "taro@example.com", "name": "太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/participants", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.Invite(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "invited" {
		t.Errorf("status = %v, want %q", result["status"], "invited")
	}
}

func TestParticipantHandler_Invite_Duplicate_Returns409(t *testing.T) {
	svc := &mockParticipantService{
		inviteFn: func(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error) {
			return nil, model.NewParticipantAlreadyInvitedError(email)
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "taro@example.com", "name": "太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/participants", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.Invite(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	errBody := decodeErrorResponse(t, w)
	if errBody["code"] != "PARTICIPANT_ALREADY_INVITED" {
		t.Errorf("error code = %q, want %q", errBody["code"], "PARTICIPANT_ALREADY_INVITED")
	}
}

func TestParticipantHandler_Invite_InvalidEmail_Returns400(t *testing.T) {
	svc := &mockParticipantService{
		inviteFn: func(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error) {
			return nil, model.NewInvalidEmailError(email)
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "not-an-email", "name": "太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/participants", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.Invite(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/events/{id}/participants/{pid}/status テスト ---

func TestParticipantHandler_UpdateStatus_Success(t *testing.T) {
	svc := &mockParticipantService{
		updateStatusFn: func(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error) {
			if participantID != "p-1" {
				t.Errorf("participantID = %q, want %q", participantID, "p-1")
			}
			if newStatus != model.StatusAttended {
				t.Errorf("newStatus = %q, want %q", newStatus, model.StatusAttended)
			}
			now := time.Now()
			return &model.Participant{ID: participantID, EventID: eventID, Status: newStatus, AttendedAt: &now}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"status": "attended"}`
	req := httptest.NewRequest(http.MethodPut, "/api/events/evt-1/participants/p-1/status", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	req = withChiURLParam(req, "pid", "p-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "attended" {
		t.Errorf("status = %v, want %q", result["status"], "attended")
	}
}

func TestParticipantHandler_UpdateStatus_InvalidTransition_Returns422(t *testing.T) {
	svc := &mockParticipantService{
		updateStatusFn: func(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error) {
			return nil, model.NewInvalidStatusTransitionError(model.StatusAttended, model.StatusInvited)
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"status": "invited"}`
	req := httptest.NewRequest(http.MethodPut, "/api/events/evt-1/participants/p-1/status", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	req = withChiURLParam(req, "pid", "p-1")
	w := httptest.NewRecorder()

	h.UpdateStatus(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	errBody := decodeErrorResponse(t, w)
	if errBody["code"] != "INVALID_STATUS_TRANSITION" {
		t.Errorf("error code = %q, want %q", errBody["code"], "INVALID_STATUS_TRANSITION")
	}
}

// --- POST /api/events/{id}/attendance テスト ---

func TestParticipantHandler_CheckIn_Success(t *testing.T) {
	svc := &mockParticipantService{
		checkInFn: func(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error) {
			if source != model.SourceManual {
				t.Errorf("source = %q, want %q", source, model.SourceManual)
			}
			return &participant.CheckInResult{
				Participant: &model.Participant{ID: "p-1", EventID: eventID, Email: email, Status: model.StatusAttended},
			}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "taro@example.com", "name": "太郎", "source": "manual"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/attendance", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.CheckIn(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result checkinResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.AlreadyAttended {
		t.Error("already_attended = true, want false")
	}
	if result.Participant.Status != "attended" {
		t.Errorf("participant.status = %q, want %q", result.Participant.Status, "attended")
	}
}

func TestParticipantHandler_CheckIn_AlreadyAttended_ReturnsFlag(t *testing.T) {
	svc := &mockParticipantService{
		checkInFn: func(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error) {
			return &participant.CheckInResult{
				Participant:     &model.Participant{ID: "p-1", EventID: eventID, Email: email, Status: model.StatusAttended},
				AlreadyAttended: true,
			}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "taro@example.com", "source": "qr_code"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/attendance", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.CheckIn(w, req)

	var result checkinResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.AlreadyAttended {
		t.Error("already_attended = false, want true")
	}
}

func TestParticipantHandler_CheckIn_InvalidSource_Returns400(t *testing.T) {
	svc := &mockParticipantService{
		checkInFn: func(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*participant.CheckInResult, error) {
			return nil, model.NewInvalidAttendanceSourceError(string(source))
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"email": "taro@example.com", "source": "carrier_pigeon"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/attendance", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.CheckIn(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errBody := decodeErrorResponse(t, w)
	if errBody["code"] != "INVALID_ATTENDANCE_SOURCE" {
		t.Errorf("error code = %q, want %q", errBody["code"], "INVALID_ATTENDANCE_SOURCE")
	}
}

// --- POST /api/public/events/{id}/checkin テスト ---

func TestParticipantHandler_PublicCheckIn_Success(t *testing.T) {
	svc := &mockParticipantService{
		publicCheckInFn: func(ctx context.Context, eventID, email, name string) (*participant.CheckInResult, error) {
			if eventID != "evt-1" {
				t.Errorf("eventID = %q, want %q", eventID, "evt-1")
			}
			return &participant.CheckInResult{
				Participant: &model.Participant{ID: "p-1", EventID: eventID, Email: email, Name: name, Status: model.StatusAttended},
			}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"name": "花子", "email": "hanako@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/events/evt-1/checkin", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.PublicCheckIn(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestParticipantHandler_PublicCheckIn_EventNotFound_Returns404(t *testing.T) {
	svc := &mockParticipantService{
		publicCheckInFn: func(ctx context.Context, eventID, email, name string) (*participant.CheckInResult, error) {
			return nil, model.NewEventNotFoundError(eventID)
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"name": "花子", "email": "hanako@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/events/evt-missing/checkin", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "evt-missing")
	w := httptest.NewRecorder()

	h.PublicCheckIn(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /api/events/{id}/qrcode テスト ---

func TestParticipantHandler_QRCode_ReturnsPNG(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	svc := &mockParticipantService{
		checkinQRFn: func(ctx context.Context, userID, eventID, baseURL string) ([]byte, error) {
			if baseURL != "https://tsudoi.example.com" {
				t.Errorf("baseURL = %q, want %q", baseURL, "https://tsudoi.example.com")
			}
			return pngMagic, nil
		},
	}
	h := newTestParticipantHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events/evt-1/qrcode", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.QRCode(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/png")
	}
	if !bytes.Equal(w.Body.Bytes(), pngMagic) {
		t.Error("body does not match PNG payload")
	}
}

// --- POST /api/events/{id}/scan テスト ---

func TestParticipantHandler_Scan_Success(t *testing.T) {
	svc := &mockParticipantService{
		validateScanFn: func(ctx context.Context, userID, eventID, payload string) (string, error) {
			return eventID, nil
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"payload": "https://tsudoi.example.com/attend/evt-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/scan", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.Scan(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["event_id"] != "evt-1" {
		t.Errorf("event_id = %q, want %q", result["event_id"], "evt-1")
	}
}

func TestParticipantHandler_Scan_Mismatch_Returns409(t *testing.T) {
	svc := &mockParticipantService{
		validateScanFn: func(ctx context.Context, userID, eventID, payload string) (string, error) {
			return "", model.NewQREventMismatchError()
		},
	}
	h := newTestParticipantHandler(svc)

	body := `{"payload": "https://tsudoi.example.com/attend/evt-other"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/scan", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.Scan(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	errBody := decodeErrorResponse(t, w)
	if errBody["code"] != "QR_EVENT_MISMATCH" {
		t.Errorf("error code = %q, want %q", errBody["code"], "QR_EVENT_MISMATCH")
	}
}

// --- GET /api/events/{id}/attendance テスト ---

func TestParticipantHandler_AttendanceLog_ReturnsEntries(t *testing.T) {
	markedAt := time.Date(2026, 9, 14, 19, 0, 0, 0, time.UTC)
	svc := &mockParticipantService{
		attendanceLogFn: func(ctx context.Context, userID, eventID string) ([]*model.AttendanceLogEntry, error) {
			return []*model.AttendanceLogEntry{
				{
					ID:               "log-1",
					EventID:          eventID,
					ParticipantEmail: "taro@example.com",
					ParticipantName:  "太郎",
					Source:           model.SourceQRCode,
					MarkedAt:         markedAt,
				},
			}, nil
		},
	}
	h := newTestParticipantHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events/evt-1/attendance", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	w := httptest.NewRecorder()

	h.AttendanceLog(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len(result) = %d, want 1", len(result))
	}
	if result[0]["source"] != "qr_code" {
		t.Errorf("source = %v, want %q", result[0]["source"], "qr_code")
	}
}

// --- DELETE /api/events/{id}/participants/{pid} テスト ---

func TestParticipantHandler_Remove_Success_Returns204(t *testing.T) {
	svc := &mockParticipantService{
		removeFn: func(ctx context.Context, userID, eventID, participantID string) error {
			if participantID != "p-1" {
				t.Errorf("participantID = %q, want %q", participantID, "p-1")
			}
			return nil
		},
	}
	h := newTestParticipantHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/events/evt-1/participants/p-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "evt-1")
	req = withChiURLParam(req, "pid", "p-1")
	w := httptest.NewRecorder()

	h.Remove(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
