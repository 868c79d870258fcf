package event

import (
	"context"
	"errors"
	"testing"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/repository"
	"github.com/daiki/tsudoi/internal/security"
)

// --- モック ---

type mockEventRepo struct {
	findByIDFn              func(ctx context.Context, id string) (*model.Event, error)
	listByUserIDFn          func(ctx context.Context, userID string) ([]*model.Event, error)
	createFn                func(ctx context.Context, event *model.Event) error
	updateFn                func(ctx context.Context, event *model.Event) error
	deleteFn                func(ctx context.Context, id, userID string) (bool, error)
	listNotifiableByDatesFn func(ctx context.Context, dates []string) ([]repository.EventWithOwnerPrefs, error)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockEventRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Event, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.Event) error {
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *model.Event) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, event)
	}
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return true, nil
}

func (m *mockEventRepo) ListNotifiableByDates(ctx context.Context, dates []string) ([]repository.EventWithOwnerPrefs, error) {
	if m.listNotifiableByDatesFn != nil {
		return m.listNotifiableByDatesFn(ctx, dates)
	}
	return nil, nil
}

func newTestService(repo *mockEventRepo) *EventService {
	return NewEventService(repo, security.NewContentSanitizer())
}

// --- CreateEvent のテスト ---

func TestCreateEvent_Success(t *testing.T) {
	var saved *model.Event
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *model.Event) error {
			saved = event
			return nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
		Name:          "月例ミートアップ",
		Date:          "2026-09-15",
		Time:          "19:00",
		Description:   "<p>会場は3Fです</p>",
		NotifyEnabled: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved == nil {
		t.Fatal("expected event to be saved")
	}
	if got.ID == "" {
		t.Error("expected non-empty event ID")
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
	}
	if got.Name != "月例ミートアップ" {
		t.Errorf("Name = %q, want %q", got.Name, "月例ミートアップ")
	}
	if got.Date != "2026-09-15" || got.Time != "19:00" {
		t.Errorf("Date/Time = %q/%q, want 2026-09-15/19:00", got.Date, got.Time)
	}
	if !got.NotifyEnabled {
		t.Error("NotifyEnabled should be true")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestCreateEvent_SanitizesName(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestService(repo)

	got, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
		Name: `勉強会<script>alert("xss")</script>`,
		Date: "2026-09-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Name != "勉強会" {
		t.Errorf("Name = %q, want %q", got.Name, "勉強会")
	}
}

func TestCreateEvent_SanitizesDescription(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestService(repo)

	got, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
		Name:        "懇親会",
		Date:        "2026-09-15",
		Description: `<p>案内</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Description != "<p>案内</p>" {
		t.Errorf("Description = %q, want %q", got.Description, "<p>案内</p>")
	}
}

func TestCreateEvent_EmptyName_ReturnsValidationError(t *testing.T) {
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *model.Event) error {
			t.Fatal("create should not be called")
			return nil
		},
	}
	svc := newTestService(repo)

	tests := []struct {
		name  string
		input string
	}{
		{"空文字列", ""},
		{"空白のみ", "   "},
		{"タグのみ", "<b></b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
				Name: tt.input,
				Date: "2026-09-15",
			})

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidEventInput {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidEventInput)
			}
		})
	}
}

func TestCreateEvent_InvalidDate_ReturnsValidationError(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestService(repo)

	tests := []struct {
		name string
		date string
	}{
		{"空文字列", ""},
		{"スラッシュ区切り", "2026/09/15"},
		{"存在しない日付", "2026-13-45"},
		{"日付でない文字列", "tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
				Name: "勉強会",
				Date: tt.date,
			})

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidEventInput {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidEventInput)
			}
		})
	}
}

func TestCreateEvent_InvalidTime_ReturnsValidationError(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestService(repo)

	_, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
		Name: "勉強会",
		Date: "2026-09-15",
		Time: "25:99",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidEventInput {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidEventInput)
	}
}

func TestCreateEvent_EmptyTime_IsAllowed(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestService(repo)

	got, err := svc.CreateEvent(context.Background(), "user-1", EventInput{
		Name: "終日イベント",
		Date: "2026-09-15",
		Time: "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Time != "" {
		t.Errorf("Time = %q, want empty", got.Time)
	}
}

// --- GetEvent のテスト ---

func TestGetEvent_OwnedEvent_Returned(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, UserID: "user-1", Name: "勉強会"}, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.GetEvent(context.Background(), "user-1", "evt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "勉強会" {
		t.Errorf("Name = %q, want %q", got.Name, "勉強会")
	}
}

func TestGetEvent_NotFound_ReturnsEventNotFound(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.GetEvent(context.Background(), "user-1", "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEventNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEventNotFound)
	}
}

func TestGetEvent_OtherUsersEvent_ReturnsEventNotFound(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, UserID: "someone-else"}, nil
		},
	}
	svc := newTestService(repo)

	// 所有者でない場合も404相当を返し、イベントの存在を漏らさない
	_, err := svc.GetEvent(context.Background(), "user-1", "evt-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEventNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEventNotFound)
	}
}

// --- UpdateEvent のテスト ---

func TestUpdateEvent_Success(t *testing.T) {
	var updated *model.Event
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, UserID: "user-1", Name: "旧名称", Date: "2026-09-01"}, nil
		},
		updateFn: func(ctx context.Context, event *model.Event) error {
			updated = event
			return nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.UpdateEvent(context.Background(), "user-1", "evt-1", EventInput{
		Name: "新名称",
		Date: "2026-09-20",
		Time: "18:30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated == nil {
		t.Fatal("expected update to be called")
	}
	if got.Name != "新名称" || got.Date != "2026-09-20" || got.Time != "18:30" {
		t.Errorf("updated event = %+v", got)
	}
}

func TestUpdateEvent_OtherUsersEvent_NotUpdated(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, UserID: "someone-else"}, nil
		},
		updateFn: func(ctx context.Context, event *model.Event) error {
			t.Fatal("update should not be called")
			return nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.UpdateEvent(context.Background(), "user-1", "evt-1", EventInput{
		Name: "新名称",
		Date: "2026-09-20",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- DeleteEvent のテスト ---

func TestDeleteEvent_Success(t *testing.T) {
	var deletedID, deletedUserID string
	repo := &mockEventRepo{
		deleteFn: func(ctx context.Context, id, userID string) (bool, error) {
			deletedID = id
			deletedUserID = userID
			return true, nil
		},
	}
	svc := newTestService(repo)

	if err := svc.DeleteEvent(context.Background(), "user-1", "evt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != "evt-1" || deletedUserID != "user-1" {
		t.Errorf("delete called with (%q, %q), want (evt-1, user-1)", deletedID, deletedUserID)
	}
}

func TestDeleteEvent_NotFound_ReturnsEventNotFound(t *testing.T) {
	repo := &mockEventRepo{
		deleteFn: func(ctx context.Context, id, userID string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(repo)

	err := svc.DeleteEvent(context.Background(), "user-1", "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEventNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEventNotFound)
	}
}

func TestDeleteEvent_RepositoryError_Wrapped(t *testing.T) {
	repo := &mockEventRepo{
		deleteFn: func(ctx context.Context, id, userID string) (bool, error) {
			return false, errors.New("connection refused")
		},
	}
	svc := newTestService(repo)

	err := svc.DeleteEvent(context.Background(), "user-1", "evt-1")
	if err == nil {
		t.Fatal("expected error")
	}
}
