// Package event はイベント管理のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/repository"
	"github.com/daiki/tsudoi/internal/security"
)

// maxNameLength はイベント名の最大文字数。
const maxNameLength = 200

// maxDescriptionLength はイベント説明文の最大文字数。
const maxDescriptionLength = 5000

// dateLayout / timeLayout はAPI入力のDate/Timeフィールドの書式。
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventInput はイベント作成・更新の入力値。
type EventInput struct {
	Name          string
	Date          string
	Time          string
	Description   string
	NotifyEnabled bool
}

// EventService はイベント管理のサービス層。
// 入力値のサニタイズ・検証と所有者スコープのCRUDを統括する。
type EventService struct {
	eventRepo repository.EventRepository
	sanitizer security.ContentSanitizerService
}

// NewEventService はEventServiceの新しいインスタンスを生成する。
func NewEventService(
	eventRepo repository.EventRepository,
	sanitizer security.ContentSanitizerService,
) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		sanitizer: sanitizer,
	}
}

// CreateEvent はイベントを作成する。
// フロー: サニタイズ → 検証 → 保存
func (s *EventService) CreateEvent(ctx context.Context, userID string, input EventInput) (*model.Event, error) {
	sanitized, err := s.sanitizeAndValidate(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &model.Event{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          sanitized.Name,
		Date:          sanitized.Date,
		Time:          sanitized.Time,
		Description:   sanitized.Description,
		NotifyEnabled: sanitized.NotifyEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの保存に失敗しました: %w", err)
	}

	return event, nil
}

// GetEvent は所有者スコープでイベントを取得する。
// 存在しない場合、および他ユーザーのイベントの場合はEVENT_NOT_FOUNDを返す。
// 他人のイベントの存在を漏らさないため、権限エラーと未検出を区別しない。
func (s *EventService) GetEvent(ctx context.Context, userID, eventID string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil || event.UserID != userID {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return event, nil
}

// ListEvents は指定ユーザーのイベント一覧を開催日昇順で返す。
func (s *EventService) ListEvents(ctx context.Context, userID string) ([]*model.Event, error) {
	events, err := s.eventRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// UpdateEvent はイベントを更新する。所有者のみ更新できる。
func (s *EventService) UpdateEvent(ctx context.Context, userID, eventID string, input EventInput) (*model.Event, error) {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	sanitized, err := s.sanitizeAndValidate(input)
	if err != nil {
		return nil, err
	}

	event.Name = sanitized.Name
	event.Date = sanitized.Date
	event.Time = sanitized.Time
	event.Description = sanitized.Description
	event.NotifyEnabled = sanitized.NotifyEnabled
	event.UpdatedAt = time.Now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	return event, nil
}

// DeleteEvent はイベントを削除する。所有者のみ削除できる。
// 参加者・出席ログ・リマインダー記録はDB側でCASCADE削除される。
func (s *EventService) DeleteEvent(ctx context.Context, userID, eventID string) error {
	deleted, err := s.eventRepo.Delete(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEventNotFoundError(eventID)
	}
	return nil
}

// sanitizeAndValidate は入力値をサニタイズして検証する。
// 検証ルール:
//   - イベント名はサニタイズ後に空でないこと（最大200文字）
//   - 開催日は "2006-01-02" 形式であること
//   - 開始時刻は空、または "15:04" 形式であること
func (s *EventService) sanitizeAndValidate(input EventInput) (EventInput, error) {
	input.Name = s.sanitizer.SanitizeText(input.Name)
	input.Description = s.sanitizer.SanitizeDescription(input.Description)

	if input.Name == "" {
		return input, model.NewInvalidEventInputError("イベント名が入力されていません")
	}
	if len([]rune(input.Name)) > maxNameLength {
		return input, model.NewInvalidEventInputError("イベント名が長すぎます")
	}
	if len([]rune(input.Description)) > maxDescriptionLength {
		return input, model.NewInvalidEventInputError("イベント説明文が長すぎます")
	}

	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		return input, model.NewInvalidEventInputError("開催日の形式が不正です")
	}
	if input.Time != "" {
		if _, err := time.Parse(timeLayout, input.Time); err != nil {
			return input, model.NewInvalidEventInputError("開始時刻の形式が不正です")
		}
	}

	return input, nil
}
