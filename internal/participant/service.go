// Package participant は参加者の招待・出席記録のドメインロジックを提供する。
package participant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/qr"
	"github.com/daiki/tsudoi/internal/repository"
	"github.com/daiki/tsudoi/internal/security"
)

// emailPattern はメールアドレスの簡易検証パターン。
// 厳密なRFC検証ではなく「ローカル部@ドメイン部.TLD」の形のみを要求する。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxParticipantNameLength は参加者名の最大文字数。
const maxParticipantNameLength = 100

// CheckInResult はチェックイン操作の結果を表す。
type CheckInResult struct {
	Participant *model.Participant
	// AlreadyAttended は既に出席記録済みで状態が変化しなかった場合にtrue。
	// このときログエントリは追記されない。
	AlreadyAttended bool
}

// ParticipantService は参加者の招待・出席記録のサービス層。
// 状態遷移の検証とチェックインの冪等性を統括する。
type ParticipantService struct {
	eventRepo       repository.EventRepository
	participantRepo repository.ParticipantRepository
	logRepo         repository.AttendanceLogRepository
	userRepo        repository.UserRepository
	sanitizer       security.ContentSanitizerService
}

// NewParticipantService はParticipantServiceの新しいインスタンスを生成する。
func NewParticipantService(
	eventRepo repository.EventRepository,
	participantRepo repository.ParticipantRepository,
	logRepo repository.AttendanceLogRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *ParticipantService {
	return &ParticipantService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		logRepo:         logRepo,
		userRepo:        userRepo,
		sanitizer:       sanitizer,
	}
}

// Invite はイベントに参加者を招待する。
// フロー: メール検証 → 登録済みユーザー照合 → 参加者作成（重複はDB制約で拒否）
// メールアドレスが登録済みユーザーと一致する場合はステータスregisteredで作成し、
// ユーザーIDと表示名を引き継ぐ。一致しない場合はinvitedで作成する。
func (s *ParticipantService) Invite(ctx context.Context, userID, eventID, email, name string) (*model.Participant, error) {
	event, err := s.ownedEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return nil, model.NewInvalidEmailError(email)
	}

	name = s.sanitizer.SanitizeText(name)
	if len([]rune(name)) > maxParticipantNameLength {
		name = string([]rune(name)[:maxParticipantNameLength])
	}

	// 登録済みユーザーとの照合
	status := model.StatusInvited
	linkedUserID := ""
	registered, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの照合に失敗しました: %w", err)
	}
	if registered != nil {
		status = model.StatusRegistered
		linkedUserID = registered.ID
		if registered.Name != "" {
			name = registered.Name
		}
	}

	now := time.Now()
	p := &model.Participant{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Email:     email,
		Name:      name,
		UserID:    linkedUserID,
		Status:    status,
		InvitedBy: userID,
		InvitedAt: now,
		EventDate: event.Date,
		EventTime: event.Time,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.participantRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipant) {
			return nil, model.NewParticipantAlreadyInvitedError(email)
		}
		return nil, fmt.Errorf("参加者の保存に失敗しました: %w", err)
	}

	return p, nil
}

// List はイベントの参加者一覧を招待日時昇順で返す。
func (s *ParticipantService) List(ctx context.Context, userID, eventID string) ([]*model.Participant, error) {
	if _, err := s.ownedEvent(ctx, userID, eventID); err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}
	return participants, nil
}

// Remove はイベントから参加者を削除する。
func (s *ParticipantService) Remove(ctx context.Context, userID, eventID, participantID string) error {
	p, err := s.ownedParticipant(ctx, userID, eventID, participantID)
	if err != nil {
		return err
	}

	if err := s.participantRepo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("参加者の削除に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は主催者による参加者ステータスの手動更新。
// チェックイン経路の遷移に加えて、確定済みステータス間の訂正
// （attended <-> missed）を許可する。
func (s *ParticipantService) UpdateStatus(ctx context.Context, userID, eventID, participantID string, newStatus model.ParticipantStatus) (*model.Participant, error) {
	if !newStatus.IsValid() {
		return nil, model.NewInvalidStatusTransitionError("", newStatus)
	}

	p, err := s.ownedParticipant(ctx, userID, eventID, participantID)
	if err != nil {
		return nil, err
	}

	if !p.Status.CanCorrect(newStatus) {
		return nil, model.NewInvalidStatusTransitionError(p.Status, newStatus)
	}

	var attendedAt *time.Time
	if newStatus == model.StatusAttended {
		now := time.Now()
		attendedAt = &now
	}

	if err := s.participantRepo.UpdateStatus(ctx, p.ID, newStatus, attendedAt); err != nil {
		return nil, fmt.Errorf("ステータスの更新に失敗しました: %w", err)
	}

	p.Status = newStatus
	p.AttendedAt = attendedAt
	return p, nil
}

// CheckIn は主催者によるチェックイン操作（手動またはQRスキャン後）を記録する。
// 対象の参加者が未招待の場合も出席扱いで新規作成する。冪等であり、
// 既に出席済みの場合は状態を変えずAlreadyAttended=trueを返す。
func (s *ParticipantService) CheckIn(ctx context.Context, userID, eventID, email, name string, source model.AttendanceSource) (*CheckInResult, error) {
	if !source.IsValid() {
		return nil, model.NewInvalidAttendanceSourceError(string(source))
	}

	event, err := s.ownedEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	return s.markAttended(ctx, event, email, name, source)
}

// PublicCheckIn は公開セルフチェックインフォームからの出席記録。
// 認証を要求せず、出席起点はpublic_formに固定される。
// 開催済みイベントでもチェックインは拒否しない（フォーム側で注意表示のみ）。
func (s *ParticipantService) PublicCheckIn(ctx context.Context, eventID, email, name string) (*CheckInResult, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	return s.markAttended(ctx, event, email, name, model.SourcePublicForm)
}

// ValidateScan はQRコードの読取結果を検証する。
// 読取結果が開いているイベントのチェックインURLであればイベントIDを返す。
// 別イベントのQRコードの場合はQR_EVENT_MISMATCHを返し、状態は一切変更しない。
func (s *ParticipantService) ValidateScan(ctx context.Context, userID, eventID, payload string) (string, error) {
	if _, err := s.ownedEvent(ctx, userID, eventID); err != nil {
		return "", err
	}

	decoded, err := qr.ParseCheckinPayload(payload)
	if err != nil {
		return "", model.NewInvalidQRPayloadError(payload)
	}
	if decoded != eventID {
		return "", model.NewQREventMismatchError()
	}
	return decoded, nil
}

// CheckinQRCode はイベントの公開チェックインページへ誘導するQRコードPNGを生成する。
func (s *ParticipantService) CheckinQRCode(ctx context.Context, userID, eventID, baseURL string) ([]byte, error) {
	event, err := s.ownedEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	png, err := qr.EncodePNG(qr.BuildCheckinURL(baseURL, event.ID))
	if err != nil {
		return nil, fmt.Errorf("QRコードの生成に失敗しました: %w", err)
	}
	return png, nil
}

// AttendanceLog はイベントの出席ログを記録日時降順で返す。
func (s *ParticipantService) AttendanceLog(ctx context.Context, userID, eventID string) ([]*model.AttendanceLogEntry, error) {
	if _, err := s.ownedEvent(ctx, userID, eventID); err != nil {
		return nil, err
	}

	entries, err := s.logRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("出席ログの取得に失敗しました: %w", err)
	}
	return entries, nil
}

// markAttended は出席記録の共通フロー。
// 1文のUPSERTで冪等に出席を記録し、状態が変化した場合のみログを追記する。
func (s *ParticipantService) markAttended(ctx context.Context, event *model.Event, email, name string, source model.AttendanceSource) (*CheckInResult, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return nil, model.NewInvalidEmailError(email)
	}

	name = s.sanitizer.SanitizeText(name)
	if len([]rune(name)) > maxParticipantNameLength {
		name = string([]rune(name)[:maxParticipantNameLength])
	}

	result, err := s.participantRepo.MarkAttended(ctx, event.ID, email, name, event.Date, event.Time)
	if err != nil {
		return nil, fmt.Errorf("出席の記録に失敗しました: %w", err)
	}

	// 欠席確定済みの参加者はチェックイン経路では出席に戻せない。
	// 訂正は主催者のステータス更新（CanCorrect）でのみ行える
	if result.Participant.Status == model.StatusMissed {
		return nil, model.NewInvalidStatusTransitionError(model.StatusMissed, model.StatusAttended)
	}

	// 既に出席済みの場合はログを追記しない（冪等なチェックイン）
	if !result.AlreadyAttended {
		entry := &model.AttendanceLogEntry{
			ID:               uuid.New().String(),
			EventID:          event.ID,
			ParticipantEmail: result.Participant.Email,
			ParticipantName:  result.Participant.Name,
			Source:           source,
			MarkedAt:         time.Now(),
		}
		if err := s.logRepo.Append(ctx, entry); err != nil {
			// ログは監査用の補助情報であり、出席記録自体は確定済み
			slog.Error("failed to append attendance log",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &CheckInResult{
		Participant:     result.Participant,
		AlreadyAttended: result.AlreadyAttended,
	}, nil
}

// ownedEvent は所有者スコープでイベントを取得する。
// 存在しない場合、および他ユーザーのイベントの場合はEVENT_NOT_FOUNDを返す。
func (s *ParticipantService) ownedEvent(ctx context.Context, userID, eventID string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil || event.UserID != userID {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return event, nil
}

// ownedParticipant は所有者スコープで参加者を取得する。
// イベントの所有者でない場合、参加者が存在しない場合、参加者が別イベントに
// 属する場合はいずれもエラーを返す。
func (s *ParticipantService) ownedParticipant(ctx context.Context, userID, eventID, participantID string) (*model.Participant, error) {
	if _, err := s.ownedEvent(ctx, userID, eventID); err != nil {
		return nil, err
	}

	p, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("参加者の取得に失敗しました: %w", err)
	}
	if p == nil || p.EventID != eventID {
		return nil, model.NewParticipantNotFoundError(participantID)
	}
	return p, nil
}
