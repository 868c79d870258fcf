// Package model はドメインモデルを定義する。
package model

import "time"

// ParticipantStatus は参加者の出欠状態を表す。
type ParticipantStatus string

const (
	// StatusInvited は招待済み（未登録ユーザー）の状態。
	StatusInvited ParticipantStatus = "invited"
	// StatusRegistered は招待時にメールアドレスが登録済みユーザーと一致した状態。
	StatusRegistered ParticipantStatus = "registered"
	// StatusAttended は出席が記録された状態。
	StatusAttended ParticipantStatus = "attended"
	// StatusMissed は欠席として記録された状態。
	StatusMissed ParticipantStatus = "missed"
)

// IsValid は既知のステータスかを判定する。
func (s ParticipantStatus) IsValid() bool {
	switch s {
	case StatusInvited, StatusRegistered, StatusAttended, StatusMissed:
		return true
	}
	return false
}

// IsTerminal は出欠確定済みのステータスかを判定する。
func (s ParticipantStatus) IsTerminal() bool {
	return s == StatusAttended || s == StatusMissed
}

// CanTransition はチェックイン経路で許可される状態遷移かを判定する。
// 許可される遷移:
//
//	invited    -> registered | attended | missed
//	registered -> attended | missed
//
// attended と missed の相互遷移は主催者による訂正操作
// （CanCorrect）でのみ許可され、チェックイン経路では拒否される。
func (s ParticipantStatus) CanTransition(to ParticipantStatus) bool {
	if s == to {
		return false
	}
	switch s {
	case StatusInvited:
		return to == StatusRegistered || to == StatusAttended || to == StatusMissed
	case StatusRegistered:
		return to == StatusAttended || to == StatusMissed
	}
	return false
}

// CanCorrect は主催者の手動操作で許可される遷移かを判定する。
// チェックイン経路の遷移に加えて、確定済みステータス間の訂正
// （attended <-> missed）を許可する。
func (s ParticipantStatus) CanCorrect(to ParticipantStatus) bool {
	if s.CanTransition(to) {
		return true
	}
	return s.IsTerminal() && to.IsTerminal() && s != to
}

// Participant はイベントごとの参加者レコードを表す。
// メールアドレスがイベント内での自然キーとなる（イベント+メールで一意）。
type Participant struct {
	ID         string
	EventID    string
	Email      string
	Name       string
	UserID     string // 招待時にメールが一致した登録済みユーザーのID。未登録の場合は空文字
	Status     ParticipantStatus
	InvitedBy  string
	InvitedAt  time.Time
	AttendedAt *time.Time
	// イベント開催日時の非正規化コピー。イベントを再取得せずに
	// 「開催済みか」を判定するために保持する。
	EventDate string
	EventTime string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceSource は出席記録の起点を表す。
type AttendanceSource string

const (
	// SourceManual は主催者による手動の出席登録。
	SourceManual AttendanceSource = "manual"
	// SourceQRCode はQRコードスキャン経由の出席登録。
	SourceQRCode AttendanceSource = "qr_code"
	// SourcePublicForm は公開セルフチェックインフォーム経由の出席登録。
	SourcePublicForm AttendanceSource = "public_form"
)

// IsValid は既知の出席起点かを判定する。
func (s AttendanceSource) IsValid() bool {
	switch s {
	case SourceManual, SourceQRCode, SourcePublicForm:
		return true
	}
	return false
}

// AttendanceLogEntry は出席記録の監査ログエントリを表す。
// 追記専用であり、更新・削除されることはない。
type AttendanceLogEntry struct {
	ID               string
	EventID          string
	ParticipantEmail string
	ParticipantName  string
	Source           AttendanceSource
	MarkedAt         time.Time
}
