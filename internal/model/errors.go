// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, event, qr, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound             = "EVENT_NOT_FOUND"
	ErrCodeParticipantNotFound       = "PARTICIPANT_NOT_FOUND"
	ErrCodeParticipantAlreadyInvited = "PARTICIPANT_ALREADY_INVITED"
	ErrCodeInvalidEmail              = "INVALID_EMAIL"
	ErrCodeInvalidEventInput         = "INVALID_EVENT_INPUT"
	ErrCodeInvalidStatusTransition   = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidAttendanceSource   = "INVALID_ATTENDANCE_SOURCE"
	ErrCodeInvalidQRPayload          = "INVALID_QR_PAYLOAD"
	ErrCodeQREventMismatch           = "QR_EVENT_MISMATCH"
	ErrCodeAnalyticsLoadFailed       = "ANALYTICS_LOAD_FAILED"
	ErrCodeUserNotFound              = "USER_NOT_FOUND"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントIDを確認してください。",
	}
}

// NewParticipantNotFoundError は参加者未検出エラーを生成する。
func NewParticipantNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeParticipantNotFound,
		Message:  fmt.Sprintf("指定されたメールアドレスの参加者が見つかりません: %s", email),
		Category: "event",
		Action:   "メールアドレスを確認するか、先に参加者を招待してください。",
	}
}

// NewParticipantAlreadyInvitedError は招待重複エラーを生成する。
func NewParticipantAlreadyInvitedError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeParticipantAlreadyInvited,
		Message:  fmt.Sprintf("この参加者は既に招待されています: %s", email),
		Category: "event",
		Action:   "参加者一覧から該当参加者を確認してください。",
	}
}

// NewInvalidEmailError は無効なメールアドレスエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %s", email),
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewInvalidEventInputError はイベント入力値の検証エラーを生成する。
func NewInvalidEventInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEventInput,
		Message:  fmt.Sprintf("イベントの入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "必須項目と日付・時刻の形式を確認してください。",
	}
}

// NewInvalidStatusTransitionError は許可されない状態遷移エラーを生成する。
func NewInvalidStatusTransitionError(from, to ParticipantStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatusTransition,
		Message:  fmt.Sprintf("許可されていないステータス遷移です: %s -> %s", from, to),
		Category: "validation",
		Action:   "現在のステータスを確認してください。出欠確定後の変更は訂正操作でのみ可能です。",
	}
}

// NewInvalidAttendanceSourceError は無効な出席起点エラーを生成する。
func NewInvalidAttendanceSourceError(source string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAttendanceSource,
		Message:  fmt.Sprintf("無効な出席起点です: %s", source),
		Category: "validation",
		Action:   "出席起点には manual、qr_code、public_form のいずれかを指定してください。",
	}
}

// NewInvalidQRPayloadError は解読不能なQRペイロードエラーを生成する。
func NewInvalidQRPayloadError(payload string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQRPayload,
		Message:  fmt.Sprintf("QRコードの内容を解釈できません: %s", payload),
		Category: "qr",
		Action:   "このアプリで生成されたチェックイン用QRコードを読み取ってください。",
	}
}

// NewQREventMismatchError は別イベントのQRコードを読み取った場合のエラーを生成する。
func NewQREventMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeQREventMismatch,
		Message:  "このQRコードは別のイベントのものです。",
		Category: "qr",
		Action:   "現在開いているイベントのQRコードを読み取ってください。",
	}
}

// NewAnalyticsLoadFailedError は分析データの集計失敗エラーを生成する。
// 集計失敗はダミー値で埋めず、明示的なエラー状態としてUIに返す。
func NewAnalyticsLoadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAnalyticsLoadFailed,
		Message:  "分析データの集計に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
