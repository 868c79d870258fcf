// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/daiki/tsudoi/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// 参加者招待時の「登録済みユーザーか」の判定に使用する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// 通知設定は初期値（メール・ブラウザともに有効）で作成される。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateSettings は表示名と通知設定を更新する。
	UpdateSettings(ctx context.Context, id, name string, notifyEmail, notifyBrowser bool) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、events以下はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EventWithOwnerPrefs はイベントと主催者の通知設定を結合した構造体。
// リマインダーワーカーが1クエリで判定材料を取得するために使用する。
type EventWithOwnerPrefs struct {
	model.Event
	OwnerEmail         string
	OwnerNotifyEmail   bool
	OwnerNotifyBrowser bool
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// ListByUserID は指定ユーザーのイベント一覧を開催日昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// Update はイベント情報を更新する。所有者が一致しない場合は更新されない。
	Update(ctx context.Context, event *model.Event) error

	// Delete は指定IDのイベントを削除する。
	// participants、attendance_log、event_advisoriesはCASCADE削除される。
	Delete(ctx context.Context, id, userID string) (bool, error)

	// ListNotifiableByDates は指定された開催日のうち通知が有効なイベントを
	// 主催者の通知設定付きで返す。リマインダーワーカー用。
	ListNotifiableByDates(ctx context.Context, dates []string) ([]EventWithOwnerPrefs, error)
}

// AttendanceTotals は参加者ステータスの集計結果を表す。
type AttendanceTotals struct {
	Total    int
	Attended int
	Missed   int
}

// MarkAttendedResult はMarkAttendedの結果を表す。
type MarkAttendedResult struct {
	Participant     *model.Participant
	AlreadyAttended bool // 既にattendedだったため状態が変化しなかった場合にtrue
	Created         bool // 新規参加者レコードが作成された場合にtrue
}

// ParticipantRepository は参加者データの永続化インターフェース。
type ParticipantRepository interface {
	// FindByID は指定IDの参加者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Participant, error)

	// FindByEventAndEmail はイベントIDとメールアドレスで参加者を検索する。
	// メールアドレスは大文字小文字を区別しない。見つからない場合はnilを返す。
	FindByEventAndEmail(ctx context.Context, eventID, email string) (*model.Participant, error)

	// ListByEventID はイベントの参加者一覧を招待日時昇順で返す。
	ListByEventID(ctx context.Context, eventID string) ([]*model.Participant, error)

	// Create は参加者を作成する。(event_id, email)の一意制約違反の場合は
	// ErrDuplicateParticipantを返す。
	Create(ctx context.Context, p *model.Participant) error

	// UpdateStatus は参加者のステータスを更新する。
	// attendedAtはattendedへの遷移時のみ非nilで渡される。
	UpdateStatus(ctx context.Context, id string, status model.ParticipantStatus, attendedAt *time.Time) error

	// Delete は指定IDの参加者を削除する。
	Delete(ctx context.Context, id string) error

	// MarkAttended は出席を冪等に記録する。1文のUPSERTで
	// 「存在しなければattendedで新規作成、存在し未確定（invited/registered）
	// なら更新、確定済み（attended/missed）なら変更なし」を実現する。
	// 変更なしの場合は既存レコードをそのまま返し、attendedだった場合のみ
	// AlreadyAttended=trueとなる。missedの扱いは呼び出し側が判断する。
	MarkAttended(ctx context.Context, eventID, email, name, eventDate, eventTime string) (*MarkAttendedResult, error)

	// AggregateByOwner は指定ユーザーの全イベントの参加者を集計する。
	AggregateByOwner(ctx context.Context, userID string) (*AttendanceTotals, error)

	// CountByEventID はイベントごとのステータス集計を返す。
	CountByEventID(ctx context.Context, eventID string) (*AttendanceTotals, error)
}

// AttendanceLogRepository は出席監査ログの永続化インターフェース。
// ログは追記専用であり、更新・削除のメソッドは提供しない。
type AttendanceLogRepository interface {
	// Append はログエントリを追記する。
	Append(ctx context.Context, entry *model.AttendanceLogEntry) error

	// ListByEventID はイベントのログ一覧を記録日時降順で返す。
	ListByEventID(ctx context.Context, eventID string) ([]*model.AttendanceLogEntry, error)
}

// AdvisoryRepository はリマインダー発火済みウォーターマークの永続化インターフェース。
type AdvisoryRepository interface {
	// TryMarkAdvised は(イベント, ウィンドウ)の発火記録を試みる。
	// はじめて記録できた場合はtrueを、既に発火済みの場合はfalseを返す。
	// プロセス再起動をまたいでも同一ウィンドウの二重発火を防ぐ。
	TryMarkAdvised(ctx context.Context, eventID string, window model.AdvisoryWindow) (bool, error)
}

// NotificationRepository は通知記録の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知記録を作成し、ユーザーごとの保持件数を上限内に切り詰める。
	Create(ctx context.Context, n *model.Notification, keep int) error

	// ListByUserID はユーザーの通知記録を送信日時降順で最大limit件返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
