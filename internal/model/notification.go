// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationType は通知の配信チャネルを表す。
type NotificationType string

const (
	// NotificationTypeEmail はメール（シミュレーション）による通知。
	NotificationTypeEmail NotificationType = "email"
	// NotificationTypeBrowser はブラウザ表示向けの通知。
	NotificationTypeBrowser NotificationType = "browser"
)

// Notification はユーザーに配信されたリマインダー通知の記録を表す。
// ユーザーごとに直近50件のみ保持される。
type Notification struct {
	ID      string
	UserID  string
	EventID string
	Type    NotificationType
	Subject string
	Message string
	SentAt  time.Time
}

// AdvisoryWindow はリマインダーの発火ウィンドウを表す。
type AdvisoryWindow string

const (
	// Window24h は開催24時間前（残り23〜24時間）のウィンドウ。
	Window24h AdvisoryWindow = "24h"
	// Window1h は開催1時間前（残り0.5〜1時間）のウィンドウ。
	Window1h AdvisoryWindow = "1h"
)
