// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Event は主催者が管理するイベントを表す。
type Event struct {
	ID            string
	UserID        string
	Name          string
	Date          string // "2006-01-02" 形式の開催日
	Time          string // "15:04" 形式の開始時刻。未設定の場合は空文字
	Description   string
	NotifyEnabled bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// dateLayout / timeLayout はDate/Timeフィールドの書式。
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// StartsAt はDateとTimeからイベント開始日時を組み立てる。
// Timeが空の場合は当日の00:00として扱う。
func (e *Event) StartsAt(loc *time.Location) (time.Time, error) {
	if e.Date == "" {
		return time.Time{}, fmt.Errorf("event date is empty")
	}
	if e.Time == "" {
		t, err := time.ParseInLocation(dateLayout, e.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse event date: %w", err)
		}
		return t, nil
	}
	t, err := time.ParseInLocation(dateTimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse event date/time: %w", err)
	}
	return t, nil
}

// IsPast はイベントが過去のものかを判定する。
// 開催日当日はまだ「過去」とはみなさない（当日の途中参加を許容する）。
func (e *Event) IsPast(now time.Time, loc *time.Location) bool {
	starts, err := e.StartsAt(loc)
	if err != nil {
		return false
	}
	sy, sm, sd := starts.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	if sy == ny && sm == nm && sd == nd {
		return false
	}
	return starts.Before(now)
}
