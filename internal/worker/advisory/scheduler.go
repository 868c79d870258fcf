// Package advisory はイベント開催前リマインダーのバックグラウンド配信を提供する。
// スケジューラ、発火ウィンドウの判定、配信記録を含む。
package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daiki/tsudoi/internal/metrics"
	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/repository"
)

// notificationKeep はユーザーごとに保持する通知記録の上限件数。
const notificationKeep = 50

// 発火ウィンドウの境界。
// 24hウィンドウ: 開催まで23〜24時間、1hウィンドウ: 開催まで30分〜1時間。
const (
	window24hUpper = 24 * time.Hour
	window24hLower = 23 * time.Hour
	window1hUpper  = 1 * time.Hour
	window1hLower  = 30 * time.Minute
)

// Scheduler はリマインダー配信のスケジューリングを行う。
// ティッカーで通知対象イベントを走査し、発火ウィンドウに入ったイベントの
// 主催者へリマインダーを配信する。(イベント, ウィンドウ)ごとの発火記録を
// DBに永続化するため、プロセス再起動をまたいでも二重配信されない。
type Scheduler struct {
	eventRepo        repository.EventRepository
	advisoryRepo     repository.AdvisoryRepository
	notificationRepo repository.NotificationRepository
	metrics          metrics.MetricsCollector
	logger           *slog.Logger
	loc              *time.Location
	// now はテストで時刻を固定するための関数。通常はtime.Now。
	now func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	eventRepo repository.EventRepository,
	advisoryRepo repository.AdvisoryRepository,
	notificationRepo repository.NotificationRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	loc *time.Location,
) *Scheduler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Scheduler{
		eventRepo:        eventRepo,
		advisoryRepo:     advisoryRepo,
		notificationRepo: notificationRepo,
		metrics:          collector,
		logger:           logger,
		loc:              loc,
		now:              time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リマインダースケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("リマインダーサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインダースケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("リマインダーサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は通知対象イベントを1回走査し、発火ウィンドウに入ったイベントの
// リマインダーを配信する。
// 開催が24時間以内のイベントは開催日が「今日」または「明日」のいずれかで
// あるため、この2日分だけを問い合わせる。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.now().In(s.loc)

	dates := []string{
		now.Format("2006-01-02"),
		now.AddDate(0, 0, 1).Format("2006-01-02"),
	}

	events, err := s.eventRepo.ListNotifiableByDates(ctx, dates)
	if err != nil {
		return fmt.Errorf("通知対象イベントの取得に失敗しました: %w", err)
	}

	for _, event := range events {
		window, ok := s.windowFor(&event.Event, now)
		if !ok {
			continue
		}

		// 両チャネル無効の主催者には配信しない。発火記録も消費しないため、
		// ウィンドウ内に設定が有効化されればその時点で発火できる
		if !event.OwnerNotifyEmail && !event.OwnerNotifyBrowser {
			continue
		}

		// 発火記録の書き込みに成功した場合のみ配信する。
		// 既に発火済み（別サイクル・別プロセス含む）の場合はスキップ
		first, err := s.advisoryRepo.TryMarkAdvised(ctx, event.ID, window)
		if err != nil {
			s.logger.Error("リマインダー発火記録の書き込みに失敗しました",
				slog.String("event_id", event.ID),
				slog.String("window", string(window)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !first {
			continue
		}

		s.deliver(ctx, event, window)
	}

	return nil
}

// windowFor はイベントが発火ウィンドウに入っているかを判定する。
// 1hウィンドウを先に判定するため、24hウィンドウの未発火イベントが
// 開催直前になった場合でも直近のウィンドウが優先される。
func (s *Scheduler) windowFor(event *model.Event, now time.Time) (model.AdvisoryWindow, bool) {
	startsAt, err := event.StartsAt(s.loc)
	if err != nil {
		s.logger.Warn("イベント開催日時の解釈に失敗しました",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	until := startsAt.Sub(now)

	switch {
	case until > window1hLower && until <= window1hUpper:
		return model.Window1h, true
	case until > window24hLower && until <= window24hUpper:
		return model.Window24h, true
	}
	return "", false
}

// deliver はリマインダーを主催者の通知設定に従って配信する。
// メールは実送信せずログに記録する（シミュレーション）。
// 配信内容は通知記録として永続化され、直近50件のみ保持される。
func (s *Scheduler) deliver(ctx context.Context, event repository.EventWithOwnerPrefs, window model.AdvisoryWindow) {
	subject, message := advisoryText(&event.Event, window)
	s.metrics.RecordAdvisorySent(string(window))

	if event.OwnerNotifyEmail {
		// メール送信のシミュレーション
		s.logger.Info("email simulated",
			slog.String("to", event.OwnerEmail),
			slog.String("event_id", event.ID),
			slog.String("window", string(window)),
			slog.String("subject", subject),
		)
		s.record(ctx, event, window, model.NotificationTypeEmail, subject, message)
	}

	if event.OwnerNotifyBrowser {
		s.record(ctx, event, window, model.NotificationTypeBrowser, subject, message)
	}
}

// record は通知記録を永続化する。
func (s *Scheduler) record(ctx context.Context, event repository.EventWithOwnerPrefs, window model.AdvisoryWindow, typ model.NotificationType, subject, message string) {
	n := &model.Notification{
		ID:      uuid.New().String(),
		UserID:  event.UserID,
		EventID: event.ID,
		Type:    typ,
		Subject: subject,
		Message: message,
		SentAt:  s.now(),
	}
	if err := s.notificationRepo.Create(ctx, n, notificationKeep); err != nil {
		s.logger.Error("通知記録の保存に失敗しました",
			slog.String("event_id", event.ID),
			slog.String("type", string(typ)),
			slog.String("error", err.Error()),
		)
	}
}

// advisoryText はウィンドウに応じたリマインダーの件名と本文を組み立てる。
func advisoryText(event *model.Event, window model.AdvisoryWindow) (subject, message string) {
	when := "まもなく"
	if window == model.Window24h {
		when = "24時間後に"
	} else if window == model.Window1h {
		when = "1時間後に"
	}

	subject = fmt.Sprintf("リマインダー: %s", event.Name)
	message = fmt.Sprintf("イベント「%s」が%s開催されます（%s %s）。", event.Name, when, event.Date, event.Time)
	return subject, message
}
