// Package analytics は主催イベントの出席状況の集計を提供する。
package analytics

import (
	"context"
	"log/slog"
	"math"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/repository"
)

// Summary は主催者単位の集計結果を表す。
type Summary struct {
	EventCount        int `json:"event_count"`
	ParticipantsTotal int `json:"participants_total"`
	Attended          int `json:"attended"`
	Missed            int `json:"missed"`
	// AttendanceRate は出席率（0〜100の整数パーセント）。
	// 参加者が0人の場合は0となり、NaNにはならない。
	AttendanceRate int `json:"attendance_rate"`
}

// EventSummary はイベント単位の集計結果を表す。
type EventSummary struct {
	EventID           string `json:"event_id"`
	EventName         string `json:"event_name"`
	EventDate         string `json:"event_date"`
	ParticipantsTotal int    `json:"participants_total"`
	Attended          int    `json:"attended"`
	Missed            int    `json:"missed"`
	AttendanceRate    int    `json:"attendance_rate"`
}

// AnalyticsService は出席集計のサービス層。
// 集計元データの取得に失敗した場合は代替値を捏造せず、
// 明示的にANALYTICS_LOAD_FAILEDを返す。
type AnalyticsService struct {
	eventRepo       repository.EventRepository
	participantRepo repository.ParticipantRepository
}

// NewAnalyticsService はAnalyticsServiceの新しいインスタンスを生成する。
func NewAnalyticsService(
	eventRepo repository.EventRepository,
	participantRepo repository.ParticipantRepository,
) *AnalyticsService {
	return &AnalyticsService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
	}
}

// Summarize は指定ユーザーの全イベントの出席集計を返す。
func (s *AnalyticsService) Summarize(ctx context.Context, userID string) (*Summary, error) {
	events, err := s.eventRepo.ListByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to load events for analytics",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewAnalyticsLoadFailedError()
	}

	totals, err := s.participantRepo.AggregateByOwner(ctx, userID)
	if err != nil {
		slog.Error("failed to aggregate participants for analytics",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewAnalyticsLoadFailedError()
	}

	return &Summary{
		EventCount:        len(events),
		ParticipantsTotal: totals.Total,
		Attended:          totals.Attended,
		Missed:            totals.Missed,
		AttendanceRate:    attendanceRate(totals.Attended, totals.Total),
	}, nil
}

// SummarizeByEvent は指定ユーザーのイベントごとの出席集計を返す。
// イベントは開催日昇順で並ぶ。
func (s *AnalyticsService) SummarizeByEvent(ctx context.Context, userID string) ([]EventSummary, error) {
	events, err := s.eventRepo.ListByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to load events for analytics",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewAnalyticsLoadFailedError()
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		totals, err := s.participantRepo.CountByEventID(ctx, event.ID)
		if err != nil {
			slog.Error("failed to count participants for analytics",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewAnalyticsLoadFailedError()
		}

		summaries = append(summaries, EventSummary{
			EventID:           event.ID,
			EventName:         event.Name,
			EventDate:         event.Date,
			ParticipantsTotal: totals.Total,
			Attended:          totals.Attended,
			Missed:            totals.Missed,
			AttendanceRate:    attendanceRate(totals.Attended, totals.Total),
		})
	}

	return summaries, nil
}

// attendanceRate は出席率をパーセント（四捨五入した整数）で返す。
// totalが0の場合は0を返す。
func attendanceRate(attended, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}
