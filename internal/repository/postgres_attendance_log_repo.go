package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daiki/tsudoi/internal/model"
)

// PostgresAttendanceLogRepo はPostgreSQLを使用した出席監査ログリポジトリ。
// ログは追記専用であり、UPDATE/DELETEは発行しない。
type PostgresAttendanceLogRepo struct {
	db *sql.DB
}

// NewPostgresAttendanceLogRepo はPostgresAttendanceLogRepoを生成する。
func NewPostgresAttendanceLogRepo(db *sql.DB) *PostgresAttendanceLogRepo {
	return &PostgresAttendanceLogRepo{db: db}
}

// Append はログエントリを追記する。
func (r *PostgresAttendanceLogRepo) Append(ctx context.Context, entry *model.AttendanceLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_log (id, event_id, participant_email, participant_name, source, marked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.EventID, entry.ParticipantEmail, entry.ParticipantName, entry.Source, entry.MarkedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append attendance log: %w", err)
	}
	return nil
}

// ListByEventID はイベントのログ一覧を記録日時降順で返す。
func (r *PostgresAttendanceLogRepo) ListByEventID(ctx context.Context, eventID string) ([]*model.AttendanceLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, participant_email, participant_name, source, marked_at
		 FROM attendance_log
		 WHERE event_id = $1
		 ORDER BY marked_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance log: %w", err)
	}
	defer rows.Close()

	var entries []*model.AttendanceLogEntry
	for rows.Next() {
		entry := &model.AttendanceLogEntry{}
		err := rows.Scan(&entry.ID, &entry.EventID, &entry.ParticipantEmail, &entry.ParticipantName, &entry.Source, &entry.MarkedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance log: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ AttendanceLogRepository = (*PostgresAttendanceLogRepo)(nil)
