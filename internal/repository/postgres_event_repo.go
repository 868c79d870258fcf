package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/lib/pq"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `id, user_id, name, date, time, description, notify_enabled, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	e := &model.Event{}
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Date, &e.Time, &e.Description, &e.NotifyEnabled, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return event, nil
}

// ListByUserID は指定ユーザーのイベント一覧を開催日昇順で返す。
func (r *PostgresEventRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY date ASC, time ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, name, date, time, description, notify_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.UserID, event.Name, event.Date, event.Time, event.Description, event.NotifyEnabled,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Update はイベント情報を更新する。所有者が一致しない場合は更新されない。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events
		 SET name = $3, date = $4, time = $5, description = $6, notify_enabled = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		event.ID, event.UserID, event.Name, event.Date, event.Time, event.Description, event.NotifyEnabled,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event not found or not owned: %s", event.ID)
	}
	return nil
}

// Delete は指定IDのイベントを削除する。
// participants、attendance_log、event_advisoriesはCASCADE削除される。
func (r *PostgresEventRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListNotifiableByDates は指定された開催日のうち通知が有効なイベントを
// 主催者の通知設定付きで返す。
func (r *PostgresEventRepo) ListNotifiableByDates(ctx context.Context, dates []string) ([]EventWithOwnerPrefs, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.name, e.date, e.time, e.description, e.notify_enabled,
		        e.created_at, e.updated_at,
		        u.email, u.notify_email, u.notify_browser
		 FROM events e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.date = ANY($1) AND e.notify_enabled
		 ORDER BY e.date ASC, e.time ASC`,
		pq.Array(dates),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifiable events: %w", err)
	}
	defer rows.Close()

	var results []EventWithOwnerPrefs
	for rows.Next() {
		var row EventWithOwnerPrefs
		err := rows.Scan(
			&row.ID, &row.UserID, &row.Name, &row.Date, &row.Time, &row.Description, &row.NotifyEnabled,
			&row.CreatedAt, &row.UpdatedAt,
			&row.OwnerEmail, &row.OwnerNotifyEmail, &row.OwnerNotifyBrowser,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notifiable event: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifiable events: %w", err)
	}

	return results, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
