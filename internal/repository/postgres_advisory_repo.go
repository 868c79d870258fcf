package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daiki/tsudoi/internal/model"
)

// PostgresAdvisoryRepo はPostgreSQLを使用したリマインダーウォーターマークリポジトリ。
type PostgresAdvisoryRepo struct {
	db *sql.DB
}

// NewPostgresAdvisoryRepo はPostgresAdvisoryRepoを生成する。
func NewPostgresAdvisoryRepo(db *sql.DB) *PostgresAdvisoryRepo {
	return &PostgresAdvisoryRepo{db: db}
}

// TryMarkAdvised は(イベント, ウィンドウ)の発火記録を試みる。
// 主キー衝突はDO NOTHINGで握りつぶし、挿入できた場合のみtrueを返す。
// 複数ワーカーや再起動をまたいだ二重発火はここで1箇所だけで防がれる。
func (r *PostgresAdvisoryRepo) TryMarkAdvised(ctx context.Context, eventID string, window model.AdvisoryWindow) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO event_advisories (event_id, advisory_window, advised_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (event_id, advisory_window) DO NOTHING`,
		eventID, window,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark advisory: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ AdvisoryRepository = (*PostgresAdvisoryRepo)(nil)
