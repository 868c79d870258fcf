package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daiki/tsudoi/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知記録リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知記録を作成し、ユーザーごとの保持件数をkeep件に切り詰める。
// 挿入と切り詰めは同一トランザクションで行う。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification, keep int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, event_id, type, subject, message, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.EventID, n.Type, n.Subject, n.Message, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	// 直近keep件より古い記録を削除する
	_, err = tx.ExecContext(ctx,
		`DELETE FROM notifications
		 WHERE user_id = $1 AND id NOT IN (
		     SELECT id FROM notifications
		     WHERE user_id = $1
		     ORDER BY sent_at DESC
		     LIMIT $2
		 )`,
		n.UserID, keep,
	)
	if err != nil {
		return fmt.Errorf("failed to trim notifications: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByUserID はユーザーの通知記録を送信日時降順で最大limit件返す。
func (r *PostgresNotificationRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, type, subject, message, sent_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY sent_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.Type, &n.Subject, &n.Message, &n.SentAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
