package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateParticipant は(event_id, email)の一意制約違反を表す。
var ErrDuplicateParticipant = errors.New("participant already exists for this event and email")

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresParticipantRepo はPostgreSQLを使用した参加者リポジトリ。
type PostgresParticipantRepo struct {
	db *sql.DB
}

// NewPostgresParticipantRepo はPostgresParticipantRepoを生成する。
func NewPostgresParticipantRepo(db *sql.DB) *PostgresParticipantRepo {
	return &PostgresParticipantRepo{db: db}
}

const participantColumns = `id, event_id, email, name, user_id, status, invited_by, invited_at, attended_at, event_date, event_time, created_at, updated_at`

func scanParticipant(row interface{ Scan(...any) error }) (*model.Participant, error) {
	p := &model.Participant{}
	err := row.Scan(
		&p.ID, &p.EventID, &p.Email, &p.Name, &p.UserID, &p.Status, &p.InvitedBy,
		&p.InvitedAt, &p.AttendedAt, &p.EventDate, &p.EventTime, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの参加者を取得する。見つからない場合はnilを返す。
func (r *PostgresParticipantRepo) FindByID(ctx context.Context, id string) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`,
		id,
	)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

// FindByEventAndEmail はイベントIDとメールアドレスで参加者を検索する。
// メールアドレスは大文字小文字を区別しない。見つからない場合はnilを返す。
func (r *PostgresParticipantRepo) FindByEventAndEmail(ctx context.Context, eventID, email string) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants
		 WHERE event_id = $1 AND lower(email) = lower($2)`,
		eventID, email,
	)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant by email: %w", err)
	}
	return p, nil
}

// ListByEventID はイベントの参加者一覧を招待日時昇順で返す。
func (r *PostgresParticipantRepo) ListByEventID(ctx context.Context, eventID string) ([]*model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants
		 WHERE event_id = $1 ORDER BY invited_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// Create は参加者を作成する。(event_id, email)の一意制約違反の場合は
// ErrDuplicateParticipantを返す。読み取り後の書き込みではなくDB制約で
// 競合する同時招待を防ぐ。
func (r *PostgresParticipantRepo) Create(ctx context.Context, p *model.Participant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO participants (id, event_id, email, name, user_id, status, invited_by, invited_at, attended_at, event_date, event_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.EventID, p.Email, p.Name, p.UserID, p.Status, p.InvitedBy,
		p.InvitedAt, p.AttendedAt, p.EventDate, p.EventTime, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateParticipant
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// UpdateStatus は参加者のステータスを更新する。
func (r *PostgresParticipantRepo) UpdateStatus(ctx context.Context, id string, status model.ParticipantStatus, attendedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participants
		 SET status = $2, attended_at = COALESCE($3, attended_at), updated_at = now()
		 WHERE id = $1`,
		id, status, attendedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("participant not found: %s", id)
	}
	return nil
}

// Delete は指定IDの参加者を削除する。
func (r *PostgresParticipantRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM participants WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("participant not found: %s", id)
	}
	return nil
}

// MarkAttended は出席を冪等に記録する。
// 「存在確認してから書き込む」シーケンスの競合を避けるため、
// 判定と書き込みを1文のUPSERTにまとめている。確定済み（attended/missed）の
// 参加者はWHERE句で除外されるため状態は変化せず、その場合は既存レコードを
// 読み直して返す。attendedだった場合のみAlreadyAttended=trueとなり、
// missedの場合は既存レコードをそのまま返す（遷移可否は呼び出し側が判断する）。
func (r *PostgresParticipantRepo) MarkAttended(ctx context.Context, eventID, email, name, eventDate, eventTime string) (*MarkAttendedResult, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO participants (id, event_id, email, name, status, invited_at, attended_at, event_date, event_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'attended', now(), now(), $5, $6, now(), now())
		 ON CONFLICT (event_id, lower(email)) DO UPDATE
		 SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE participants.name END,
		     status = 'attended',
		     attended_at = now(),
		     updated_at = now()
		 WHERE participants.status NOT IN ('attended', 'missed')
		 RETURNING `+participantColumns+`, (xmax = 0) AS inserted`,
		uuid.New().String(), eventID, email, name, eventDate, eventTime,
	)

	p := &model.Participant{}
	var inserted bool
	err := row.Scan(
		&p.ID, &p.EventID, &p.Email, &p.Name, &p.UserID, &p.Status, &p.InvitedBy,
		&p.InvitedAt, &p.AttendedAt, &p.EventDate, &p.EventTime, &p.CreatedAt, &p.UpdatedAt,
		&inserted,
	)
	if err == sql.ErrNoRows {
		// 確定済み（attended/missed）のため何も更新されなかった
		existing, findErr := r.FindByEventAndEmail(ctx, eventID, email)
		if findErr != nil {
			return nil, findErr
		}
		return &MarkAttendedResult{
			Participant:     existing,
			AlreadyAttended: existing != nil && existing.Status == model.StatusAttended,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}

	return &MarkAttendedResult{Participant: p, Created: inserted}, nil
}

// AggregateByOwner は指定ユーザーの全イベントの参加者を集計する。
func (r *PostgresParticipantRepo) AggregateByOwner(ctx context.Context, userID string) (*AttendanceTotals, error) {
	totals := &AttendanceTotals{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(p.id),
		        COUNT(p.id) FILTER (WHERE p.status = 'attended'),
		        COUNT(p.id) FILTER (WHERE p.status = 'missed')
		 FROM participants p
		 JOIN events e ON e.id = p.event_id
		 WHERE e.user_id = $1`,
		userID,
	).Scan(&totals.Total, &totals.Attended, &totals.Missed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate participants: %w", err)
	}
	return totals, nil
}

// CountByEventID はイベントごとのステータス集計を返す。
func (r *PostgresParticipantRepo) CountByEventID(ctx context.Context, eventID string) (*AttendanceTotals, error) {
	totals := &AttendanceTotals{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(id),
		        COUNT(id) FILTER (WHERE status = 'attended'),
		        COUNT(id) FILTER (WHERE status = 'missed')
		 FROM participants
		 WHERE event_id = $1`,
		eventID,
	).Scan(&totals.Total, &totals.Attended, &totals.Missed)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	return totals, nil
}

// compile-time interface check
var _ ParticipantRepository = (*PostgresParticipantRepo)(nil)
