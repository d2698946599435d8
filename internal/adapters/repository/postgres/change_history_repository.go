package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	pgdb "github.com/ogurasousui/shaho-compliance/internal/platform/db/postgres"
)

// ChangeHistoryRepository は変更履歴の PostgreSQL 実装です。履歴は追記のみ行います。
type ChangeHistoryRepository struct {
	pool pgdb.Queryer
}

// NewChangeHistoryRepository は ChangeHistoryRepository を生成します。
func NewChangeHistoryRepository(pool pgdb.Queryer) *ChangeHistoryRepository {
	return &ChangeHistoryRepository{pool: pool}
}

// Append は変更履歴を一つのバッチで追記します。
func (r *ChangeHistoryRepository) Append(ctx context.Context, events []changehistory.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
            INSERT INTO employee_change_histories
                (id, employee_id, change_type, change_date, old_value, new_value, notification_forms, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `,
			e.ID,
			e.EmployeeID,
			string(e.ChangeType),
			dateValue(e.ChangeDate),
			e.OldValue,
			e.NewValue,
			e.NotificationForms,
			e.CreatedAt,
		)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	results := exec.SendBatch(ctx, batch)
	for _, e := range events {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert change history %s: %w", e.ChangeType, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close change history batch: %w", err)
	}
	return nil
}

// ListByEmployee は従業員の変更履歴を新しい順に取得します。
func (r *ChangeHistoryRepository) ListByEmployee(ctx context.Context, filter changehistory.ListFilter) ([]changehistory.Event, error) {
	args := []any{filter.EmployeeID}
	query := `
        SELECT id, employee_id, change_type, change_date, old_value, new_value, notification_forms, created_at
          FROM employee_change_histories
         WHERE employee_id = $1`
	if filter.ChangeType != nil {
		args = append(args, string(*filter.ChangeType))
		query += ` AND change_type = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += `
         ORDER BY change_date DESC, created_at DESC
         LIMIT $` + strconv.Itoa(len(args))

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]changehistory.Event, 0, filter.Limit)
	for rows.Next() {
		e, err := scanChangeEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanChangeEvent(row pgx.Row) (changehistory.Event, error) {
	var (
		e          changehistory.Event
		changeType string
	)
	if err := row.Scan(
		&e.ID,
		&e.EmployeeID,
		&changeType,
		&e.ChangeDate,
		&e.OldValue,
		&e.NewValue,
		&e.NotificationForms,
		&e.CreatedAt,
	); err != nil {
		return changehistory.Event{}, err
	}
	e.ChangeType = changehistory.ChangeType(changeType)
	e.ChangeDate = toDate(e.ChangeDate)
	return e, nil
}
