package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	pgdb "github.com/ogurasousui/shaho-compliance/internal/platform/db/postgres"
)

const premiumColumns = `id, employee_id, year, month, amount, reason, resolved, created_at, updated_at`

// UncollectedPremiumRepository は未徴収保険料レコードの PostgreSQL 実装です。
type UncollectedPremiumRepository struct {
	pool pgdb.Queryer
}

// NewUncollectedPremiumRepository は UncollectedPremiumRepository を生成します。
func NewUncollectedPremiumRepository(pool pgdb.Queryer) *UncollectedPremiumRepository {
	return &UncollectedPremiumRepository{pool: pool}
}

// FindByKey は従業員・年月でレコードを取得します。
func (r *UncollectedPremiumRepository) FindByKey(ctx context.Context, key premium.Key) (*premium.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+premiumColumns+`
          FROM uncollected_premiums
         WHERE employee_id = $1 AND year = $2 AND month = $3
         LIMIT 1
    `, key.EmployeeID, key.Year, key.Month)

	return scanPremium(row)
}

// Upsert は (employee_id, year, month) をキーにレコードを作成または上書きします。
// 既存レコードの ID は維持されます。
func (r *UncollectedPremiumRepository) Upsert(ctx context.Context, rec *premium.Record) (*premium.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO uncollected_premiums (`+premiumColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (employee_id, year, month) DO UPDATE
           SET amount = EXCLUDED.amount,
               reason = EXCLUDED.reason,
               resolved = EXCLUDED.resolved,
               created_at = EXCLUDED.created_at,
               updated_at = EXCLUDED.updated_at
        RETURNING `+premiumColumns,
		rec.ID,
		rec.EmployeeID,
		rec.Year,
		rec.Month,
		rec.Amount,
		rec.Reason,
		rec.Resolved,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	return scanPremium(row)
}

// List はレコードを取得します。従業員 ID 以外の絞り込みは呼び出し側で行います。
func (r *UncollectedPremiumRepository) List(ctx context.Context, filter premium.ListFilter) ([]*premium.Record, error) {
	query := `SELECT ` + premiumColumns + ` FROM uncollected_premiums`
	args := make([]any, 0, 1)
	if filter.EmployeeID != nil {
		query += ` WHERE employee_id = $1`
		args = append(args, *filter.EmployeeID)
	}
	query += ` ORDER BY year DESC, month DESC, employee_id`

	return r.query(ctx, query, args...)
}

// ListUnresolved は未解消かつ不足額のあるレコードを取得します。
func (r *UncollectedPremiumRepository) ListUnresolved(ctx context.Context) ([]*premium.Record, error) {
	return r.query(ctx, `
        SELECT `+premiumColumns+`
          FROM uncollected_premiums
         WHERE resolved = FALSE AND amount > 0
         ORDER BY year DESC, month DESC, employee_id
    `)
}

// MarkResolved は指定 ID のレコードを解消済みにします。金額は変更しません。
func (r *UncollectedPremiumRepository) MarkResolved(ctx context.Context, ids []string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE uncollected_premiums
           SET resolved = TRUE,
               updated_at = NOW()
         WHERE id = ANY($1)
    `, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByEmployee は従業員の全レコードを物理削除します。
func (r *UncollectedPremiumRepository) DeleteByEmployee(ctx context.Context, employeeID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM uncollected_premiums WHERE employee_id = $1`, employeeID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *UncollectedPremiumRepository) query(ctx context.Context, sql string, args ...any) ([]*premium.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*premium.Record, 0)
	for rows.Next() {
		rec, err := scanPremium(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanPremium(row pgx.Row) (*premium.Record, error) {
	var rec premium.Record
	if err := row.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.Year,
		&rec.Month,
		&rec.Amount,
		&rec.Reason,
		&rec.Resolved,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, premium.ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}
