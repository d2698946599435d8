package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	pgdb "github.com/ogurasousui/shaho-compliance/internal/platform/db/postgres"
)

const checkViolationCode = "23514"

const employeeColumns = `id, name, name_kana, gender, birth_date, address, join_date, retire_date,
       office_number, prefecture, weekly_work_hours_category, weekly_hours, monthly_wage,
       expected_employment_months, is_student, is_short_time,
       leave_of_absence_start, leave_of_absence_end, maternity_leave_start, maternity_leave_end,
       childcare_leave_start, childcare_leave_end, return_from_leave_date, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した従業員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は従業員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (`+employeeColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
                $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
        RETURNING `+employeeColumns,
		e.ID,
		e.Name,
		e.NameKana,
		e.Gender,
		dateValue(e.BirthDate),
		e.Address,
		dateValue(e.JoinDate),
		nullableTime(e.RetireDate),
		e.OfficeNumber,
		e.Prefecture,
		string(e.WeeklyWorkHoursCategory),
		nullableFloat(e.WeeklyHours),
		nullableInt(e.MonthlyWage),
		nullableInt(e.ExpectedEmploymentMonths),
		e.IsStudent,
		e.IsShortTime,
		nullableTime(e.Leave.LeaveOfAbsence.Start),
		nullableTime(e.Leave.LeaveOfAbsence.End),
		nullableTime(e.Leave.Maternity.Start),
		nullableTime(e.Leave.Maternity.End),
		nullableTime(e.Leave.Childcare.Start),
		nullableTime(e.Leave.Childcare.End),
		nullableTime(e.Leave.ReturnFromLeaveDate),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は従業員情報を更新します。is_short_time はサービス層で再計算済みの値を保存します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET name = $2,
               name_kana = $3,
               gender = $4,
               birth_date = $5,
               address = $6,
               join_date = $7,
               retire_date = $8,
               office_number = $9,
               prefecture = $10,
               weekly_work_hours_category = $11,
               weekly_hours = $12,
               monthly_wage = $13,
               expected_employment_months = $14,
               is_student = $15,
               is_short_time = $16,
               leave_of_absence_start = $17,
               leave_of_absence_end = $18,
               maternity_leave_start = $19,
               maternity_leave_end = $20,
               childcare_leave_start = $21,
               childcare_leave_end = $22,
               return_from_leave_date = $23,
               updated_at = $24
         WHERE id = $1
        RETURNING `+employeeColumns,
		e.ID,
		e.Name,
		e.NameKana,
		e.Gender,
		dateValue(e.BirthDate),
		e.Address,
		dateValue(e.JoinDate),
		nullableTime(e.RetireDate),
		e.OfficeNumber,
		e.Prefecture,
		string(e.WeeklyWorkHoursCategory),
		nullableFloat(e.WeeklyHours),
		nullableInt(e.MonthlyWage),
		nullableInt(e.ExpectedEmploymentMonths),
		e.IsStudent,
		e.IsShortTime,
		nullableTime(e.Leave.LeaveOfAbsence.Start),
		nullableTime(e.Leave.LeaveOfAbsence.End),
		nullableTime(e.Leave.Maternity.Start),
		nullableTime(e.Leave.Maternity.End),
		nullableTime(e.Leave.Childcare.Start),
		nullableTime(e.Leave.Childcare.End),
		nullableTime(e.Leave.ReturnFromLeaveDate),
		e.UpdatedAt,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は従業員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で従業員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は従業員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.OfficeNumber != nil {
		args = append(args, *filter.OfficeNumber)
		whereClause = " WHERE office_number = $" + strconv.Itoa(len(args))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + whereClause + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, filter.Limit)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, "", translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateEmployeePgError(err)
	}

	var nextToken string
	if len(employees) == limitWithBuffer {
		employees = employees[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return employees, nextToken, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e              employee.Employee
		category       string
		retireDate     sql.NullTime
		weeklyHours    sql.NullFloat64
		monthlyWage    sql.NullInt64
		expectedMonths sql.NullInt64
		leaveStart     sql.NullTime
		leaveEnd       sql.NullTime
		maternityStart sql.NullTime
		maternityEnd   sql.NullTime
		childcareStart sql.NullTime
		childcareEnd   sql.NullTime
		returnDate     sql.NullTime
	)

	if err := row.Scan(
		&e.ID,
		&e.Name,
		&e.NameKana,
		&e.Gender,
		&e.BirthDate,
		&e.Address,
		&e.JoinDate,
		&retireDate,
		&e.OfficeNumber,
		&e.Prefecture,
		&category,
		&weeklyHours,
		&monthlyWage,
		&expectedMonths,
		&e.IsStudent,
		&e.IsShortTime,
		&leaveStart,
		&leaveEnd,
		&maternityStart,
		&maternityEnd,
		&childcareStart,
		&childcareEnd,
		&returnDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.BirthDate = toDate(e.BirthDate)
	e.JoinDate = toDate(e.JoinDate)
	e.RetireDate = datePtr(retireDate)
	e.WeeklyWorkHoursCategory = workcategory.WeeklyHours(category)
	if weeklyHours.Valid {
		h := weeklyHours.Float64
		e.WeeklyHours = &h
	}
	e.MonthlyWage = intPtr(monthlyWage)
	e.ExpectedEmploymentMonths = intPtr(expectedMonths)
	e.Leave = employee.LeaveState{
		LeaveOfAbsence:      employee.Period{Start: datePtr(leaveStart), End: datePtr(leaveEnd)},
		Maternity:           employee.Period{Start: datePtr(maternityStart), End: datePtr(maternityEnd)},
		Childcare:           employee.Period{Start: datePtr(childcareStart), End: datePtr(childcareEnd)},
		ReturnFromLeaveDate: datePtr(returnDate),
	}

	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case checkViolationCode:
			switch pgErr.ConstraintName {
			case "employees_leave_period_check":
				return employee.ErrInvalidLeavePeriod
			case "employees_weekly_work_hours_category_check":
				return employee.ErrInvalidWeeklyHoursCategory
			case "employees_non_negative_check":
				return fmt.Errorf("%w: %s", employee.ErrInvalidMonthlyWage, pgErr.Message)
			}
			return employee.ErrInvalidDateRange
		}
	}

	return err
}

func toDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func datePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	d := toDate(v.Time)
	return &d
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func dateValue(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateValue(*value)
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
