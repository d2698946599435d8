package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

type stubRow struct {
	scanFn func(dest ...any) error
}

func (s stubRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

var employeeColumnNames = []string{
	"id", "name", "name_kana", "gender", "birth_date", "address", "join_date", "retire_date",
	"office_number", "prefecture", "weekly_work_hours_category", "weekly_hours", "monthly_wage",
	"expected_employment_months", "is_student", "is_short_time",
	"leave_of_absence_start", "leave_of_absence_end", "maternity_leave_start", "maternity_leave_end",
	"childcare_leave_start", "childcare_leave_end", "return_from_leave_date", "created_at", "updated_at",
}

func employeeRowValues(id, office string, now time.Time) []any {
	birth := time.Date(1985, 4, 1, 0, 0, 0, 0, time.UTC)
	join := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	return []any{
		id, "山田太郎", "ヤマダタロウ", "male", birth, "東京都千代田区", join, nil,
		office, "東京都", string(workcategory.WeeklyHours20To30), 24.0, int64(120000),
		int64(12), false, true,
		nil, nil, nil, nil,
		nil, nil, nil, now, now,
	}
}

func TestScanEmployee_Success(t *testing.T) {
	t.Parallel()

	birth := time.Date(1985, 4, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	retire := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	childcareStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	createdAt := time.Now().UTC()

	row := stubRow{scanFn: func(dest ...any) error {
		if len(dest) != 25 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "emp-1"
		*(dest[1].(*string)) = "山田太郎"
		*(dest[4].(*time.Time)) = birth
		*(dest[7].(*sql.NullTime)) = sql.NullTime{Time: retire, Valid: true}
		*(dest[10].(*string)) = string(workcategory.WeeklyHours20To30)
		*(dest[11].(*sql.NullFloat64)) = sql.NullFloat64{Float64: 25.5, Valid: true}
		*(dest[12].(*sql.NullInt64)) = sql.NullInt64{Int64: 100000, Valid: true}
		*(dest[15].(*bool)) = true
		*(dest[20].(*sql.NullTime)) = sql.NullTime{Time: childcareStart, Valid: true}
		*(dest[23].(*time.Time)) = createdAt
		*(dest[24].(*time.Time)) = createdAt
		return nil
	}}

	emp, err := scanEmployee(row)
	if err != nil {
		t.Fatalf("scanEmployee returned error: %v", err)
	}

	wantBirth := time.Date(1985, 4, 1, 0, 0, 0, 0, time.UTC)
	if !emp.BirthDate.Equal(wantBirth) {
		t.Fatalf("expected birth date normalized to %v, got %v", wantBirth, emp.BirthDate)
	}
	if emp.RetireDate == nil || !emp.RetireDate.Equal(retire) {
		t.Fatalf("expected retire date, got %+v", emp.RetireDate)
	}
	if emp.WeeklyWorkHoursCategory != workcategory.WeeklyHours20To30 {
		t.Fatalf("unexpected weekly hours category %q", emp.WeeklyWorkHoursCategory)
	}
	if emp.WeeklyHours == nil || *emp.WeeklyHours != 25.5 {
		t.Fatalf("expected weekly hours 25.5, got %+v", emp.WeeklyHours)
	}
	if emp.MonthlyWage == nil || *emp.MonthlyWage != 100000 {
		t.Fatalf("expected monthly wage 100000, got %+v", emp.MonthlyWage)
	}
	if emp.ExpectedEmploymentMonths != nil {
		t.Fatalf("expected nil employment months, got %v", *emp.ExpectedEmploymentMonths)
	}
	if emp.Leave.Childcare.Start == nil || !emp.Leave.Childcare.Start.Equal(childcareStart) {
		t.Fatalf("expected childcare start, got %+v", emp.Leave.Childcare.Start)
	}
	if emp.Leave.Childcare.End != nil || emp.Leave.Maternity.Start != nil {
		t.Fatalf("expected unset leave dates to stay nil")
	}
	if !emp.IsShortTime {
		t.Fatalf("expected is_short_time to be scanned")
	}
}

func TestScanEmployee_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	_, err := scanEmployee(row)
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestTranslateEmployeePgError(t *testing.T) {
	t.Parallel()

	leaveErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "employees_leave_period_check"}
	if !errors.Is(translateEmployeePgError(leaveErr), employee.ErrInvalidLeavePeriod) {
		t.Fatalf("expected leave constraint to map to ErrInvalidLeavePeriod")
	}

	checkErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "employees_retire_date_check"}
	if !errors.Is(translateEmployeePgError(checkErr), employee.ErrInvalidDateRange) {
		t.Fatalf("expected check violation to map to ErrInvalidDateRange")
	}

	if !errors.Is(translateEmployeePgError(pgx.ErrNoRows), employee.ErrEmployeeNotFound) {
		t.Fatalf("expected no rows to map to ErrEmployeeNotFound")
	}

	categoryErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "employees_weekly_work_hours_category_check"}
	if !errors.Is(translateEmployeePgError(categoryErr), employee.ErrInvalidWeeklyHoursCategory) {
		t.Fatalf("expected category constraint to map to ErrInvalidWeeklyHoursCategory")
	}

	other := errors.New("other")
	if translateEmployeePgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
	if translateEmployeePgError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestEmployeeRepository_List_WithOfficeFilter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	office := "12-ABCD"
	now := time.Now().UTC()

	rows := pgxmock.NewRows(employeeColumnNames).
		AddRow(employeeRowValues("emp-1", office, now)...).
		AddRow(employeeRowValues("emp-2", office, now)...).
		AddRow(employeeRowValues("emp-3", office, now)...)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM employees WHERE office_number = $1`)).
		WithArgs(office, 3, 0).
		WillReturnRows(rows)

	employees, nextToken, err := repo.List(context.Background(), employee.ListEmployeesFilter{
		OfficeNumber: &office,
		Limit:        2,
		Offset:       0,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	if nextToken != "2" {
		t.Fatalf("expected next token '2', got %s", nextToken)
	}
	if employees[0].MonthlyWage == nil || *employees[0].MonthlyWage != 120000 {
		t.Fatalf("expected monthly wage to be scanned, got %+v", employees[0].MonthlyWage)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_List_LastPage(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(employeeColumnNames).
		AddRow(employeeRowValues("emp-9", "99-ZZZZ", now)...)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC`)).
		WithArgs(11, 10).
		WillReturnRows(rows)

	employees, nextToken, err := repo.List(context.Background(), employee.ListEmployeesFilter{Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(employees) != 1 || nextToken != "" {
		t.Fatalf("expected single employee without next token, got %d %q", len(employees), nextToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_List_InvalidFilter(t *testing.T) {
	t.Parallel()

	repo := NewEmployeeRepository(nil)

	if _, _, err := repo.List(context.Background(), employee.ListEmployeesFilter{Limit: 0}); !errors.Is(err, employee.ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, _, err := repo.List(context.Background(), employee.ListEmployeesFilter{Limit: 1, Offset: -1}); !errors.Is(err, employee.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestEmployeeRepository_Delete_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM employees WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewEmployeeRepository(mock)
	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM employees`)).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(employeeColumnNames))

	repo := NewEmployeeRepository(mock)
	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
