//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	repo "github.com/ogurasousui/shaho-compliance/internal/adapters/repository/postgres"
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	"github.com/ogurasousui/shaho-compliance/internal/platform/config"
	pg "github.com/ogurasousui/shaho-compliance/internal/platform/db/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const migrationsDir = "../assets/migrations"

type services struct {
	employees *employee.Service
	history   *changehistory.Service
	premiums  *premium.Service
}

func setup(t *testing.T) services {
	t.Helper()

	cfg, err := config.Load(configPathFromEnv())
	require.NoError(t, err, "failed to load config")
	require.NoError(t, resetMigrations(cfg.Database.DSN(), migrationsDir), "failed to migrate database")

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	pool, err := pg.NewPool(ctx, cfg.Database, logger)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	tx := pg.NewTransactionManager(pool, logger)
	clock := stubClock{now: time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)}

	history := changehistory.NewService(repo.NewChangeHistoryRepository(pool), clock, tx, changehistory.WithLogger(logger))
	premiums := premium.NewService(repo.NewUncollectedPremiumRepository(pool), clock, tx, premium.WithLogger(logger))
	employees := employee.NewService(repo.NewEmployeeRepository(pool), clock, tx,
		employee.WithHistoryRecorder(history),
		employee.WithPremiumPurger(premiums),
		employee.WithLogger(logger),
	)
	return services{employees: employees, history: history, premiums: premiums}
}

func TestEmployeeLifecycleIntegration(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	wage := 120000
	months := 12
	hours := 32.0
	profile := employee.Profile{
		Name:                     "山田太郎",
		BirthDate:                time.Date(1985, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:                  "東京都千代田区",
		JoinDate:                 time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		OfficeNumber:             "12-ABCD",
		Prefecture:               "東京都",
		WeeklyWorkHoursCategory:  workcategory.WeeklyHours30OrMore,
		WeeklyHours:              &hours,
		MonthlyWage:              &wage,
		ExpectedEmploymentMonths: &months,
	}

	created, err := svc.employees.CreateEmployee(ctx, employee.CreateEmployeeInput{Profile: profile})
	require.NoError(t, err)
	assert.False(t, created.IsShortTime)

	shortHours := 24.0
	profile.Name = "佐藤太郎"
	profile.WeeklyWorkHoursCategory = workcategory.WeeklyHours20To30
	profile.WeeklyHours = &shortHours
	effective := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	updated, err := svc.employees.UpdateEmployee(ctx, employee.UpdateEmployeeInput{
		ID:            created.ID,
		Profile:       profile,
		EffectiveDate: &effective,
	})
	require.NoError(t, err)
	assert.True(t, updated.Employee.IsShortTime)
	require.Len(t, updated.Changes, 2)

	events, err := svc.history.List(ctx, changehistory.ListInput{EmployeeID: created.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	types := []changehistory.ChangeType{events[0].ChangeType, events[1].ChangeType}
	assert.ElementsMatch(t, []changehistory.ChangeType{changehistory.ChangeTypeName, changehistory.ChangeTypeCategory}, types)
	for _, e := range events {
		assert.True(t, e.ChangeDate.Equal(effective))
		assert.NotEmpty(t, e.NotificationForms)
	}

	eval, err := svc.employees.EvaluateEmployee(ctx, employee.EvaluateEmployeeInput{ID: created.ID, ReferenceDate: effective})
	require.NoError(t, err)
	assert.Equal(t, workcategory.CategoryShortTimeWorker, eval.WorkCategory)
	assert.True(t, eval.Eligibility.HealthInsuranceEligible)
	assert.True(t, eval.Eligibility.CareInsuranceEligible)

	_, err = svc.premiums.Reconcile(ctx, premium.ReconcileInput{
		EmployeeID: created.ID, Year: 2025, Month: 4, TotalSalary: 10000, EmployeeBornePremium: 25000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.employees.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: created.ID}))

	_, err = svc.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: created.ID})
	assert.True(t, errors.Is(err, employee.ErrEmployeeNotFound), "expected ErrEmployeeNotFound, got %v", err)

	employeeID := created.ID
	records, err := svc.premiums.List(ctx, premium.ListInput{EmployeeID: &employeeID})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPremiumReconcileIntegration(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	in := premium.ReconcileInput{EmployeeID: "emp-int", Year: 2025, Month: 5, TotalSalary: 10000, EmployeeBornePremium: 25000}

	outcome, err := svc.premiums.Reconcile(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, premium.OutcomeRecorded, outcome)

	_, err = svc.premiums.Reconcile(ctx, in)
	require.NoError(t, err)

	employeeID := "emp-int"
	records, err := svc.premiums.List(ctx, premium.ListInput{EmployeeID: &employeeID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(15000), records[0].Amount)
	firstID := records[0].ID

	in.TotalSalary = 30000
	outcome, err = svc.premiums.Reconcile(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, premium.OutcomeResolved, outcome)

	records, err = svc.premiums.List(ctx, premium.ListInput{EmployeeID: &employeeID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, firstID, records[0].ID)
	assert.True(t, records[0].Resolved)
	assert.Zero(t, records[0].Amount)
	assert.Equal(t, premium.ReasonResolved, records[0].Reason)

	in.Month = 6
	in.TotalSalary = 0
	_, err = svc.premiums.Reconcile(ctx, in)
	require.NoError(t, err)

	watchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	year := 2025
	updates, err := svc.premiums.ObserveUnresolved(watchCtx, &year)
	require.NoError(t, err)

	first := <-updates
	require.NoError(t, first.Err)
	require.Len(t, first.Records, 1)
	assert.Equal(t, 6, first.Records[0].Month)

	n, err := svc.premiums.MarkResolved(ctx, []string{first.Records[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	next := <-updates
	require.NoError(t, next.Err)
	assert.Empty(t, next.Records)
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
