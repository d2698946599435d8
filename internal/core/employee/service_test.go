package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/eligibility"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeEmployeeRepo struct {
	employees map[string]*Employee
	order     []string
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	clone := cloneEmployee(e)
	r.employees[e.ID] = clone
	r.order = append(r.order, e.ID)
	return cloneEmployee(clone), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) (*Employee, error) {
	if _, ok := r.employees[e.ID]; !ok {
		return nil, ErrEmployeeNotFound
	}
	r.employees[e.ID] = cloneEmployee(e)
	return cloneEmployee(e), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.employees[id]; !ok {
		return ErrEmployeeNotFound
	}
	delete(r.employees, id)
	for idx, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id string) (*Employee, error) {
	emp, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return cloneEmployee(emp), nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter ListEmployeesFilter) ([]*Employee, string, error) {
	var filtered []*Employee
	for _, id := range r.order {
		emp := r.employees[id]
		if filter.OfficeNumber != nil && emp.OfficeNumber != *filter.OfficeNumber {
			continue
		}
		filtered = append(filtered, cloneEmployee(emp))
	}

	if filter.Offset > len(filtered) {
		return []*Employee{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	nextToken := ""
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return filtered[filter.Offset:end], nextToken, nil
}

func cloneEmployee(emp *Employee) *Employee {
	if emp == nil {
		return nil
	}
	clone := *emp
	return &clone
}

type recordingHistory struct {
	inputs []changehistory.RecordInput
	err    error
}

func (h *recordingHistory) Record(_ context.Context, in changehistory.RecordInput) ([]changehistory.Event, error) {
	if h.err != nil {
		return nil, h.err
	}
	h.inputs = append(h.inputs, in)
	return changehistory.Detect(in.Previous, in.Current, in.EffectiveDate), nil
}

// nestingTx は開いているトランザクションの深さを記録します。
type nestingTx struct {
	depth int
}

func (n *nestingTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return n.within(ctx, fn)
}

func (n *nestingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return n.within(ctx, fn)
}

func (n *nestingTx) within(ctx context.Context, fn func(context.Context) error) error {
	n.depth++
	defer func() { n.depth-- }()
	return fn(ctx)
}

type recordingPurger struct {
	tx           *nestingTx
	ids          []string
	notified     []string
	notifyDepths []int
	deleted      int64
	err          error
}

func (p *recordingPurger) PurgeForEmployee(_ context.Context, employeeID string) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.ids = append(p.ids, employeeID)
	return p.deleted, nil
}

func (p *recordingPurger) NotifyPurged(_ context.Context, employeeID string) {
	p.notified = append(p.notified, employeeID)
	if p.tx != nil {
		p.notifyDepths = append(p.notifyDepths, p.tx.depth)
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("emp-%d", n)
	}
}

func intPtr(v int) *int {
	return &v
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func baseProfile() Profile {
	return Profile{
		Name:                     "  田中 花子 ",
		NameKana:                 "タナカ ハナコ",
		Gender:                   "female",
		BirthDate:                time.Date(1985, 1, 1, 15, 0, 0, 0, time.UTC),
		Address:                  "東京都千代田区",
		JoinDate:                 time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		OfficeNumber:             "1001",
		Prefecture:               "東京都",
		WeeklyWorkHoursCategory:  workcategory.WeeklyHours20To30,
		MonthlyWage:              intPtr(120000),
		ExpectedEmploymentMonths: intPtr(12),
	}
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(repo, &stubClock{now: now}, nil, WithIDGenerator(sequentialIDs()))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)

	assert.Equal(t, "emp-1", created.ID)
	assert.Equal(t, "田中 花子", created.Name, "name should be trimmed")
	assert.True(t, created.BirthDate.Equal(time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)), "birth date truncated to date, got %v", created.BirthDate)
	assert.True(t, created.IsShortTime, "IsShortTime derived from work attributes")
	assert.True(t, created.CreatedAt.Equal(now))
	assert.True(t, created.UpdatedAt.Equal(now))
}

func TestService_CreateEmployee_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   error
	}{
		{"empty name", func(p *Profile) { p.Name = "  " }, ErrInvalidName},
		{"missing birth date", func(p *Profile) { p.BirthDate = time.Time{} }, ErrInvalidBirthDate},
		{"missing join date", func(p *Profile) { p.JoinDate = time.Time{} }, ErrInvalidJoinDate},
		{"retire before join", func(p *Profile) { p.RetireDate = datePtr(2019, 3, 31) }, ErrInvalidDateRange},
		{"unknown hours category", func(p *Profile) { p.WeeklyWorkHoursCategory = "full" }, ErrInvalidWeeklyHoursCategory},
		{"negative weekly hours", func(p *Profile) { h := -1.0; p.WeeklyHours = &h }, ErrInvalidWeeklyHours},
		{"negative wage", func(p *Profile) { p.MonthlyWage = intPtr(-1) }, ErrInvalidMonthlyWage},
		{"negative months", func(p *Profile) { p.ExpectedEmploymentMonths = intPtr(-1) }, ErrInvalidEmploymentMonths},
		{"leave end before start", func(p *Profile) {
			p.Leave.LeaveOfAbsence = Period{Start: datePtr(2024, 5, 1), End: datePtr(2024, 4, 1)}
		}, ErrInvalidLeavePeriod},
		{"maternity leave for short-time worker", func(p *Profile) {
			p.Leave.Maternity = Period{Start: datePtr(2024, 5, 1)}
		}, ErrMaternityLeaveNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewService(newFakeEmployeeRepo(), &stubClock{now: time.Now().UTC()}, nil)
			p := baseProfile()
			tt.mutate(&p)

			_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: p})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_UpdateEmployee_RecordsChanges(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	history := &recordingHistory{}
	clk := &stubClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clk, nil, WithIDGenerator(sequentialIDs()), WithHistoryRecorder(history))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)

	p := baseProfile()
	p.Name = "佐藤 花子"
	p.WeeklyWorkHoursCategory = workcategory.WeeklyHours30OrMore
	effective := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	result, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Profile: p, EffectiveDate: &effective})
	require.NoError(t, err)

	assert.False(t, result.Employee.IsShortTime, "IsShortTime recomputed")
	assert.True(t, result.Employee.UpdatedAt.Equal(clk.now))
	require.Len(t, result.Changes, 2)
	assert.Equal(t, changehistory.ChangeTypeName, result.Changes[0].ChangeType)
	assert.Equal(t, changehistory.ChangeTypeCategory, result.Changes[1].ChangeType)

	require.Len(t, history.inputs, 1)
	assert.True(t, history.inputs[0].EffectiveDate.Equal(effective))
	assert.Equal(t, "田中 花子", history.inputs[0].Previous.Name)
}

func TestService_UpdateEmployee_HistoryFailureAborts(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	historyErr := errors.New("history store unavailable")
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil, WithHistoryRecorder(&recordingHistory{err: historyErr}))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)

	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Profile: baseProfile()})
	assert.ErrorIs(t, err, historyErr)
}

func TestService_UpdateEmployee_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), &stubClock{now: time.Now().UTC()}, nil)

	_, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: "missing", Profile: baseProfile()})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: " ", Profile: baseProfile()})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestService_DeleteEmployee_PurgesPremiums(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	tx := &nestingTx{}
	purger := &recordingPurger{tx: tx, deleted: 2}
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, tx, WithPremiumPurger(purger))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: created.ID}))

	assert.Equal(t, []string{created.ID}, purger.ids)
	assert.Equal(t, []string{created.ID}, purger.notified)
	assert.Equal(t, []int{0}, purger.notifyDepths, "notification must follow the commit")

	_, err = repo.FindByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestService_DeleteEmployee_RollbackDoesNotNotify(t *testing.T) {
	t.Parallel()

	tx := &nestingTx{}
	purger := &recordingPurger{tx: tx, deleted: 3}
	svc := NewService(newFakeEmployeeRepo(), &stubClock{now: time.Now().UTC()}, tx, WithPremiumPurger(purger))

	err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: "missing"})
	require.ErrorIs(t, err, ErrEmployeeNotFound)

	assert.Equal(t, []string{"missing"}, purger.ids, "purge runs inside the transaction")
	assert.Empty(t, purger.notified)
}

func TestService_DeleteEmployee_NothingPurgedDoesNotNotify(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	purger := &recordingPurger{}
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil, WithPremiumPurger(purger))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: created.ID}))
	assert.Empty(t, purger.notified)

	purger.err = errors.New("premium store unavailable")
	created, err = svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: baseProfile()})
	require.NoError(t, err)
	err = svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: created.ID})
	assert.ErrorIs(t, err, purger.err)

	_, err = repo.FindByID(context.Background(), created.ID)
	assert.NoError(t, err, "employee kept when purge fails")
}

func TestService_ListEmployees_Pagination(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil, WithIDGenerator(sequentialIDs()))

	for i := 0; i < 3; i++ {
		p := baseProfile()
		if i == 2 {
			p.OfficeNumber = "2002"
		}
		_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: p})
		require.NoError(t, err)
	}

	office := "1001"
	first, err := svc.ListEmployees(context.Background(), ListEmployeesInput{OfficeNumber: &office, PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, first.Employees, 1)
	assert.Equal(t, "1", first.NextPageToken)

	second, err := svc.ListEmployees(context.Background(), ListEmployeesInput{OfficeNumber: &office, PageSize: 1, PageToken: first.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, second.Employees, 1)
	assert.Empty(t, second.NextPageToken)

	_, err = svc.ListEmployees(context.Background(), ListEmployeesInput{PageToken: "abc"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
	_, err = svc.ListEmployees(context.Background(), ListEmployeesInput{PageSize: maxListPageSize + 1})
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestService_EvaluateEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &stubClock{now: time.Now().UTC()}, nil)

	p := baseProfile()
	p.WeeklyWorkHoursCategory = workcategory.WeeklyHours30OrMore
	p.Leave.Maternity = Period{Start: datePtr(2024, 12, 1), End: datePtr(2025, 2, 28)}

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Profile: p})
	require.NoError(t, err)

	eval, err := svc.EvaluateEmployee(context.Background(), EvaluateEmployeeInput{ID: created.ID, ReferenceDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.Equal(t, workcategory.CategoryFullTime, eval.WorkCategory)
	assert.True(t, eval.Eligibility.HealthInsuranceEligible)
	assert.True(t, eval.Eligibility.PensionEligible)
	assert.True(t, eval.Eligibility.CareInsuranceEligible, "care insurance applies from age 40")
	assert.True(t, eval.OnLeave)
	assert.True(t, eval.PremiumExempt)

	_, err = svc.EvaluateEmployee(context.Background(), EvaluateEmployeeInput{ID: created.ID})
	assert.ErrorIs(t, err, ErrInvalidReferenceDate)
}

func TestEvaluate_NonInsuredIsNeverExempt(t *testing.T) {
	t.Parallel()

	emp := &Employee{
		BirthDate:               time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		WeeklyWorkHoursCategory: workcategory.WeeklyHoursLessThan20,
		Leave:                   LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1)}},
	}

	eval := Evaluate(emp, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, eval.OnLeave, "childcare leave in effect")
	assert.False(t, eval.PremiumExempt, "non-insured employee is never premium exempt")
	assert.Equal(t, []string{eligibility.ReasonNonInsured}, eval.Eligibility.Reasons)
}

func TestEmployee_OnMaternityOrChildcareLeave_ReturnDateClosesOpenLeave(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		leave LeaveState
		ref   time.Time
		want  bool
	}{
		{
			name:  "open leave without return date",
			leave: LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1)}},
			ref:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "day before return",
			leave: LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1)}, ReturnFromLeaveDate: datePtr(2024, 10, 1)},
			ref:   time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "on return date",
			leave: LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1)}, ReturnFromLeaveDate: datePtr(2024, 10, 1)},
			ref:   time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "maternity leave closed by return",
			leave: LeaveState{Maternity: Period{Start: datePtr(2024, 3, 1)}, ReturnFromLeaveDate: datePtr(2024, 6, 1)},
			ref:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "return date from an earlier leave is ignored",
			leave: LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1)}, ReturnFromLeaveDate: datePtr(2023, 5, 1)},
			ref:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "explicit end date wins",
			leave: LeaveState{Childcare: Period{Start: datePtr(2024, 1, 1), End: datePtr(2024, 12, 31)}, ReturnFromLeaveDate: datePtr(2024, 6, 1)},
			ref:   time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			emp := &Employee{Leave: tt.leave}
			assert.Equal(t, tt.want, emp.OnMaternityOrChildcareLeave(tt.ref))
		})
	}
}
