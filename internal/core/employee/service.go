package employee

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/eligibility"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// HistoryRecorder は届出対象属性の変更を履歴に記録します。
type HistoryRecorder interface {
	Record(ctx context.Context, in changehistory.RecordInput) ([]changehistory.Event, error)
}

// PremiumPurger は従業員に紐づく未徴収保険料レコードを削除します。
// PurgeForEmployee はトランザクション内で呼ばれ、NotifyPurged はコミット後にのみ呼ばれます。
type PremiumPurger interface {
	PurgeForEmployee(ctx context.Context, employeeID string) (int64, error)
	NotifyPurged(ctx context.Context, employeeID string)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は従業員に関するユースケースをまとめます。
type Service struct {
	repo     Repository
	clock    Clock
	tx       TransactionManager
	history  HistoryRecorder
	premiums PremiumPurger
	newID    func() string
	logger   *zap.Logger
}

// UseCase は従業員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*UpdateEmployeeResult, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	EvaluateEmployee(ctx context.Context, in EvaluateEmployeeInput) (*Evaluation, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithHistoryRecorder は更新時の変更履歴記録先を設定します。
func WithHistoryRecorder(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithPremiumPurger は削除時の未徴収保険料の削除先を設定します。
func WithPremiumPurger(p PremiumPurger) Option {
	return func(s *Service) { s.premiums = p }
}

// WithLogger はロガーを設定します。
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator は従業員 ID の採番方法を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:   repo,
		clock:  clock,
		tx:     tx,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile は画面から入力される従業員属性です。
type Profile struct {
	Name                     string
	NameKana                 string
	Gender                   string
	BirthDate                time.Time
	Address                  string
	JoinDate                 time.Time
	RetireDate               *time.Time
	OfficeNumber             string
	Prefecture               string
	WeeklyWorkHoursCategory  workcategory.WeeklyHours
	WeeklyHours              *float64
	MonthlyWage              *int
	ExpectedEmploymentMonths *int
	IsStudent                bool
	Leave                    LeaveState
}

// CreateEmployeeInput は従業員作成時の入力です。
type CreateEmployeeInput struct {
	Profile Profile
}

// UpdateEmployeeInput は従業員更新時の入力です。Profile で全属性を置き換えます。
// EffectiveDate は変更履歴に記録する変更日で、未指定時は現在日付を用います。
type UpdateEmployeeInput struct {
	ID            string
	Profile       Profile
	EffectiveDate *time.Time
}

// UpdateEmployeeResult は更新後の従業員と検知された変更です。
type UpdateEmployeeResult struct {
	Employee *Employee
	Changes  []changehistory.Event
}

// DeleteEmployeeInput は従業員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// GetEmployeeInput は従業員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	OfficeNumber *string
	PageSize     int
	PageToken    string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// EvaluateEmployeeInput は加入判定の入力です。
type EvaluateEmployeeInput struct {
	ID            string
	ReferenceDate time.Time
}

// CreateEmployee は新しい従業員を登録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	profile, err := normalizeProfile(in.Profile)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	emp := &Employee{ID: s.newID(), CreatedAt: now, UpdatedAt: now}
	applyProfile(emp, profile)

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateEmployee は従業員情報を更新し、届出対象属性の変更を同一トランザクションで履歴に記録します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*UpdateEmployeeResult, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	profile, err := normalizeProfile(in.Profile)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	effective := now
	if in.EffectiveDate != nil {
		effective = *in.EffectiveDate
	}

	result := &UpdateEmployeeResult{}
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, strings.TrimSpace(in.ID))
		if err != nil {
			return err
		}
		previous := existing.RegulatedSnapshot()

		applyProfile(existing, profile)
		existing.UpdatedAt = now

		updated, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		result.Employee = updated

		if s.history == nil {
			return nil
		}
		changes, err := s.history.Record(txCtx, changehistory.RecordInput{
			EmployeeID:    updated.ID,
			Previous:      previous,
			Current:       updated.RegulatedSnapshot(),
			EffectiveDate: effective,
		})
		if err != nil {
			return err
		}
		result.Changes = changes
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteEmployee は従業員を削除し、紐づく未徴収保険料レコードも削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var purged int64
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		purged = 0
		if s.premiums != nil {
			n, err := s.premiums.PurgeForEmployee(txCtx, id)
			if err != nil {
				return err
			}
			purged = n
		}
		return s.repo.Delete(txCtx, id)
	}); err != nil {
		return err
	}

	s.logger.Info("employee purged", zap.String("employee_id", id), zap.Int64("premiums_deleted", purged))
	if purged > 0 {
		s.premiums.NotifyPurged(ctx, id)
	}
	return nil
}

// GetEmployee は従業員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は従業員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var office *string
	if in.OfficeNumber != nil {
		trimmed := strings.TrimSpace(*in.OfficeNumber)
		office = &trimmed
	}

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultEmployees, token, err := s.repo.List(txCtx, ListEmployeesFilter{
			OfficeNumber: office,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return err
		}
		employees = resultEmployees
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

// EvaluateEmployee は保存済みの属性から勤務区分を再計算し、基準日時点の加入可否を判定します。
func (s *Service) EvaluateEmployee(ctx context.Context, in EvaluateEmployeeInput) (*Evaluation, error) {
	if in.ReferenceDate.IsZero() {
		return nil, ErrInvalidReferenceDate
	}

	emp, err := s.GetEmployee(ctx, GetEmployeeInput{ID: in.ID})
	if err != nil {
		return nil, err
	}

	return Evaluate(emp, in.ReferenceDate), nil
}

// Evaluate は従業員の勤務区分と基準日時点の加入可否を算出します。
func Evaluate(emp *Employee, referenceDate time.Time) *Evaluation {
	ref := dateOnly(referenceDate)
	category := emp.WorkCategory()
	onLeave := emp.OnMaternityOrChildcareLeave(ref)

	return &Evaluation{
		Employee:      emp,
		ReferenceDate: ref,
		WorkCategory:  category,
		Eligibility:   eligibility.Check(emp.EligibilitySubject(), category, ref),
		OnLeave:       onLeave,
		PremiumExempt: onLeave && category.IsExemptFromPremiumsDuringMaternityLeave(),
	}
}

func applyProfile(emp *Employee, p Profile) {
	emp.Name = p.Name
	emp.NameKana = p.NameKana
	emp.Gender = p.Gender
	emp.BirthDate = p.BirthDate
	emp.Address = p.Address
	emp.JoinDate = p.JoinDate
	emp.RetireDate = p.RetireDate
	emp.OfficeNumber = p.OfficeNumber
	emp.Prefecture = p.Prefecture
	emp.WeeklyWorkHoursCategory = p.WeeklyWorkHoursCategory
	emp.WeeklyHours = p.WeeklyHours
	emp.MonthlyWage = p.MonthlyWage
	emp.ExpectedEmploymentMonths = p.ExpectedEmploymentMonths
	emp.IsStudent = p.IsStudent
	emp.Leave = p.Leave
	emp.IsShortTime = emp.WorkCategory().IsShortTimeWorker()
}

func normalizeProfile(p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Profile{}, ErrInvalidName
	}
	p.NameKana = strings.TrimSpace(p.NameKana)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Address = strings.TrimSpace(p.Address)
	p.OfficeNumber = strings.TrimSpace(p.OfficeNumber)
	p.Prefecture = strings.TrimSpace(p.Prefecture)

	if p.BirthDate.IsZero() {
		return Profile{}, ErrInvalidBirthDate
	}
	if p.JoinDate.IsZero() {
		return Profile{}, ErrInvalidJoinDate
	}
	p.BirthDate = dateOnly(p.BirthDate)
	p.JoinDate = dateOnly(p.JoinDate)
	p.RetireDate = normalizeDate(p.RetireDate)
	if p.RetireDate != nil && p.RetireDate.Before(p.JoinDate) {
		return Profile{}, ErrInvalidDateRange
	}

	if !workcategory.IsValidWeeklyHours(p.WeeklyWorkHoursCategory) {
		return Profile{}, ErrInvalidWeeklyHoursCategory
	}
	if p.WeeklyHours != nil && *p.WeeklyHours < 0 {
		return Profile{}, ErrInvalidWeeklyHours
	}
	if p.MonthlyWage != nil && *p.MonthlyWage < 0 {
		return Profile{}, ErrInvalidMonthlyWage
	}
	if p.ExpectedEmploymentMonths != nil && *p.ExpectedEmploymentMonths < 0 {
		return Profile{}, ErrInvalidEmploymentMonths
	}

	leave, err := normalizeLeave(p.Leave)
	if err != nil {
		return Profile{}, err
	}
	p.Leave = leave

	category := workcategory.Classify(workcategory.Attributes{
		WeeklyWorkHours:          p.WeeklyWorkHoursCategory,
		MonthlyWage:              p.MonthlyWage,
		ExpectedEmploymentMonths: p.ExpectedEmploymentMonths,
		IsStudent:                p.IsStudent,
	})
	if p.Leave.Maternity.Start != nil && !category.CanTakeMaternityLeave() {
		return Profile{}, ErrMaternityLeaveNotAllowed
	}

	return p, nil
}

func normalizeLeave(l LeaveState) (LeaveState, error) {
	periods := []*Period{&l.LeaveOfAbsence, &l.Maternity, &l.Childcare}
	for _, p := range periods {
		p.Start = normalizeDate(p.Start)
		p.End = normalizeDate(p.End)
		if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
			return LeaveState{}, ErrInvalidLeavePeriod
		}
	}
	l.ReturnFromLeaveDate = normalizeDate(l.ReturnFromLeaveDate)
	return l, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := dateOnly(*t)
	return &normalized
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
