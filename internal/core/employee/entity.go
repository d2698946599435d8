package employee

import (
	"time"

	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/eligibility"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
)

// Period は開始日・終了日の組です。どちらも未設定を許容します。
type Period struct {
	Start *time.Time
	End   *time.Time
}

// Contains は基準日が期間内かどうかを返します。終了日未設定は継続中とみなします。
func (p Period) Contains(ref time.Time) bool {
	if p.Start == nil {
		return false
	}
	if ref.Before(*p.Start) {
		return false
	}
	return p.End == nil || !ref.After(*p.End)
}

// closedBy は終了日未設定の期間を復職日の前日で閉じた期間を返します。
// 開始日より前の復職日は以前の休業に対するものとして無視します。
func (p Period) closedBy(returnDate *time.Time) Period {
	if p.Start == nil || p.End != nil || returnDate == nil || !returnDate.After(*p.Start) {
		return p
	}
	end := returnDate.AddDate(0, 0, -1)
	return Period{Start: p.Start, End: &end}
}

// LeaveState は休職・産前産後休業・育児休業の状態です。
type LeaveState struct {
	LeaveOfAbsence      Period
	Maternity           Period
	Childcare           Period
	ReturnFromLeaveDate *time.Time
}

// Employee は従業員エンティティです。
//
// IsShortTime は勤務区分から導出される値で、保存のたびに再計算されます。
type Employee struct {
	ID                       string
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
	IsShortTime              bool
	Leave                    LeaveState
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// WorkAttributes は勤務区分判定の入力を返します。
func (e *Employee) WorkAttributes() workcategory.Attributes {
	return workcategory.Attributes{
		WeeklyWorkHours:          e.WeeklyWorkHoursCategory,
		MonthlyWage:              e.MonthlyWage,
		ExpectedEmploymentMonths: e.ExpectedEmploymentMonths,
		IsStudent:                e.IsStudent,
	}
}

// WorkCategory は現在の属性から勤務区分を算出します。
func (e *Employee) WorkCategory() workcategory.Category {
	return workcategory.Classify(e.WorkAttributes())
}

// EligibilitySubject は加入判定の入力を返します。
func (e *Employee) EligibilitySubject() eligibility.Subject {
	return eligibility.Subject{BirthDate: e.BirthDate, RetireDate: e.RetireDate}
}

// RegulatedSnapshot は届出対象属性のスナップショットを返します。
func (e *Employee) RegulatedSnapshot() changehistory.Snapshot {
	birth := e.BirthDate
	var birthPtr *time.Time
	if !birth.IsZero() {
		birthPtr = &birth
	}
	return changehistory.Snapshot{
		Name:         e.Name,
		Address:      e.Address,
		BirthDate:    birthPtr,
		Gender:       e.Gender,
		OfficeNumber: e.OfficeNumber,
		Prefecture:   e.Prefecture,
		IsShortTime:  e.IsShortTime,
		WeeklyHours:  e.WeeklyHours,
	}
}

// OnMaternityOrChildcareLeave は基準日に産前産後休業または育児休業中かを返します。
// 終了日未設定の休業は復職日の前日までとみなします。
func (e *Employee) OnMaternityOrChildcareLeave(ref time.Time) bool {
	ret := e.Leave.ReturnFromLeaveDate
	return e.Leave.Maternity.closedBy(ret).Contains(ref) || e.Leave.Childcare.closedBy(ret).Contains(ref)
}

// Evaluation は基準日時点の勤務区分と加入判定の結果です。
type Evaluation struct {
	Employee      *Employee
	ReferenceDate time.Time
	WorkCategory  workcategory.Category
	Eligibility   eligibility.Result
	OnLeave       bool
	PremiumExempt bool
}
