package handler

import (
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/eligibility"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type classifyWorkCategoryRequest struct {
	WeeklyWorkHoursCategory  string `json:"weeklyWorkHoursCategory"`
	MonthlyWage              *int   `json:"monthlyWage"`
	ExpectedEmploymentMonths *int   `json:"expectedEmploymentMonths"`
	IsStudent                bool   `json:"isStudent"`
}

type workCategoryResponse struct {
	Category                                 string `json:"category"`
	Label                                    string `json:"label"`
	IsInsuranceRequired                      bool   `json:"isInsuranceRequired"`
	CanTakeMaternityLeave                    bool   `json:"canTakeMaternityLeave"`
	IsExemptFromPremiumsDuringMaternityLeave bool   `json:"isExemptFromPremiumsDuringMaternityLeave"`
}

type checkEligibilityRequest struct {
	BirthDate     string  `json:"birthDate"`
	RetireDate    *string `json:"retireDate"`
	WorkCategory  string  `json:"workCategory"`
	ReferenceDate string  `json:"referenceDate"`
}

type periodDTO struct {
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

type leaveDTO struct {
	LeaveOfAbsence      periodDTO `json:"leaveOfAbsence"`
	Maternity           periodDTO `json:"maternity"`
	Childcare           periodDTO `json:"childcare"`
	ReturnFromLeaveDate *string   `json:"returnFromLeaveDate,omitempty"`
}

type profileDTO struct {
	Name                     string   `json:"name"`
	NameKana                 string   `json:"nameKana"`
	Gender                   string   `json:"gender"`
	BirthDate                string   `json:"birthDate"`
	Address                  string   `json:"address"`
	JoinDate                 string   `json:"joinDate"`
	RetireDate               *string  `json:"retireDate,omitempty"`
	OfficeNumber             string   `json:"officeNumber"`
	Prefecture               string   `json:"prefecture"`
	WeeklyWorkHoursCategory  string   `json:"weeklyWorkHoursCategory"`
	WeeklyHours              *float64 `json:"weeklyHours,omitempty"`
	MonthlyWage              *int     `json:"monthlyWage,omitempty"`
	ExpectedEmploymentMonths *int     `json:"expectedEmploymentMonths,omitempty"`
	IsStudent                bool     `json:"isStudent"`
	Leave                    leaveDTO `json:"leave"`
}

type employeeDTO struct {
	ID string `json:"id"`
	profileDTO
	IsShortTime  bool   `json:"isShortTime"`
	WorkCategory string `json:"workCategory"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type createEmployeeRequest struct {
	profileDTO
}

type updateEmployeeRequest struct {
	ID            string  `json:"id"`
	EffectiveDate *string `json:"effectiveDate"`
	profileDTO
}

type employeeIDRequest struct {
	ID string `json:"id"`
}

type listEmployeesRequest struct {
	OfficeNumber *string `json:"officeNumber"`
	PageSize     int     `json:"pageSize"`
	PageToken    string  `json:"pageToken"`
}

type evaluateEmployeeRequest struct {
	ID            string `json:"id"`
	ReferenceDate string `json:"referenceDate"`
}

type evaluationResponse struct {
	Employee      employeeDTO        `json:"employee"`
	ReferenceDate string             `json:"referenceDate"`
	WorkCategory  string             `json:"workCategory"`
	Eligibility   eligibility.Result `json:"eligibility"`
	OnLeave       bool               `json:"onLeave"`
	PremiumExempt bool               `json:"premiumExempt"`
}

type snapshotDTO struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	BirthDate    *string  `json:"birthDate"`
	Gender       string   `json:"gender"`
	OfficeNumber string   `json:"officeNumber"`
	Prefecture   string   `json:"prefecture"`
	IsShortTime  bool     `json:"isShortTime"`
	WeeklyHours  *float64 `json:"weeklyHours"`
}

type detectChangesRequest struct {
	Previous      snapshotDTO `json:"previous"`
	Current       snapshotDTO `json:"current"`
	EffectiveDate string      `json:"effectiveDate"`
}

type changeEventDTO struct {
	ID                string   `json:"id,omitempty"`
	EmployeeID        string   `json:"employeeId,omitempty"`
	ChangeType        string   `json:"changeType"`
	ChangeDate        string   `json:"changeDate"`
	OldValue          string   `json:"oldValue"`
	NewValue          string   `json:"newValue"`
	NotificationForms []string `json:"notificationForms"`
	CreatedAt         string   `json:"createdAt,omitempty"`
}

type changesResponse struct {
	Changes []changeEventDTO `json:"changes"`
}

type listChangeHistoryRequest struct {
	EmployeeID string  `json:"employeeId"`
	ChangeType *string `json:"changeType"`
	PageSize   int     `json:"pageSize"`
}

type reconcilePremiumRequest struct {
	EmployeeID           string `json:"employeeId"`
	Year                 int    `json:"year"`
	Month                int    `json:"month"`
	TotalSalary          int64  `json:"totalSalary"`
	EmployeeBornePremium int64  `json:"employeeBornePremium"`
}

type listUncollectedPremiumsRequest struct {
	EmployeeID *string `json:"employeeId"`
	Year       *int    `json:"year"`
	Resolved   *bool   `json:"resolved"`
}

type markPremiumsResolvedRequest struct {
	IDs []string `json:"ids"`
}

type watchUnresolvedPremiumsRequest struct {
	Year *int `json:"year"`
}

type premiumDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
	Resolved   bool   `json:"resolved"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type premiumsResponse struct {
	Records []premiumDTO `json:"records"`
}

func toWorkCategoryResponse(c workcategory.Category) workCategoryResponse {
	return workCategoryResponse{
		Category:                                 string(c),
		Label:                                    c.Label(),
		IsInsuranceRequired:                      c.IsInsuranceRequired(),
		CanTakeMaternityLeave:                    c.CanTakeMaternityLeave(),
		IsExemptFromPremiumsDuringMaternityLeave: c.IsExemptFromPremiumsDuringMaternityLeave(),
	}
}

func (p profileDTO) toDomain() (employee.Profile, error) {
	birth, err := parseDate("birthDate", p.BirthDate)
	if err != nil {
		return employee.Profile{}, err
	}
	join, err := parseDate("joinDate", p.JoinDate)
	if err != nil {
		return employee.Profile{}, err
	}
	retire, err := parseOptionalDate("retireDate", p.RetireDate)
	if err != nil {
		return employee.Profile{}, err
	}

	hours := workcategory.WeeklyHours(p.WeeklyWorkHoursCategory)
	if !workcategory.IsValidWeeklyHours(hours) {
		return employee.Profile{}, status.Errorf(codes.InvalidArgument, "weeklyWorkHoursCategory: unsupported value %q", p.WeeklyWorkHoursCategory)
	}

	leave, err := p.Leave.toDomain()
	if err != nil {
		return employee.Profile{}, err
	}

	return employee.Profile{
		Name:                     p.Name,
		NameKana:                 p.NameKana,
		Gender:                   p.Gender,
		BirthDate:                birth,
		Address:                  p.Address,
		JoinDate:                 join,
		RetireDate:               retire,
		OfficeNumber:             p.OfficeNumber,
		Prefecture:               p.Prefecture,
		WeeklyWorkHoursCategory:  hours,
		WeeklyHours:              p.WeeklyHours,
		MonthlyWage:              p.MonthlyWage,
		ExpectedEmploymentMonths: p.ExpectedEmploymentMonths,
		IsStudent:                p.IsStudent,
		Leave:                    leave,
	}, nil
}

func (l leaveDTO) toDomain() (employee.LeaveState, error) {
	var (
		state employee.LeaveState
		err   error
	)
	if state.LeaveOfAbsence, err = l.LeaveOfAbsence.toDomain("leave.leaveOfAbsence"); err != nil {
		return employee.LeaveState{}, err
	}
	if state.Maternity, err = l.Maternity.toDomain("leave.maternity"); err != nil {
		return employee.LeaveState{}, err
	}
	if state.Childcare, err = l.Childcare.toDomain("leave.childcare"); err != nil {
		return employee.LeaveState{}, err
	}
	if state.ReturnFromLeaveDate, err = parseOptionalDate("leave.returnFromLeaveDate", l.ReturnFromLeaveDate); err != nil {
		return employee.LeaveState{}, err
	}
	return state, nil
}

func (p periodDTO) toDomain(field string) (employee.Period, error) {
	start, err := parseOptionalDate(field+".start", p.Start)
	if err != nil {
		return employee.Period{}, err
	}
	end, err := parseOptionalDate(field+".end", p.End)
	if err != nil {
		return employee.Period{}, err
	}
	return employee.Period{Start: start, End: end}, nil
}

func toPeriodDTO(p employee.Period) periodDTO {
	return periodDTO{Start: formatOptionalDate(p.Start), End: formatOptionalDate(p.End)}
}

func toEmployeeDTO(emp *employee.Employee) employeeDTO {
	return employeeDTO{
		ID: emp.ID,
		profileDTO: profileDTO{
			Name:                     emp.Name,
			NameKana:                 emp.NameKana,
			Gender:                   emp.Gender,
			BirthDate:                formatDate(emp.BirthDate),
			Address:                  emp.Address,
			JoinDate:                 formatDate(emp.JoinDate),
			RetireDate:               formatOptionalDate(emp.RetireDate),
			OfficeNumber:             emp.OfficeNumber,
			Prefecture:               emp.Prefecture,
			WeeklyWorkHoursCategory:  string(emp.WeeklyWorkHoursCategory),
			WeeklyHours:              emp.WeeklyHours,
			MonthlyWage:              emp.MonthlyWage,
			ExpectedEmploymentMonths: emp.ExpectedEmploymentMonths,
			IsStudent:                emp.IsStudent,
			Leave: leaveDTO{
				LeaveOfAbsence:      toPeriodDTO(emp.Leave.LeaveOfAbsence),
				Maternity:           toPeriodDTO(emp.Leave.Maternity),
				Childcare:           toPeriodDTO(emp.Leave.Childcare),
				ReturnFromLeaveDate: formatOptionalDate(emp.Leave.ReturnFromLeaveDate),
			},
		},
		IsShortTime:  emp.IsShortTime,
		WorkCategory: string(emp.WorkCategory()),
		CreatedAt:    formatTimestamp(emp.CreatedAt),
		UpdatedAt:    formatTimestamp(emp.UpdatedAt),
	}
}

func (s snapshotDTO) toDomain(field string) (changehistory.Snapshot, error) {
	birth, err := parseOptionalDate(field+".birthDate", s.BirthDate)
	if err != nil {
		return changehistory.Snapshot{}, err
	}
	return changehistory.Snapshot{
		Name:         s.Name,
		Address:      s.Address,
		BirthDate:    birth,
		Gender:       s.Gender,
		OfficeNumber: s.OfficeNumber,
		Prefecture:   s.Prefecture,
		IsShortTime:  s.IsShortTime,
		WeeklyHours:  s.WeeklyHours,
	}, nil
}

func toChangesResponse(events []changehistory.Event) changesResponse {
	out := make([]changeEventDTO, 0, len(events))
	for _, e := range events {
		dto := changeEventDTO{
			ID:                e.ID,
			EmployeeID:        e.EmployeeID,
			ChangeType:        string(e.ChangeType),
			ChangeDate:        formatDate(e.ChangeDate),
			OldValue:          e.OldValue,
			NewValue:          e.NewValue,
			NotificationForms: e.NotificationForms,
		}
		if !e.CreatedAt.IsZero() {
			dto.CreatedAt = formatTimestamp(e.CreatedAt)
		}
		out = append(out, dto)
	}
	return changesResponse{Changes: out}
}

func toPremiumsResponse(records []*premium.Record) premiumsResponse {
	out := make([]premiumDTO, 0, len(records))
	for _, r := range records {
		out = append(out, premiumDTO{
			ID:         r.ID,
			EmployeeID: r.EmployeeID,
			Year:       r.Year,
			Month:      r.Month,
			Amount:     r.Amount,
			Reason:     r.Reason,
			Resolved:   r.Resolved,
			CreatedAt:  formatTimestamp(r.CreatedAt),
			UpdatedAt:  formatTimestamp(r.UpdatedAt),
		})
	}
	return premiumsResponse{Records: out}
}
