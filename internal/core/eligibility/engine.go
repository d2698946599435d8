package eligibility

import (
	"time"

	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
)

const (
	CareInsuranceMinAge   = 40
	PensionMaxAge         = 70
	HealthInsuranceMaxAge = 75
)

const (
	ReasonRetired         = "退職済みのため加入不可"
	ReasonAge75OrOver     = "75歳以上のため健康保険・介護保険は加入不可"
	ReasonAge70OrOver     = "70歳以上のため厚生年金は停止"
	ReasonNonInsured      = "勤務区分が社会保険非加入のため加入不可"
	ReasonFullTime        = "勤務区分がフルタイムのため加入対象"
	ReasonShortTimeWorker = "勤務区分が短時間労働者（特定適用）に該当するため加入対象"
)

// Subject は加入判定に必要な従業員の日付属性です。
type Subject struct {
	BirthDate  time.Time
	RetireDate *time.Time
}

// Result は保険種別ごとの加入可否と判定理由です。
type Result struct {
	HealthInsuranceEligible bool     `json:"healthInsuranceEligible"`
	PensionEligible         bool     `json:"pensionEligible"`
	CareInsuranceEligible   bool     `json:"careInsuranceEligible"`
	Reasons                 []string `json:"reasons"`
}

// Check は基準日時点の健康保険・厚生年金・介護保険の加入可否を判定します。
// 理由は発火したルールの順に蓄積され、退職済みの場合のみ判定を打ち切ります。
func Check(subject Subject, category workcategory.Category, referenceDate time.Time) Result {
	ref := dateOnly(referenceDate)

	if subject.RetireDate != nil && dateOnly(*subject.RetireDate).Before(ref) {
		return Result{Reasons: []string{ReasonRetired}}
	}

	result := Result{
		HealthInsuranceEligible: true,
		PensionEligible:         true,
		Reasons:                 make([]string, 0, 2),
	}

	age := AgeAt(subject.BirthDate, ref)

	result.CareInsuranceEligible = age >= CareInsuranceMinAge

	if age >= HealthInsuranceMaxAge {
		result.HealthInsuranceEligible = false
		result.CareInsuranceEligible = false
		result.Reasons = append(result.Reasons, ReasonAge75OrOver)
	}

	if age >= PensionMaxAge {
		result.PensionEligible = false
		if age < HealthInsuranceMaxAge {
			result.Reasons = append(result.Reasons, ReasonAge70OrOver)
		}
	}

	switch {
	case category.IsNonInsured():
		result.HealthInsuranceEligible = false
		result.PensionEligible = false
		result.CareInsuranceEligible = false
		result.Reasons = append(result.Reasons, ReasonNonInsured)
	case category.IsShortTimeWorker():
		result.Reasons = append(result.Reasons, ReasonShortTimeWorker)
	default:
		result.Reasons = append(result.Reasons, ReasonFullTime)
	}

	return result
}

// AgeAt は基準日時点の満年齢を返します。誕生日当日に加齢します。
func AgeAt(birthDate, referenceDate time.Time) int {
	birth := dateOnly(birthDate)
	ref := dateOnly(referenceDate)

	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}
	return age
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
