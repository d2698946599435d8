package workcategory

// Category は社会保険上の勤務区分です。
type Category string

const (
	CategoryFullTime        Category = "full-time"
	CategoryShortTimeWorker Category = "short-time-worker"
	CategoryNonInsured      Category = "non-insured"
)

// WeeklyHours は所定労働時間の区分です。
type WeeklyHours string

const (
	WeeklyHours30OrMore     WeeklyHours = "30hours-or-more"
	WeeklyHours20To30       WeeklyHours = "20-30hours"
	WeeklyHoursLessThan20   WeeklyHours = "less-than-20hours"
	WeeklyHoursUnclassified WeeklyHours = ""
)

const (
	// ShortTimeMinMonthlyWage は特定適用の月額賃金要件です。
	ShortTimeMinMonthlyWage = 88000
	// ShortTimeMinEmploymentMonths は特定適用の雇用見込期間要件です。
	ShortTimeMinEmploymentMonths = 2
)

// Attributes は勤務区分の判定に用いる従業員属性です。
type Attributes struct {
	WeeklyWorkHours          WeeklyHours
	MonthlyWage              *int
	ExpectedEmploymentMonths *int
	IsStudent                bool
}

// Classify は従業員属性から勤務区分を決定します。
//
// 20-30hours 区分で特定適用の要件を満たさない場合はフルタイム扱いとなり、
// 区分が未設定または不明な場合は非加入となります。
func Classify(a Attributes) Category {
	switch a.WeeklyWorkHours {
	case WeeklyHours30OrMore:
		return CategoryFullTime
	case WeeklyHoursLessThan20:
		return CategoryNonInsured
	case WeeklyHours20To30:
		wage := intOrZero(a.MonthlyWage)
		months := intOrZero(a.ExpectedEmploymentMonths)
		if wage >= ShortTimeMinMonthlyWage && months >= ShortTimeMinEmploymentMonths && !a.IsStudent {
			return CategoryShortTimeWorker
		}
		return CategoryFullTime
	default:
		return CategoryNonInsured
	}
}

// IsValidWeeklyHours は保存可能な区分値かどうかを返します。
func IsValidWeeklyHours(h WeeklyHours) bool {
	switch h {
	case WeeklyHours30OrMore, WeeklyHours20To30, WeeklyHoursLessThan20, WeeklyHoursUnclassified:
		return true
	default:
		return false
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (c Category) IsFullTime() bool {
	return c == CategoryFullTime
}

func (c Category) IsShortTimeWorker() bool {
	return c == CategoryShortTimeWorker
}

func (c Category) IsNonInsured() bool {
	return c != CategoryFullTime && c != CategoryShortTimeWorker
}

// IsInsuranceRequired は社会保険の加入対象かどうかを返します。
func (c Category) IsInsuranceRequired() bool {
	return c == CategoryFullTime || c == CategoryShortTimeWorker
}

// CanTakeMaternityLeave は産休処理の対象かどうかを返します。フルタイムのみ対象です。
func (c Category) CanTakeMaternityLeave() bool {
	return c == CategoryFullTime
}

// IsExemptFromPremiumsDuringMaternityLeave は産休・育休中の保険料免除の対象かどうかを返します。
func (c Category) IsExemptFromPremiumsDuringMaternityLeave() bool {
	return !c.IsNonInsured()
}

// Label は画面表示用の名称を返します。
func (c Category) Label() string {
	switch c {
	case CategoryFullTime:
		return "フルタイム"
	case CategoryShortTimeWorker:
		return "短時間労働者（特定適用）"
	default:
		return "社会保険非加入"
	}
}
