package changehistory

import (
	"strconv"
	"time"
)

// ChangeType は変更履歴の種別です。
type ChangeType string

const (
	ChangeTypeName                ChangeType = "name-change"
	ChangeTypeAddress             ChangeType = "address-change"
	ChangeTypeBirthDateCorrection ChangeType = "birthdate-correction"
	ChangeTypeGender              ChangeType = "gender-change"
	ChangeTypeOfficeReassignment  ChangeType = "office-reassignment"
	ChangeTypeCategory            ChangeType = "category-change"
)

const unsetPlaceholder = "(未設定)"

const birthDateLayout = "2006-01-02"

var notificationForms = map[ChangeType][]string{
	ChangeTypeName:                {"被保険者氏名変更届"},
	ChangeTypeAddress:             {"被保険者住所変更届"},
	ChangeTypeBirthDateCorrection: {"被保険者生年月日訂正届"},
	ChangeTypeGender:              {"被保険者性別変更届"},
	ChangeTypeOfficeReassignment:  {"被保険者資格取得届（新事業所）", "被保険者資格喪失届（旧事業所）"},
	ChangeTypeCategory:            {"被保険者区分変更届"},
}

// NotificationForms は変更種別に対応する届出書類の一覧を返します。
func NotificationForms(t ChangeType) []string {
	forms := notificationForms[t]
	out := make([]string, len(forms))
	copy(out, forms)
	return out
}

// IsValidChangeType は既知の変更種別かどうかを返します。
func IsValidChangeType(t ChangeType) bool {
	_, ok := notificationForms[t]
	return ok
}

// Snapshot は届出対象となる従業員属性のスナップショットです。
type Snapshot struct {
	Name         string
	Address      string
	BirthDate    *time.Time
	Gender       string
	OfficeNumber string
	Prefecture   string
	IsShortTime  bool
	WeeklyHours  *float64
}

// Event は検知された変更一件を表します。
type Event struct {
	ID                string
	EmployeeID        string
	ChangeType        ChangeType
	ChangeDate        time.Time
	OldValue          string
	NewValue          string
	NotificationForms []string
	CreatedAt         time.Time
}

// Detect は新旧スナップショットを比較し、届出が必要な変更を返します。
// 各ルールは独立に評価され、ID と EmployeeID は呼び出し側で付与します。
func Detect(prev, next Snapshot, effectiveDate time.Time) []Event {
	changeDate := time.Date(effectiveDate.Year(), effectiveDate.Month(), effectiveDate.Day(), 0, 0, 0, 0, time.UTC)
	events := make([]Event, 0)

	emit := func(t ChangeType, oldValue, newValue string) {
		events = append(events, Event{
			ChangeType:        t,
			ChangeDate:        changeDate,
			OldValue:          oldValue,
			NewValue:          newValue,
			NotificationForms: NotificationForms(t),
		})
	}

	if prev.Name != "" && next.Name != "" && prev.Name != next.Name {
		emit(ChangeTypeName, prev.Name, next.Name)
	}

	if prev.Address != next.Address {
		emit(ChangeTypeAddress, orUnset(prev.Address), orUnset(next.Address))
	}

	oldBirth, newBirth := formatDate(prev.BirthDate), formatDate(next.BirthDate)
	if oldBirth != "" && newBirth != "" && oldBirth != newBirth {
		emit(ChangeTypeBirthDateCorrection, oldBirth, newBirth)
	}

	if prev.Gender != next.Gender {
		emit(ChangeTypeGender, orUnset(prev.Gender), orUnset(next.Gender))
	}

	if prev.OfficeNumber != next.OfficeNumber {
		emit(ChangeTypeOfficeReassignment, officeLabel(prev), officeLabel(next))
	}

	hoursChanged := prev.WeeklyHours != nil && next.WeeklyHours != nil && *prev.WeeklyHours != *next.WeeklyHours
	if prev.IsShortTime != next.IsShortTime || hoursChanged {
		emit(ChangeTypeCategory, categoryLabel(prev), categoryLabel(next))
	}

	return events
}

func orUnset(v string) string {
	if v == "" {
		return unsetPlaceholder
	}
	return v
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(birthDateLayout)
}

func officeLabel(s Snapshot) string {
	if s.OfficeNumber == "" {
		return unsetPlaceholder
	}
	if s.Prefecture == "" {
		return s.OfficeNumber
	}
	return s.OfficeNumber + " (" + s.Prefecture + ")"
}

func categoryLabel(s Snapshot) string {
	hours := "?"
	if s.WeeklyHours != nil {
		hours = strconv.FormatFloat(*s.WeeklyHours, 'f', -1, 64)
	}
	if s.IsShortTime {
		return "短時間労働者（週" + hours + "時間）"
	}
	return "通常加入（週" + hours + "時間）"
}
