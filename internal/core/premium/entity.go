package premium

import "time"

// Key は未徴収保険料レコードを一意に識別する従業員・年月の組です。
type Key struct {
	EmployeeID string
	Year       int
	Month      int
}

// Record は従業員・年月ごとの未徴収保険料アラートです。
type Record struct {
	ID         string
	EmployeeID string
	Year       int
	Month      int
	Amount     int64
	Reason     string
	Resolved   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key はレコードのキーを返します。
func (r *Record) Key() Key {
	return Key{EmployeeID: r.EmployeeID, Year: r.Year, Month: r.Month}
}

// IsOutstanding は未解消かつ不足額が残っているかを返します。
func (r *Record) IsOutstanding() bool {
	return !r.Resolved && r.Amount > 0
}

// Outcome は Reconcile がストアに対して行った操作です。
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeResolved  Outcome = "resolved"
	OutcomeUnchanged Outcome = "unchanged"
)
