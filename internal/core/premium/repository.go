package premium

import "context"

// Repository は未徴収保険料レコードの永続化の抽象です。
// (employee_id, year, month) ごとに高々一件を保持します。
type Repository interface {
	FindByKey(ctx context.Context, key Key) (*Record, error)
	Upsert(ctx context.Context, record *Record) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
	ListUnresolved(ctx context.Context) ([]*Record, error)
	MarkResolved(ctx context.Context, ids []string) (int64, error)
	DeleteByEmployee(ctx context.Context, employeeID string) (int64, error)
}

// ListFilter はストア側で絞り込む条件です。
type ListFilter struct {
	EmployeeID *string
}
