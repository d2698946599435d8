package changehistory

import "context"

// Repository は変更履歴の永続化の抽象です。履歴は追記のみ行います。
type Repository interface {
	Append(ctx context.Context, events []Event) error
	ListByEmployee(ctx context.Context, filter ListFilter) ([]Event, error)
}

// ListFilter は履歴一覧の取得条件です。
type ListFilter struct {
	EmployeeID string
	ChangeType *ChangeType
	Limit      int
}
