package changehistory

import "errors"

var (
	ErrInvalidEmployeeID  = errors.New("changehistory: invalid employee id")
	ErrInvalidChangeType  = errors.New("changehistory: invalid change type")
	ErrInvalidPageSize    = errors.New("changehistory: invalid page size")
	ErrInvalidEffectiveAt = errors.New("changehistory: effective date is required")
)
