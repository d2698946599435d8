package premium

import "errors"

var (
	ErrInvalidEmployeeID = errors.New("premium: invalid employee id")
	ErrInvalidYear       = errors.New("premium: invalid year")
	ErrInvalidMonth      = errors.New("premium: invalid month")
	ErrInvalidAmount     = errors.New("premium: amounts must not be negative")
	ErrInvalidIDs        = errors.New("premium: at least one record id is required")
	ErrRecordNotFound    = errors.New("premium: record not found")
)
