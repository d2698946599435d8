package employee

import "errors"

var (
	ErrInvalidID                  = errors.New("employee: invalid id")
	ErrInvalidName                = errors.New("employee: invalid name")
	ErrInvalidBirthDate           = errors.New("employee: birth date is required")
	ErrInvalidJoinDate            = errors.New("employee: join date is required")
	ErrInvalidDateRange           = errors.New("employee: retire date precedes join date")
	ErrInvalidWeeklyHoursCategory = errors.New("employee: invalid weekly work hours category")
	ErrInvalidWeeklyHours         = errors.New("employee: weekly hours must not be negative")
	ErrInvalidMonthlyWage         = errors.New("employee: monthly wage must not be negative")
	ErrInvalidEmploymentMonths    = errors.New("employee: expected employment months must not be negative")
	ErrInvalidLeavePeriod         = errors.New("employee: leave end precedes leave start")
	ErrMaternityLeaveNotAllowed   = errors.New("employee: maternity leave applies to full-time employees only")
	ErrInvalidReferenceDate       = errors.New("employee: reference date is required")
	ErrInvalidPageSize            = errors.New("employee: invalid page size")
	ErrInvalidPageToken           = errors.New("employee: invalid page token")
	ErrEmployeeNotFound           = errors.New("employee: not found")
)
