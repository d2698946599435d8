package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidBirthDate),
		errors.Is(err, employee.ErrInvalidJoinDate),
		errors.Is(err, employee.ErrInvalidDateRange),
		errors.Is(err, employee.ErrInvalidWeeklyHoursCategory),
		errors.Is(err, employee.ErrInvalidWeeklyHours),
		errors.Is(err, employee.ErrInvalidMonthlyWage),
		errors.Is(err, employee.ErrInvalidEmploymentMonths),
		errors.Is(err, employee.ErrInvalidLeavePeriod),
		errors.Is(err, employee.ErrInvalidReferenceDate),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken),
		errors.Is(err, changehistory.ErrInvalidEmployeeID),
		errors.Is(err, changehistory.ErrInvalidChangeType),
		errors.Is(err, changehistory.ErrInvalidPageSize),
		errors.Is(err, changehistory.ErrInvalidEffectiveAt),
		errors.Is(err, premium.ErrInvalidEmployeeID),
		errors.Is(err, premium.ErrInvalidYear),
		errors.Is(err, premium.ErrInvalidMonth),
		errors.Is(err, premium.ErrInvalidAmount),
		errors.Is(err, premium.ErrInvalidIDs):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, employee.ErrMaternityLeaveNotAllowed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, employee.ErrEmployeeNotFound), errors.Is(err, premium.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
