package overtimeerrors

import (
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidHours = apperror.New(
		apperror.CodeInvalidInput,
		"hours must be between 0.5 and 24",
		http.StatusBadRequest,
	)
	ErrEmployeeNotInCompany = apperror.New(
		apperror.CodeInvalidInput,
		"employee does not belong to this company",
		http.StatusBadRequest,
	)
	ErrOvertimeOverlap = apperror.New(
		apperror.CodeConflict,
		"an overtime request already exists for this date",
		http.StatusConflict,
	)
	ErrOvertimeNotFound = apperror.New(
		apperror.CodeNotFound,
		"overtime request not found",
		http.StatusNotFound,
	)
	ErrNotOwner = apperror.New(
		apperror.CodeForbidden,
		"only the requesting employee may perform this action",
		http.StatusForbidden,
	)
	ErrReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"a reason is required when rejecting",
		http.StatusBadRequest,
	)
)
