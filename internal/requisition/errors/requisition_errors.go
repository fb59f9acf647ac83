package requisitionerrors

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
	ErrInvalidHeadcount = apperror.New(
		apperror.CodeInvalidInput,
		"headcount must be between 1 and 100",
		http.StatusBadRequest,
	)
	ErrRequisitionNotFound = apperror.New(
		apperror.CodeNotFound,
		"requisition not found",
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
