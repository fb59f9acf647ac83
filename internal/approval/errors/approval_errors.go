package approvalerrors

import (
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
)

var (
	// ErrNoApproverFound means chain resolution produced zero approvers:
	// the requester has no active supervisor and the department has no
	// fallback head. Surfaced at submission time, before any state changes.
	ErrNoApproverFound = apperror.New(
		apperror.CodeNoApproverFound,
		"no eligible approver found for this request",
		http.StatusUnprocessableEntity,
	)
	ErrNotAuthorized = apperror.New(
		apperror.CodeForbidden,
		"you are not an eligible approver for this request",
		http.StatusForbidden,
	)
	ErrAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"this approval step has already been decided",
		http.StatusConflict,
	)
	ErrApprovalNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval record not found",
		http.StatusNotFound,
	)
	ErrRequesterNotFound = apperror.New(
		apperror.CodeNotFound,
		"requesting employee not found",
		http.StatusNotFound,
	)
)
