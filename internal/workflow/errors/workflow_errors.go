package workflowerrors

import (
	"fmt"
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
)

var (
	ErrCannotCancel = apperror.New(
		apperror.CodeInvalidState,
		"request can no longer be cancelled",
		http.StatusBadRequest,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"request not found",
		http.StatusNotFound,
	)
	ErrInvalidQuantity = apperror.New(
		apperror.CodeInvalidInput,
		"quantity must be greater than zero",
		http.StatusBadRequest,
	)
)

// NewInvalidState names the offending status so the caller sees what the
// request was actually in when the transition was refused.
func NewInvalidState(operation, status string) *apperror.AppError {
	return apperror.New(
		apperror.CodeInvalidState,
		fmt.Sprintf("cannot %s a request in status %s", operation, status),
		http.StatusBadRequest,
	)
}
