package ledgererrors

import (
	"fmt"
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"

	"github.com/shopspring/decimal"
)

var (
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"balance ledger entry not found",
		http.StatusNotFound,
	)
	ErrBenefitTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"benefit type not found",
		http.StatusNotFound,
	)
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidAdjustmentType = apperror.New(
		apperror.CodeInvalidInput,
		"adjustment type must be CREDIT or DEBIT",
		http.StatusBadRequest,
	)
	ErrInvalidDays = apperror.New(
		apperror.CodeInvalidInput,
		"days must be greater than zero",
		http.StatusBadRequest,
	)
	ErrNegativePending = apperror.New(
		apperror.CodeInvalidState,
		"release exceeds the pending reservation",
		http.StatusBadRequest,
	)
	ErrEntryAlreadyProcessed = apperror.New(
		apperror.CodeInvalidState,
		"ledger entry has already been rolled forward",
		http.StatusBadRequest,
	)
)

// NewInsufficientBalance carries the available amount so the caller can show
// an actionable message.
func NewInsufficientBalance(available decimal.Decimal) *apperror.AppError {
	e := apperror.New(
		apperror.CodeInsufficientBalance,
		fmt.Sprintf("insufficient balance: %s day(s) available", available.StringFixed(2)),
		http.StatusUnprocessableEntity,
	)
	return e.WithDetails(map[string]string{"available": available.StringFixed(2)})
}
