package attendanceerrors

import (
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
)

var (
	ErrAlreadyClockedIn = apperror.New(
		apperror.CodeConflict,
		"already clocked in for today",
		http.StatusConflict,
	)
	ErrAlreadyClockedOut = apperror.New(
		apperror.CodeConflict,
		"already clocked out for today",
		http.StatusConflict,
	)
	ErrNoClockInToday = apperror.New(
		apperror.CodeNotFound,
		"clock in not found for today",
		http.StatusNotFound,
	)
	ErrTimeRecordNotFound = apperror.New(
		apperror.CodeNotFound,
		"time record not found",
		http.StatusNotFound,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
)
