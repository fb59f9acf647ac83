package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	attendanceerrors "github.com/helderdene/hris-sub010/internal/attendance/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	statusPresent = "PRESENT"
	statusLate    = "LATE"
)

type Service interface {
	ClockIn(ctx context.Context, companyID, employeeID string, req ClockInRequest) (AttendanceResponse, error)
	ClockOut(ctx context.Context, companyID, employeeID string, req ClockOutRequest) (AttendanceResponse, error)
	GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]AttendanceResponse, error)
	GetByID(ctx context.Context, companyID, id string) (AttendanceResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("attendance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.service")
	}
	return &service{db: db, repo: repo, logger: l}
}

func (s *service) ClockIn(ctx context.Context, companyID, employeeID string, req ClockInRequest) (AttendanceResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidActorID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AttendanceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	_, err = qtx.FindByEmployeeAndDate(ctx, companyID, employeeID, today)
	if err == nil {
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyClockedIn
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AttendanceResponse{}, err
	}

	status := statusPresent
	if now.Hour() > 9 || (now.Hour() == 9 && now.Minute() > 15) {
		status = statusLate
	}

	source := req.Source
	if source == "" {
		source = "MANUAL"
	}

	row := &Attendance{
		ID:             uuid.New(),
		CompanyID:      companyUUID,
		EmployeeID:     employeeUUID,
		AttendanceDate: today,
		ClockIn:        now,
		Status:         status,
		Source:         source,
		Notes:          req.Notes,
	}

	if err := qtx.Create(ctx, row); err != nil {
		return AttendanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return AttendanceResponse{}, err
	}
	return mapToResponse(*row), nil
}

func (s *service) ClockOut(ctx context.Context, companyID, employeeID string, req ClockOutRequest) (AttendanceResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AttendanceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	row, err := qtx.FindByEmployeeAndDate(ctx, companyID, employeeID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceResponse{}, attendanceerrors.ErrNoClockInToday
		}
		return AttendanceResponse{}, err
	}
	if row.ClockOut != nil {
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyClockedOut
	}

	row.ClockOut = &now
	if req.Notes != nil {
		row.Notes = req.Notes
	}

	if err := qtx.Update(ctx, row); err != nil {
		return AttendanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return AttendanceResponse{}, err
	}
	return mapToResponse(*row), nil
}

func (s *service) GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]AttendanceResponse, error) {
	var (
		rows []Attendance
		err  error
	)
	if canReadAll {
		rows, err = s.repo.FindAllByCompany(ctx, companyID)
	} else {
		if _, parseErr := uuid.Parse(actorID); parseErr != nil {
			return nil, attendanceerrors.ErrInvalidActorID
		}
		rows, err = s.repo.FindAllByCompanyAndEmployee(ctx, companyID, actorID)
	}
	if err != nil {
		return nil, err
	}
	res := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (AttendanceResponse, error) {
	row, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceResponse{}, attendanceerrors.ErrTimeRecordNotFound
		}
		return AttendanceResponse{}, err
	}
	return mapToResponse(*row), nil
}

func mapToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               a.ID.String(),
		CompanyID:        a.CompanyID.String(),
		EmployeeID:       a.EmployeeID.String(),
		AttendanceDate:   a.AttendanceDate.Format("2006-01-02"),
		ClockIn:          a.ClockIn.Format(time.RFC3339),
		Status:           a.Status,
		Source:           a.Source,
		Notes:            a.Notes,
		OvertimeApproved: a.OvertimeApproved,
	}
	if a.ClockOut != nil {
		v := a.ClockOut.Format(time.RFC3339)
		resp.ClockOut = &v
	}
	if a.OvertimeRequestID != nil {
		v := a.OvertimeRequestID.String()
		resp.OvertimeRequestID = &v
	}
	if a.OvertimeHours != nil {
		v := a.OvertimeHours.StringFixed(2)
		resp.OvertimeHours = &v
	}
	return resp
}
