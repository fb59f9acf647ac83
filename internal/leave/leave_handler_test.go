package leave_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/helderdene/hris-sub010/internal/leave"
	leaveerrors "github.com/helderdene/hris-sub010/internal/leave/errors"
	ledgererrors "github.com/helderdene/hris-sub010/internal/ledger/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeLeaveService struct {
	createFn        func(ctx context.Context, companyID, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error)
	submitFn        func(ctx context.Context, companyID, actorID, id string) (leave.LeaveResponse, error)
	approveFn       func(ctx context.Context, companyID, actorID, id string, req leave.DecisionRequest) (leave.LeaveResponse, error)
	rejectFn        func(ctx context.Context, companyID, actorID, id string, req leave.DecisionRequest) (leave.LeaveResponse, error)
	cancelFn        func(ctx context.Context, companyID, actorID, id string, req leave.CancelRequest) (leave.LeaveResponse, error)
	getAllFn        func(ctx context.Context, companyID string) ([]leave.LeaveResponse, error)
	getByEmployeeFn func(ctx context.Context, companyID, employeeID string) ([]leave.LeaveResponse, error)
	getByIDFn       func(ctx context.Context, companyID, id string) (leave.LeaveResponse, error)
}

func (f *fakeLeaveService) Create(ctx context.Context, companyID, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
	if f.createFn != nil {
		return f.createFn(ctx, companyID, actorID, req)
	}
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Submit(ctx context.Context, companyID, actorID, id string) (leave.LeaveResponse, error) {
	if f.submitFn != nil {
		return f.submitFn(ctx, companyID, actorID, id)
	}
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Approve(ctx context.Context, companyID, actorID, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
	if f.approveFn != nil {
		return f.approveFn(ctx, companyID, actorID, id, req)
	}
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Reject(ctx context.Context, companyID, actorID, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, companyID, actorID, id, req)
	}
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Cancel(ctx context.Context, companyID, actorID, id string, req leave.CancelRequest) (leave.LeaveResponse, error) {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, companyID, actorID, id, req)
	}
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) GetAll(ctx context.Context, companyID string) ([]leave.LeaveResponse, error) {
	if f.getAllFn != nil {
		return f.getAllFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeLeaveService) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]leave.LeaveResponse, error) {
	if f.getByEmployeeFn != nil {
		return f.getByEmployeeFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeLeaveService) GetByID(ctx context.Context, companyID, id string) (leave.LeaveResponse, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, companyID, id)
	}
	return leave.LeaveResponse{}, nil
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func performLeaveRequest(t *testing.T, svc leave.Service, method, target string, body any, identity map[string]string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	_, router := gin.CreateTestContext(w)

	router.Use(func(c *gin.Context) {
		for k, v := range identity {
			c.Set(k, v)
		}
		c.Next()
	})

	h := leave.NewHandler(svc)
	group := router.Group("/api/v1")
	{
		group.POST("/leaves", h.Create)
		group.POST("/leaves/:id/submit", h.Submit)
		group.POST("/leaves/:id/approve", h.Approve)
		group.POST("/leaves/:id/reject", h.Reject)
		group.POST("/leaves/:id/cancel", h.Cancel)
		group.GET("/leaves", h.GetAll)
		group.GET("/leaves/:id", h.GetById)
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var envelope apiEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func TestLeaveHandler_Create(t *testing.T) {
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		var gotCompany, gotActor string
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, company, actor string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
				gotCompany, gotActor = company, actor
				return leave.LeaveResponse{ID: uuid.New().String(), Status: "DRAFT", TotalDays: "2.00"}, nil
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves", leave.CreateLeaveRequest{
			EmployeeID:    employeeID,
			BenefitTypeID: uuid.New().String(),
			StartDate:     "2026-03-10",
			EndDate:       "2026-03-11",
			Reason:        "family matters",
		}, map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, envelope.Ok)
		assert.Equal(t, companyID, gotCompany)
		assert.Equal(t, employeeID, gotActor)

		var resp leave.LeaveResponse
		assert.NoError(t, json.Unmarshal(envelope.Data, &resp))
		assert.Equal(t, "DRAFT", resp.Status)
	})

	t.Run("negative missing benefit type id", func(t *testing.T) {
		svc := &fakeLeaveService{}
		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves", map[string]string{
			"employee_id": employeeID,
			"start_date":  "2026-03-10",
			"end_date":    "2026-03-11",
		}, map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, envelope.Ok)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	})

	t.Run("negative overlap conflict", func(t *testing.T) {
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, company, actor string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrLeaveOverlap
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves", leave.CreateLeaveRequest{
			EmployeeID:    employeeID,
			BenefitTypeID: uuid.New().String(),
			StartDate:     "2026-03-10",
			EndDate:       "2026-03-11",
		}, map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", envelope.Error.Code)
	})
}

func TestLeaveHandler_Submit(t *testing.T) {
	companyID := uuid.New().String()
	employeeID := uuid.New().String()
	leaveID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		svc := &fakeLeaveService{
			submitFn: func(ctx context.Context, company, actor, id string) (leave.LeaveResponse, error) {
				assert.Equal(t, leaveID, id)
				return leave.LeaveResponse{ID: id, Status: "PENDING"}, nil
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/submit", nil,
			map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, envelope.Ok)
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		svc := &fakeLeaveService{
			submitFn: func(ctx context.Context, company, actor, id string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, ledgererrors.NewInsufficientBalance(decimal.NewFromFloat(1.5))
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/submit", nil,
			map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INSUFFICIENT_BALANCE", envelope.Error.Code)
	})

	t.Run("negative unexpected error is masked", func(t *testing.T) {
		svc := &fakeLeaveService{
			submitFn: func(ctx context.Context, company, actor, id string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, context.DeadlineExceeded
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/submit", nil,
			map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
		assert.Equal(t, "An unexpected error occurred", envelope.Error.Message)
	})
}

func TestLeaveHandler_Approve(t *testing.T) {
	companyID := uuid.New().String()
	approverID := uuid.New().String()
	leaveID := uuid.New().String()

	t.Run("success with empty body", func(t *testing.T) {
		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, company, actor, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
				assert.Equal(t, approverID, actor)
				return leave.LeaveResponse{ID: id, Status: "APPROVED"}, nil
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/approve", nil,
			map[string]string{"company_id": companyID, "employee_id": approverID})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, envelope.Ok)
	})

	t.Run("negative not an approver", func(t *testing.T) {
		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, company, actor, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrNotOwner
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/approve",
			leave.DecisionRequest{Comment: "nope"},
			map[string]string{"company_id": companyID, "employee_id": approverID})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
	})
}

func TestLeaveHandler_Reject(t *testing.T) {
	companyID := uuid.New().String()
	approverID := uuid.New().String()
	leaveID := uuid.New().String()

	t.Run("success passes reason through", func(t *testing.T) {
		var gotReason string
		svc := &fakeLeaveService{
			rejectFn: func(ctx context.Context, company, actor, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
				gotReason = req.Reason
				return leave.LeaveResponse{ID: id, Status: "REJECTED"}, nil
			},
		}

		w, _ := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/reject",
			leave.DecisionRequest{Reason: "short staffed"},
			map[string]string{"company_id": companyID, "employee_id": approverID})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "short staffed", gotReason)
	})

	t.Run("negative reason required", func(t *testing.T) {
		svc := &fakeLeaveService{
			rejectFn: func(ctx context.Context, company, actor, id string, req leave.DecisionRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrReasonRequired
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodPost, "/api/v1/leaves/"+leaveID+"/reject",
			leave.DecisionRequest{},
			map[string]string{"company_id": companyID, "employee_id": approverID})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", envelope.Error.Code)
	})
}

func TestLeaveHandler_GetAll(t *testing.T) {
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success lists company requests", func(t *testing.T) {
		svc := &fakeLeaveService{
			getAllFn: func(ctx context.Context, company string) ([]leave.LeaveResponse, error) {
				return []leave.LeaveResponse{{ID: uuid.New().String()}, {ID: uuid.New().String()}}, nil
			},
		}

		w, envelope := performLeaveRequest(t, svc, http.MethodGet, "/api/v1/leaves", nil,
			map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusOK, w.Code)
		var list []leave.LeaveResponse
		assert.NoError(t, json.Unmarshal(envelope.Data, &list))
		assert.Len(t, list, 2)
	})

	t.Run("success employee filter routes to GetByEmployee", func(t *testing.T) {
		var filtered string
		svc := &fakeLeaveService{
			getByEmployeeFn: func(ctx context.Context, company, emp string) ([]leave.LeaveResponse, error) {
				filtered = emp
				return []leave.LeaveResponse{{ID: uuid.New().String()}}, nil
			},
		}

		w, _ := performLeaveRequest(t, svc, http.MethodGet, "/api/v1/leaves?employee_id="+employeeID, nil,
			map[string]string{"company_id": companyID, "employee_id": employeeID})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, employeeID, filtered)
	})
}
