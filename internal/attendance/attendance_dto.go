package attendance

type ClockInRequest struct {
	Source string  `json:"source"`
	Notes  *string `json:"notes"`
}

type ClockOutRequest struct {
	Notes *string `json:"notes"`
}

type AttendanceResponse struct {
	ID             string  `json:"id"`
	CompanyID      string  `json:"company_id"`
	EmployeeID     string  `json:"employee_id"`
	AttendanceDate string  `json:"attendance_date"`
	ClockIn        string  `json:"clock_in"`
	ClockOut       *string `json:"clock_out,omitempty"`
	Status         string  `json:"status"`
	Source         string  `json:"source"`
	Notes          *string `json:"notes,omitempty"`

	OvertimeApproved  bool    `json:"overtime_approved"`
	OvertimeRequestID *string `json:"overtime_request_id,omitempty"`
	OvertimeHours     *string `json:"overtime_hours,omitempty"`
}
