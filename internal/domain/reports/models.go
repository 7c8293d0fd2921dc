package reports

type StatusCounts struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
}

type Overview struct {
	Year            int          `json:"year"`
	TotalRequests   int          `json:"totalRequests"`
	Statuses        StatusCounts `json:"statuses"`
	DaysTaken       string       `json:"daysTaken"`
	DaysPending     string       `json:"daysPending"`
	ActiveEmployees int          `json:"activeEmployees"`
}

type TypeUsage struct {
	LeaveTypeID string `json:"leaveTypeId"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Requests    int    `json:"requests"`
	DaysTaken   string `json:"daysTaken"`
}

type DepartmentUsage struct {
	DepartmentID string `json:"departmentId"`
	Name         string `json:"name"`
	Requests     int    `json:"requests"`
	DaysTaken    string `json:"daysTaken"`
}

type MonthlyUsage struct {
	Month     int    `json:"month"`
	Requests  int    `json:"requests"`
	DaysTaken string `json:"daysTaken"`
}

type TopTaker struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Requests  int    `json:"requests"`
	DaysTaken string `json:"daysTaken"`
}

type ExportRow struct {
	Employee  string
	Type      string
	StartDate string
	EndDate   string
	TotalDays string
	Status    string
	Reason    string
}
