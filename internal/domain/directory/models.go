package directory

import "time"

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ManagerID   string    `json:"managerId,omitempty"`
	Headcount   int       `json:"headcount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Employee struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Role             string     `json:"role"`
	Position         string     `json:"position,omitempty"`
	DepartmentID     string     `json:"departmentId,omitempty"`
	ManagerID        string     `json:"managerId,omitempty"`
	HireDate         *time.Time `json:"hireDate,omitempty"`
	IsActive         bool       `json:"isActive"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}
