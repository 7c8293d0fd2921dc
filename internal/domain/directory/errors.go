package directory

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrManagerCycle   = errors.New("manager assignment creates a cycle")
	ErrInvalidRole    = errors.New("invalid role")
	ErrDepartmentUsed = errors.New("department has members")
)
