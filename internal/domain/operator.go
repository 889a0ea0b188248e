package domain

import "time"

// OperatorRole enumerates access levels for shop operators.
type OperatorRole string

const (
	OperatorRoleAdmin OperatorRole = "ADMIN"
	OperatorRoleStaff OperatorRole = "STAFF"
)

// Operator is an authenticated shop user driving tickets through the UI/API.
type Operator struct {
	ID           string
	ShopDomain   string
	Email        string
	Name         string
	PasswordHash string
	Role         OperatorRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
