package dto

import (
	"time"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// RegisterOperatorRequest creates an operator account.
type RegisterOperatorRequest struct {
	ShopDomain string `json:"shop_domain"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// LoginRequest authenticates an operator.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// OperatorResponse is the public operator shape.
type OperatorResponse struct {
	ID         string              `json:"id"`
	ShopDomain string              `json:"shop_domain"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Role       domain.OperatorRole `json:"role"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  OperatorResponse `json:"operator"`
}
