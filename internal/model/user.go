package model

import (
	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
	UserRoleUser  UserRole = "user"
)

// User is a read-only directory view of the account system, used for admin
// fan-out and mail addressing. Account lifecycle is owned elsewhere.
type User struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Email string    `json:"email" db:"email"`
	Name  string    `json:"name" db:"name"`
	Role  UserRole  `json:"role" db:"role"`
}
