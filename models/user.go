package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the access level of a staff user
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleClientUser Role = "CLIENT_USER"
)

// User represents a staff account, optionally attached to a client
type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FirstName string     `json:"firstName" db:"first_name"`
	LastName  string     `json:"lastName,omitempty" db:"last_name"`
	Role      Role       `json:"role" db:"role"`
	ClientID  *uuid.UUID `json:"clientId,omitempty" db:"client_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// NewUser creates a new User instance
func NewUser(email, firstName string, role Role, clientID *uuid.UUID) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: firstName,
		Role:      role,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
