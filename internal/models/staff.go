package models

import "time"

// StaffRole represents the available roles for the RBAC system.
type StaffRole string

const (
	RoleAdmin StaffRole = "ADMIN"
	RoleAgent StaffRole = "AGENT"
)

// Staff represents a staff member stored in the staff table.
type Staff struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         StaffRole  `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
