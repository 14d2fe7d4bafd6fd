package model

import "time"

// Role values form a closed set. Authorization decisions compare against
// these constants rather than ad hoc strings so that a typo in a handler
// fails to compile instead of silently denying (or granting) access.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleCustomer   = "customer"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	switch s {
	case RoleAdmin, RoleTechnician, RoleCustomer:
		return true
	}
	return false
}

// StaffRole reports whether the role bypasses per-repair ownership checks.
func StaffRole(s string) bool {
	return s == RoleAdmin || s == RoleTechnician
}

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column. PasswordHash never leaves the
// repository/handler boundary; responses use PublicProfile instead.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown on repairs and in listings.
//  Username     – derived from the email local part at registration.
//  Email        – unique login identifier.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of admin, technician, customer.
//  Phone        – optional contact number.
//  LastLoginAt  – set on login and on each authenticated request (best effort).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     // users.id
	Name         string     // users.name
	Username     string     // users.username
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	Phone        string     // users.phone
	LastLoginAt  *time.Time // users.last_login_at (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// PublicUser is the wire representation of a user with credentials stripped.
type PublicUser struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Phone     string     `json:"phone,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicProfile strips credentials and internal columns from a user record.
func (u User) PublicProfile() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		LastLogin: u.LastLoginAt,
		CreatedAt: u.CreatedAt,
	}
}
