package model

import "time"

// Role is a user's access role.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleStaff      Role = "STAFF"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleStaff:
		return true
	}
	return false
}

// TracksAttendance reports whether users with this role take part in roll call
// and must send GPS coordinates when logging in.
func (r Role) TracksAttendance() bool {
	return r == RoleTechnician
}

// User represents an authenticated user in the system.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"size:255;not null"`
	Email        *string    `json:"email" gorm:"uniqueIndex;size:255"`
	Phone        *string    `json:"phone" gorm:"uniqueIndex;size:20"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role       `json:"role" gorm:"type:varchar(20);not null;default:'TECHNICIAN';index"`
	Region       string     `json:"region" gorm:"size:100;index"`
	Online       bool       `json:"online" gorm:"default:false;index"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	LastLogout   *time.Time `json:"last_logout,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Sessions []Session       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Entries  []RollCallEntry `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
