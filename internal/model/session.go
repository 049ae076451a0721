package model

import "time"

// Session is one login-to-logout span of a user.
type Session struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	UserID          uint       `json:"user_id" gorm:"not null;index:idx_sessions_user_active,priority:1"`
	Active          bool       `json:"active" gorm:"not null;default:true;index:idx_sessions_user_active,priority:2"`
	LoginTime       time.Time  `json:"login_time" gorm:"not null"`
	LogoutTime      *time.Time `json:"logout_time,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	LogoutLatitude  *float64   `json:"logout_latitude,omitempty"`
	LogoutLongitude *float64   `json:"logout_longitude,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
