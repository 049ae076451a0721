package model

import "time"

// EntryStatus is the attendance state of a roll-call entry.
type EntryStatus string

const (
	EntryStatusPresent    EntryStatus = "PRESENT"
	EntryStatusCheckedOut EntryStatus = "CHECKED_OUT"
)

// GlobalRegion is the scope used when roll calls are not split per region.
const GlobalRegion = "All"

// RollCall is the attendance sheet of one calendar day for one region scope.
type RollCall struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Day       string    `json:"day" gorm:"type:char(10);not null;uniqueIndex:idx_roll_calls_day_region,priority:1"` // YYYY-MM-DD
	Region    string    `json:"region" gorm:"size:100;not null;uniqueIndex:idx_roll_calls_day_region,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Entries []RollCallEntry `json:"entries,omitempty" gorm:"foreignKey:RollCallID;constraint:OnDelete:CASCADE"`
}

// RollCallEntry records one user's presence on a roll call.
type RollCallEntry struct {
	ID                uint        `json:"id" gorm:"primaryKey"`
	RollCallID        uint        `json:"roll_call_id" gorm:"not null;uniqueIndex:idx_roll_call_entries_call_user,priority:1"`
	UserID            uint        `json:"user_id" gorm:"not null;uniqueIndex:idx_roll_call_entries_call_user,priority:2;index"`
	Status            EntryStatus `json:"status" gorm:"type:varchar(20);not null;default:'PRESENT'"`
	CheckIn           time.Time   `json:"check_in" gorm:"not null"`
	CheckOut          *time.Time  `json:"check_out,omitempty"`
	Latitude          *float64    `json:"latitude,omitempty"`
	Longitude         *float64    `json:"longitude,omitempty"`
	CheckOutLatitude  *float64    `json:"check_out_latitude,omitempty"`
	CheckOutLongitude *float64    `json:"check_out_longitude,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
