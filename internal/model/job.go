package model

import "time"

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusDone       JobStatus = "DONE"
	JobStatusEscalated  JobStatus = "ESCALATED"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusInProgress, JobStatusDone, JobStatusEscalated},
	JobStatusInProgress: {JobStatusDone, JobStatusEscalated},
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusDone, JobStatusEscalated:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusEscalated
}

// CanTransitionTo reports whether a job in status s may move to next.
// Staying in the same status is always allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the job still blocks new jobs for the same vehicle.
func (s JobStatus) Open() bool {
	return !s.Terminal()
}

// Job is a governor install, renewal or repair on one vehicle.
type Job struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	VehicleReg     string    `json:"vehicle_reg" gorm:"size:20;not null;index"`
	JobType        string    `json:"job_type" gorm:"size:50;not null"`
	Status         JobStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ScheduledDate  time.Time `json:"scheduled_date" gorm:"not null;index"`
	Location       string    `json:"location" gorm:"size:100"`
	SiteLatitude   *float64  `json:"site_latitude,omitempty"`
	SiteLongitude  *float64  `json:"site_longitude,omitempty"`
	TechnicianID   *uint     `json:"technician_id,omitempty" gorm:"index"`
	ClientName     string    `json:"client_name" gorm:"size:255"`
	ClientPhone    string    `json:"client_phone" gorm:"size:20"`
	GovernorSerial string    `json:"governor_serial" gorm:"size:100"`
	GovernorStatus string    `json:"governor_status" gorm:"size:50"`
	Notes          string    `json:"notes" gorm:"type:text"`
	Remarks        string    `json:"remarks" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Technician *User        `json:"technician,omitempty" gorm:"foreignKey:TechnicianID;constraint:OnDelete:SET NULL"`
	Photos     []Photo      `json:"photos,omitempty" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	History    []JobHistory `json:"history,omitempty" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

// Site returns the explicit site coordinates of the job, if any.
func (j *Job) Site() (Coordinates, bool) {
	c := Coordinates{Latitude: j.SiteLatitude, Longitude: j.SiteLongitude}
	return c, c.Present()
}

// JobHistory is an append-only log entry of a job status change.
type JobHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	JobID     uint      `json:"job_id" gorm:"not null;index"`
	Status    JobStatus `json:"status" gorm:"type:varchar(20);not null"`
	Remarks   string    `json:"remarks" gorm:"type:text"`
	UpdatedBy uint      `json:"updated_by" gorm:"not null;index"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Photo is an uploaded picture attached to a job.
type Photo struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	JobID      uint      `json:"job_id" gorm:"not null;index"`
	URL        string    `json:"url" gorm:"size:512;not null"`
	UploadedAt time.Time `json:"uploaded_at"`
}
