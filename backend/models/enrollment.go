package models

import "time"

const (
	EnrollmentPending  = "pending"
	EnrollmentApproved = "approved"
	EnrollmentDenied   = "denied"
)

type Enrollment struct {
	Base
	UserID      string     `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CourseID    string     `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
	Course      *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Status      string     `gorm:"index;not null;default:pending" json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ProcessedBy *string    `gorm:"type:varchar(36)" json:"processedBy,omitempty"`
}
