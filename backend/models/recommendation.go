package models

import "time"

type Recommendation struct {
	Base
	UserID             string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	RecommendedCourses []string  `gorm:"serializer:json" json:"recommendedCourses"`
	GeneratedAt        time.Time `json:"generatedAt"`
	ValidUntil         time.Time `json:"validUntil"`
}

// Expired reports whether the recommendation is past its validity window.
func (r *Recommendation) Expired(now time.Time) bool {
	return !r.ValidUntil.IsZero() && now.After(r.ValidUntil)
}

type Notification struct {
	Base
	UserID          string    `gorm:"type:varchar(36);index;not null" json:"userId"` // recipient
	Type            string    `gorm:"not null" json:"type"`
	Message         string    `gorm:"not null" json:"message"`
	IsRead          bool      `gorm:"default:false" json:"isRead"`
	RelatedCourseID string    `gorm:"type:varchar(36)" json:"relatedCourseId,omitempty"`
	RelatedUserID   string    `gorm:"type:varchar(36)" json:"relatedUserId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
