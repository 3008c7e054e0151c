package models

import "time"

type Badge struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	ImageURL    string `gorm:"not null" json:"imageUrl"`
	Description string `json:"description"`
}

type UserBadge struct {
	Base
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	BadgeID   string    `gorm:"type:varchar(36);not null" json:"badgeId"`
	Badge     *Badge    `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	CourseID  string    `gorm:"type:varchar(36);not null" json:"courseId"`
	AwardedAt time.Time `json:"awardedAt"`
}
