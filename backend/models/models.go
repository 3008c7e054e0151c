package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base gives every document an opaque string identifier.
type Base struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists the models handed to AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserGroup{},
		&Badge{},
		&UserBadge{},
		&Course{},
		&CourseTargetGroup{},
		&Module{},
		&Lesson{},
		&Enrollment{},
		&Recommendation{},
		&Notification{},
	}
}
