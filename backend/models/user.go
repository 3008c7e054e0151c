package models

import "time"

const (
	RoleLearner    = "learner"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	Base
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	Role         string    `gorm:"not null" json:"role"` // learner, instructor, admin
	Department   string    `json:"department"`
	Group        string    `gorm:"column:user_group;index" json:"userGroup"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserGroup struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}
