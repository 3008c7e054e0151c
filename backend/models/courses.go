package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ContentVideo = "video"
	ContentPDF   = "pdf"
)

type Course struct {
	Base
	Title        string              `gorm:"not null" json:"title"`
	Description  string              `json:"description"`
	Category     string              `gorm:"index" json:"category"` // Technology, Sales, HR
	InstructorID string              `gorm:"type:varchar(36);index;not null" json:"instructorId"`
	Instructor   *User               `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	TargetGroups []string            `gorm:"-" json:"targetGroups"` // empty means all
	Audience     []CourseTargetGroup `gorm:"foreignKey:CourseID" json:"-"`
	BadgeID      *string             `gorm:"type:varchar(36)" json:"badgeId"`
	IsPublished  bool                `gorm:"default:false" json:"isPublished"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// CourseTargetGroup stores one entry of a course's target-group list.
// Groups are referenced by name, not by UserGroup id.
type CourseTargetGroup struct {
	Base
	CourseID string `gorm:"type:varchar(36);index;not null"`
	Name     string `gorm:"index;not null"`
}

func (c *Course) AfterFind(tx *gorm.DB) error {
	c.TargetGroups = make([]string, 0, len(c.Audience))
	for _, g := range c.Audience {
		c.TargetGroups = append(c.TargetGroups, g.Name)
	}
	return nil
}

// OwnerID is the instructor allowed to mutate the course and everything under it.
func (c *Course) OwnerID() string { return c.InstructorID }

// Announced reports whether changes to the course are broadcast to its groups.
func (c *Course) Announced() bool {
	return c.IsPublished && len(c.TargetGroups) > 0
}

// ReplaceTargetGroups rewrites the stored target-group rows of course.
func ReplaceTargetGroups(tx *gorm.DB, course *Course) error {
	if err := tx.Where("course_id = ?", course.ID).Delete(&CourseTargetGroup{}).Error; err != nil {
		return err
	}
	if course.TargetGroups == nil {
		course.TargetGroups = []string{}
	}
	if len(course.TargetGroups) == 0 {
		course.Audience = nil
		return nil
	}
	rows := make([]CourseTargetGroup, 0, len(course.TargetGroups))
	for _, name := range course.TargetGroups {
		rows = append(rows, CourseTargetGroup{CourseID: course.ID, Name: name})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return err
	}
	course.Audience = rows
	return nil
}

type Module struct {
	Base
	CourseID  string    `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Title     string    `gorm:"not null" json:"title"`
	Order     int       `gorm:"column:sequence_order;not null" json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

type QuizQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer int      `json:"correctAnswer" validate:"gte=0"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

type Lesson struct {
	Base
	ModuleID    string    `gorm:"type:varchar(36);index;not null" json:"moduleId"`
	CourseID    string    `gorm:"type:varchar(36);index;not null" json:"courseId"` // denormalized from the module
	Title       string    `gorm:"not null" json:"title"`
	ContentType string    `gorm:"not null" json:"contentType"` // video, pdf
	ContentURL  string    `gorm:"not null" json:"contentUrl"`
	Order       int       `gorm:"column:sequence_order;not null" json:"order"`
	HasQuiz     bool      `gorm:"default:false" json:"hasQuiz"`
	Quiz        *Quiz     `gorm:"serializer:json" json:"quiz,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FindCourse loads a course together with its target groups.
func FindCourse(db *gorm.DB, id string) (*Course, error) {
	var course Course
	if err := db.Preload("Audience").First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}
