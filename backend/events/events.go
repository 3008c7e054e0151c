package events

import (
	"context"
	"sync"
	"time"
)

// Topic is the single channel every domain event is published to.
const Topic = "notification-events"

// Event kinds.
const (
	CoursePublished         = "course_published"
	CourseDeleted           = "course_deleted"
	CourseVisibilityUpdated = "course_visibility_updated"
	CourseBadgeAssigned     = "course_badge_assigned"
	ModuleAdded             = "module_added"
	ModuleEdited            = "module_edited"
	ModuleDeleted           = "module_deleted"
	LessonAdded             = "lesson_added"
	LessonEdited            = "lesson_edited"
	LessonDeleted           = "lesson_deleted"
	LessonContentUploaded   = "lesson_content_uploaded"
	LessonQuizSaved         = "lesson_quiz_saved"
	EnrollmentRequested     = "enrollment_requested"
	EnrollmentProcessed     = "enrollment_processed"
)

// Event is one notification. Type is the discriminator; unset payload fields are omitted.
type Event struct {
	Type         string     `json:"type"`
	CourseID     string     `json:"courseId,omitempty"`
	ModuleID     string     `json:"moduleId,omitempty"`
	LessonID     string     `json:"lessonId,omitempty"`
	BadgeID      string     `json:"badgeId,omitempty"`
	EnrollmentID string     `json:"enrollmentId,omitempty"`
	UserID       string     `json:"userId,omitempty"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status,omitempty"`
	TargetGroups []string   `json:"targetGroups,omitempty"`
	InstructorID string     `json:"instructorId,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	UploadedAt   *time.Time `json:"uploadedAt,omitempty"`
}

// At returns a pointer to t for the timestamp fields.
func At(t time.Time) *time.Time { return &t }

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when the bus is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event kinds in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
