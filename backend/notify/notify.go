// Package notify consumes domain events from the bus and stores per-user notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/models"
)

const batchSize = 100

// Handler turns one event into notification rows.
type Handler struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e events.Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if e.Type == "" {
		return fmt.Errorf("event without type: %w", asynq.SkipRetry)
	}

	notes, err := h.notifications(ctx, e)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		h.Logger.Debug().Str("type", e.Type).Str("course_id", e.CourseID).Msg("event has no recipients")
		return nil
	}
	if err := h.DB.WithContext(ctx).CreateInBatches(&notes, batchSize).Error; err != nil {
		return errors.Wrapf(err, "store %d notifications", len(notes))
	}
	h.Logger.Info().Str("type", e.Type).Int("recipients", len(notes)).Msg("notifications stored")
	return nil
}

func (h *Handler) notifications(ctx context.Context, e events.Event) ([]models.Notification, error) {
	switch e.Type {
	case events.EnrollmentRequested:
		if e.InstructorID == "" {
			return nil, nil
		}
		return []models.Notification{{
			UserID:          e.InstructorID,
			Type:            e.Type,
			Message:         fmt.Sprintf("New enrollment request for %s", e.Title),
			RelatedCourseID: e.CourseID,
			RelatedUserID:   e.UserID,
		}}, nil

	case events.EnrollmentProcessed:
		if e.UserID == "" {
			return nil, nil
		}
		return []models.Notification{{
			UserID:          e.UserID,
			Type:            e.Type,
			Message:         fmt.Sprintf("Your enrollment in %s was %s", e.Title, e.Status),
			RelatedCourseID: e.CourseID,
			RelatedUserID:   e.InstructorID,
		}}, nil
	}

	msg, ok := courseMessage(e)
	if !ok {
		h.Logger.Warn().Str("type", e.Type).Msg("unknown event type")
		return nil, nil
	}
	if len(e.TargetGroups) == 0 {
		return nil, nil
	}

	var learners []string
	err := h.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND user_group IN ?", models.RoleLearner, e.TargetGroups).
		Pluck("id", &learners).Error
	if err != nil {
		return nil, errors.Wrap(err, "find recipients")
	}

	notes := make([]models.Notification, 0, len(learners))
	for _, id := range learners {
		notes = append(notes, models.Notification{
			UserID:          id,
			Type:            e.Type,
			Message:         msg,
			RelatedCourseID: e.CourseID,
			RelatedUserID:   e.InstructorID,
		})
	}
	return notes, nil
}

func courseMessage(e events.Event) (string, bool) {
	switch e.Type {
	case events.CoursePublished:
		return "New course available: " + e.Title, true
	case events.CourseDeleted:
		return "A course assigned to your group was removed", true
	case events.CourseVisibilityUpdated:
		return "Course " + e.Title + " is now available to your group", true
	case events.CourseBadgeAssigned:
		return "Course " + e.Title + " now awards a badge", true
	case events.ModuleAdded:
		return "New module: " + e.Title, true
	case events.ModuleEdited:
		return "Module updated: " + e.Title, true
	case events.ModuleDeleted:
		return "Module removed: " + e.Title, true
	case events.LessonAdded:
		return "New lesson: " + e.Title, true
	case events.LessonEdited:
		return "Lesson updated: " + e.Title, true
	case events.LessonDeleted:
		return "Lesson removed: " + e.Title, true
	case events.LessonContentUploaded:
		return "New content in lesson " + e.Title, true
	case events.LessonQuizSaved:
		return "A quiz was added to lesson " + e.Title, true
	}
	return "", false
}

// Worker runs Handler against the notification queue.
type Worker struct {
	server  *asynq.Server
	handler *Handler
}

func NewWorker(opt asynq.RedisClientOpt, db *gorm.DB, logger zerolog.Logger) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{events.Topic: 1},
	})
	return &Worker{
		server:  srv,
		handler: &Handler{DB: db, Logger: logger.With().Str("component", "notifier").Logger()},
	}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(events.Topic, w.handler)
	return w.server.Start(mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
