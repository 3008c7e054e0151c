package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/policy"
	"github.com/ailms/lms/backend/utils"
)

type EnrollmentsController struct {
	*Deps
}

func NewEnrollmentsController(d *Deps) *EnrollmentsController {
	return &EnrollmentsController{Deps: d}
}

type enrollmentRequestInput struct {
	CourseID string `json:"courseId" validate:"required"`
}

type enrollmentDecisionInput struct {
	Action string `json:"action" validate:"required,oneof=approve deny"`
}

func courseSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "category", "instructor_id")
}

// RequestEnrollment godoc
// @Summary Learner asks to join a course
// @Tags enrollments
// @Accept json
// @Produce json
// @Success 201 {object} models.Enrollment
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /enrollments/request [post]
func (ec *EnrollmentsController) RequestEnrollment(c *fiber.Ctx) error {
	actor := actorOf(c)
	var input enrollmentRequestInput
	if err := parseBody(c, &input, "courseId is required"); err != nil {
		return ec.fail(c, err)
	}

	var course models.Course
	if err := ec.DB.First(&course, "id = ?", input.CourseID).Error; err != nil {
		return ec.fail(c, lookup(err, "Course not found"))
	}

	var existing int64
	if err := ec.DB.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", actor.ID, course.ID).
		Count(&existing).Error; err != nil {
		return ec.fail(c, err)
	}
	if existing > 0 {
		return utils.Conflict(c, "Enrollment request already exists")
	}

	enrollment := models.Enrollment{
		UserID:      actor.ID,
		CourseID:    course.ID,
		Status:      models.EnrollmentPending,
		RequestedAt: time.Now(),
	}
	if err := ec.DB.Create(&enrollment).Error; err != nil {
		// a concurrent request for the same pair lost the race on the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Enrollment request already exists")
		}
		return ec.fail(c, errors.Wrap(err, "create enrollment"))
	}

	err := afterWrite(
		func() error { return ec.invalidate(c, cache.MyRequests(actor.ID)) },
		func() error {
			return ec.emit(c, events.Event{
				Type:         events.EnrollmentRequested,
				EnrollmentID: enrollment.ID,
				CourseID:     course.ID,
				UserID:       actor.ID,
				InstructorID: course.InstructorID,
				Title:        course.Title,
				Status:       enrollment.Status,
				CreatedAt:    events.At(enrollment.RequestedAt),
			})
		},
	)
	if err != nil {
		return ec.fail(c, err)
	}
	return utils.Created(c, enrollment)
}

func (ec *EnrollmentsController) MyRequests(c *fiber.Ctx) error {
	actor := actorOf(c)
	return ec.serveCached(c, cache.MyRequests(actor.ID), cache.TTLMyRequests, func() (interface{}, error) {
		enrollments := []models.Enrollment{}
		err := ec.DB.Preload("Course", courseSummary).
			Where("user_id = ?", actor.ID).
			Order("requested_at DESC").
			Find(&enrollments).Error
		return enrollments, err
	})
}

// ProcessEnrollment approves or denies a pending request on one of the caller's courses.
func (ec *EnrollmentsController) ProcessEnrollment(c *fiber.Ctx) error {
	actor := actorOf(c)
	var input enrollmentDecisionInput
	if err := parseBody(c, &input, "Action must be approve or deny"); err != nil {
		return ec.fail(c, err)
	}

	var enrollment models.Enrollment
	if err := ec.DB.Preload("Course").First(&enrollment, "id = ?", c.Params("id")).Error; err != nil {
		return ec.fail(c, lookup(err, "Enrollment request not found"))
	}
	if enrollment.Course == nil {
		return utils.NotFound(c, "Course not found")
	}
	if !policy.CanMutate(actor, enrollment.Course).Allowed() {
		return utils.Forbidden(c, "Not authorized to process this enrollment")
	}
	if enrollment.Status != models.EnrollmentPending {
		return utils.Conflict(c, "Enrollment already processed")
	}

	now := time.Now()
	enrollment.Status = models.EnrollmentDenied
	if input.Action == "approve" {
		enrollment.Status = models.EnrollmentApproved
	}
	enrollment.ProcessedAt = &now
	enrollment.ProcessedBy = &actor.ID

	// the status guard keeps two concurrent decisions from both succeeding
	res := ec.DB.Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentPending).
		Updates(map[string]interface{}{
			"status":       enrollment.Status,
			"processed_at": now,
			"processed_by": actor.ID,
		})
	if res.Error != nil {
		return ec.fail(c, errors.Wrap(res.Error, "process enrollment"))
	}
	if res.RowsAffected == 0 {
		return utils.Conflict(c, "Enrollment already processed")
	}

	course := enrollment.Course
	err := afterWrite(
		func() error { return ec.invalidate(c, cache.MyRequests(enrollment.UserID)) },
		func() error {
			return ec.emit(c, events.Event{
				Type:         events.EnrollmentProcessed,
				EnrollmentID: enrollment.ID,
				CourseID:     course.ID,
				UserID:       enrollment.UserID,
				InstructorID: actor.ID,
				Title:        course.Title,
				Status:       enrollment.Status,
				UpdatedAt:    events.At(now),
			})
		},
	)
	if err != nil {
		return ec.fail(c, err)
	}
	enrollment.Course = nil
	return c.JSON(enrollment)
}

// PendingEnrollments lists open requests for every course the caller teaches.
func (ec *EnrollmentsController) PendingEnrollments(c *fiber.Ctx) error {
	actor := actorOf(c)
	enrollments := []models.Enrollment{}
	err := ec.DB.
		Preload("Course", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title", "category") }).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email", "department", "user_group") }).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.instructor_id = ? AND enrollments.status = ?", actor.ID, models.EnrollmentPending).
		Order("enrollments.requested_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return ec.fail(c, errors.Wrap(err, "list pending enrollments"))
	}
	return c.JSON(enrollments)
}
