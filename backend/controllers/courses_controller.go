package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/policy"
	"github.com/ailms/lms/backend/utils"
)

type CoursesController struct {
	*Deps
}

func NewCoursesController(d *Deps) *CoursesController {
	return &CoursesController{Deps: d}
}

type createCourseInput struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category" validate:"required"`
	TargetGroups []string `json:"targetGroups"`
	BadgeID      *string  `json:"badgeId"`
	IsPublished  bool     `json:"isPublished"`
}

type updateCourseInput struct {
	Title        *string   `json:"title" validate:"omitempty,min=1"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category" validate:"omitempty,min=1"`
	TargetGroups *[]string `json:"targetGroups"`
	BadgeID      *string   `json:"badgeId"`
	IsPublished  *bool     `json:"isPublished"`
}

type visibilityInput struct {
	TargetGroups *[]string `json:"targetGroups"`
}

type badgeInput struct {
	BadgeID string `json:"badgeId" validate:"required"`
}

type awardInput struct {
	UserID string `json:"userId" validate:"required"`
}

func withInstructor(db *gorm.DB) *gorm.DB {
	return db.Preload("Instructor", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "email")
	})
}

// courseListKey varies by the requester. Instructors see their own drafts, so their lists
// are keyed by id rather than by group.
func courseListKey(actor policy.Actor, category, search string) string {
	group := actor.Group
	if actor.Role == models.RoleInstructor {
		group = actor.ID
	}
	return cache.CoursesList(actor.Role, group, category, search)
}

// ListCourses godoc
// @Summary List courses visible to the caller
// @Tags courses
// @Produce json
// @Param category query string false "Category"
// @Param search query string false "Title substring"
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	actor := actorOf(c)
	category := c.Query("category")
	search := c.Query("search")

	return cc.serveCached(c, courseListKey(actor, category, search), cache.TTLCourseList, func() (interface{}, error) {
		query := withInstructor(cc.DB.Model(&models.Course{})).Preload("Audience")
		if category != "" {
			query = query.Where("category = ?", category)
		}
		if search != "" {
			query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
		}

		switch actor.Role {
		case models.RoleLearner:
			query = query.Where("is_published = ?", true).Where(
				"(NOT EXISTS (SELECT 1 FROM course_target_groups g WHERE g.course_id = courses.id)"+
					" OR EXISTS (SELECT 1 FROM course_target_groups g WHERE g.course_id = courses.id AND g.name = ?))",
				actor.Group,
			)
		case models.RoleInstructor:
			query = query.Where("(instructor_id = ? OR is_published = ?)", actor.ID, true)
		}

		courses := []models.Course{}
		if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
			return nil, errors.Wrap(err, "list courses")
		}
		return courses, nil
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	actor := actorOf(c)
	var input createCourseInput
	if err := parseBody(c, &input, "Title and category are required"); err != nil {
		return cc.fail(c, err)
	}

	course := models.Course{
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		InstructorID: actor.ID,
		TargetGroups: input.TargetGroups,
		IsPublished:  input.IsPublished,
	}
	if input.BadgeID != nil && *input.BadgeID != "" {
		course.BadgeID = input.BadgeID
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&course).Error; err != nil {
			return err
		}
		return models.ReplaceTargetGroups(tx, &course)
	})
	if err != nil {
		return cc.fail(c, errors.Wrap(err, "create course"))
	}

	err = afterWrite(
		func() error { return cc.invalidateCourseLists(c) },
		func() error {
			if !course.Announced() {
				return nil
			}
			return cc.emit(c, events.Event{
				Type:         events.CoursePublished,
				CourseID:     course.ID,
				Title:        course.Title,
				TargetGroups: course.TargetGroups,
				InstructorID: course.InstructorID,
				CreatedAt:    events.At(course.CreatedAt),
			})
		},
	)
	if err != nil {
		return cc.fail(c, err)
	}
	return utils.Created(c, course)
}

func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	id := c.Params("id")
	return cc.serveCached(c, cache.CourseDetails(id), cache.TTLCourseDetails, func() (interface{}, error) {
		var course models.Course
		err := withInstructor(cc.DB).Preload("Audience").First(&course, "id = ?", id).Error
		if err != nil {
			return nil, lookup(err, "Course not found")
		}
		return course, nil
	})
}

// ownedCourse loads the course in :id and checks the caller owns it.
func (cc *CoursesController) ownedCourse(c *fiber.Ctx, verb string) (*models.Course, error) {
	course, err := models.FindCourse(cc.DB, c.Params("id"))
	if err != nil {
		return nil, lookup(err, "Course not found")
	}
	if !policy.CanMutate(actorOf(c), course).Allowed() {
		return nil, forbidden("Not authorized to " + verb + " this course")
	}
	return course, nil
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	var input updateCourseInput
	if err := parseBody(c, &input, "Invalid course data"); err != nil {
		return cc.fail(c, err)
	}
	course, err := cc.ownedCourse(c, "edit")
	if err != nil {
		return cc.fail(c, err)
	}
	wasPublished := course.IsPublished

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Category != nil {
		course.Category = *input.Category
	}
	if input.BadgeID != nil {
		if *input.BadgeID == "" {
			course.BadgeID = nil
		} else {
			course.BadgeID = input.BadgeID
		}
	}
	if input.IsPublished != nil {
		course.IsPublished = *input.IsPublished
	}
	if input.TargetGroups != nil {
		course.TargetGroups = *input.TargetGroups
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(course).Error; err != nil {
			return err
		}
		if input.TargetGroups != nil {
			return models.ReplaceTargetGroups(tx, course)
		}
		return nil
	})
	if err != nil {
		return cc.fail(c, errors.Wrap(err, "update course"))
	}

	err = afterWrite(
		func() error { return cc.invalidateCourseLists(c) },
		func() error { return cc.invalidate(c, cache.CourseDetails(course.ID)) },
		func() error {
			if wasPublished || !course.Announced() {
				return nil
			}
			return cc.emit(c, events.Event{
				Type:         events.CoursePublished,
				CourseID:     course.ID,
				Title:        course.Title,
				TargetGroups: course.TargetGroups,
				InstructorID: course.InstructorID,
				CreatedAt:    events.At(course.CreatedAt),
			})
		},
	)
	if err != nil {
		return cc.fail(c, err)
	}
	return c.JSON(course)
}

// DeleteCourse removes the course with its modules, lessons and target groups.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "delete")
	if err != nil {
		return cc.fail(c, err)
	}
	announced := course.Announced()

	var moduleIDs []string
	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Module{}).Where("course_id = ?", course.ID).Pluck("id", &moduleIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Module{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.CourseTargetGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, "id = ?", course.ID).Error
	})
	if err != nil {
		return cc.fail(c, errors.Wrap(err, "delete course"))
	}

	keys := []string{cache.CourseDetails(course.ID), cache.CourseModules(course.ID)}
	for _, id := range moduleIDs {
		keys = append(keys, cache.ModuleLessons(id))
	}
	err = afterWrite(
		func() error { return cc.invalidateCourseLists(c) },
		func() error { return cc.invalidate(c, keys...) },
		func() error {
			if !announced {
				return nil
			}
			return cc.emit(c, events.Event{
				Type:         events.CourseDeleted,
				CourseID:     course.ID,
				TargetGroups: course.TargetGroups,
				InstructorID: course.InstructorID,
				DeletedAt:    events.At(time.Now()),
			})
		},
	)
	if err != nil {
		return cc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course deleted"})
}

// SetVisibility replaces the target groups. An empty list opens the course to every group.
func (cc *CoursesController) SetVisibility(c *fiber.Ctx) error {
	var input visibilityInput
	if err := c.BodyParser(&input); err != nil || input.TargetGroups == nil {
		return utils.BadRequest(c, "targetGroups must be an array")
	}
	course, err := cc.ownedCourse(c, "set visibility for")
	if err != nil {
		return cc.fail(c, err)
	}

	course.TargetGroups = *input.TargetGroups
	if err := cc.DB.Transaction(func(tx *gorm.DB) error {
		return models.ReplaceTargetGroups(tx, course)
	}); err != nil {
		return cc.fail(c, errors.Wrap(err, "set visibility"))
	}

	err = afterWrite(
		func() error { return cc.invalidateCourseLists(c) },
		func() error { return cc.invalidate(c, cache.CourseDetails(course.ID)) },
		func() error {
			if !course.Announced() {
				return nil
			}
			return cc.emit(c, events.Event{
				Type:         events.CourseVisibilityUpdated,
				CourseID:     course.ID,
				Title:        course.Title,
				TargetGroups: course.TargetGroups,
				InstructorID: course.InstructorID,
				UpdatedAt:    events.At(time.Now()),
			})
		},
	)
	if err != nil {
		return cc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course visibility updated", "targetGroups": course.TargetGroups})
}

func (cc *CoursesController) AssignBadge(c *fiber.Ctx) error {
	var input badgeInput
	if err := parseBody(c, &input, "badgeId is required"); err != nil {
		return cc.fail(c, err)
	}
	course, err := cc.ownedCourse(c, "assign badge to")
	if err != nil {
		return cc.fail(c, err)
	}

	var badge models.Badge
	if err := cc.DB.First(&badge, "id = ?", input.BadgeID).Error; err != nil {
		return cc.fail(c, lookup(err, "Badge not found"))
	}

	if err := cc.DB.Model(&models.Course{}).Where("id = ?", course.ID).Update("badge_id", badge.ID).Error; err != nil {
		return cc.fail(c, errors.Wrap(err, "assign badge"))
	}
	course.BadgeID = &badge.ID

	err = afterWrite(
		func() error { return cc.invalidateCourseLists(c) },
		func() error { return cc.invalidate(c, cache.CourseDetails(course.ID)) },
		func() error {
			if !course.Announced() {
				return nil
			}
			return cc.emit(c, events.Event{
				Type:         events.CourseBadgeAssigned,
				CourseID:     course.ID,
				BadgeID:      badge.ID,
				Title:        course.Title,
				TargetGroups: course.TargetGroups,
				InstructorID: course.InstructorID,
				UpdatedAt:    events.At(time.Now()),
			})
		},
	)
	if err != nil {
		return cc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Badge assigned to course", "badgeId": badge.ID})
}

// AwardBadge grants the course badge to a learner with an approved enrollment.
func (cc *CoursesController) AwardBadge(c *fiber.Ctx) error {
	var input awardInput
	if err := parseBody(c, &input, "userId is required"); err != nil {
		return cc.fail(c, err)
	}
	course, err := cc.ownedCourse(c, "award badges for")
	if err != nil {
		return cc.fail(c, err)
	}
	if course.BadgeID == nil {
		return utils.Conflict(c, "Course has no badge")
	}

	var enrolled int64
	err = cc.DB.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", input.UserID, course.ID, models.EnrollmentApproved).
		Count(&enrolled).Error
	if err != nil {
		return cc.fail(c, err)
	}
	if enrolled == 0 {
		return utils.Conflict(c, "Learner is not enrolled in this course")
	}

	var awarded int64
	err = cc.DB.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ? AND course_id = ?", input.UserID, *course.BadgeID, course.ID).
		Count(&awarded).Error
	if err != nil {
		return cc.fail(c, err)
	}
	if awarded > 0 {
		return utils.Conflict(c, "Badge already awarded")
	}

	award := models.UserBadge{
		UserID:    input.UserID,
		BadgeID:   *course.BadgeID,
		CourseID:  course.ID,
		AwardedAt: time.Now(),
	}
	if err := cc.DB.Create(&award).Error; err != nil {
		return cc.fail(c, errors.Wrap(err, "award badge"))
	}

	if err := cc.invalidate(c, cache.UserProfile(input.UserID)); err != nil {
		return cc.fail(c, err)
	}
	return utils.Created(c, award)
}
