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

type ModulesController struct {
	*Deps
}

func NewModulesController(d *Deps) *ModulesController {
	return &ModulesController{Deps: d}
}

type createModuleInput struct {
	Title string `json:"title" validate:"required"`
	Order *int   `json:"order" validate:"required"`
}

type updateModuleInput struct {
	Title *string `json:"title" validate:"omitempty,min=1"`
	Order *int    `json:"order"`
}

// loadModule returns the module in :id with its course, checking the caller owns the course.
func loadModule(d *Deps, c *fiber.Ctx, verb string) (*models.Module, *models.Course, error) {
	var module models.Module
	if err := d.DB.First(&module, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, lookup(err, "Module not found")
	}
	course, err := models.FindCourse(d.DB, module.CourseID)
	if err != nil {
		return nil, nil, lookup(err, "Parent course not found")
	}
	if !policy.CanMutate(actorOf(c), policy.Within(course)).Allowed() {
		return nil, nil, forbidden("Not authorized to " + verb + " this module")
	}
	return &module, course, nil
}

func moduleEvent(kind string, course *models.Course, module *models.Module) events.Event {
	return events.Event{
		Type:         kind,
		CourseID:     course.ID,
		ModuleID:     module.ID,
		Title:        module.Title,
		TargetGroups: course.TargetGroups,
		InstructorID: course.InstructorID,
	}
}

func (mc *ModulesController) ListModules(c *fiber.Ctx) error {
	courseID := c.Params("id")
	return mc.serveCached(c, cache.CourseModules(courseID), cache.TTLModules, func() (interface{}, error) {
		modules := []models.Module{}
		err := mc.DB.Where("course_id = ?", courseID).Order("sequence_order ASC").Order("created_at ASC").Find(&modules).Error
		return modules, err
	})
}

func (mc *ModulesController) AddModule(c *fiber.Ctx) error {
	var input createModuleInput
	if err := parseBody(c, &input, "Title and order are required"); err != nil {
		return mc.fail(c, err)
	}
	course, err := models.FindCourse(mc.DB, c.Params("id"))
	if err != nil {
		return mc.fail(c, lookup(err, "Course not found"))
	}
	if !policy.CanMutate(actorOf(c), course).Allowed() {
		return utils.Forbidden(c, "Not authorized to add module to this course")
	}

	module := models.Module{CourseID: course.ID, Title: input.Title, Order: *input.Order}
	if err := mc.DB.Create(&module).Error; err != nil {
		return mc.fail(c, errors.Wrap(err, "create module"))
	}

	err = afterWrite(
		func() error { return mc.invalidate(c, cache.CourseModules(course.ID)) },
		func() error {
			if !course.Announced() {
				return nil
			}
			e := moduleEvent(events.ModuleAdded, course, &module)
			e.CreatedAt = events.At(module.CreatedAt)
			return mc.emit(c, e)
		},
	)
	if err != nil {
		return mc.fail(c, err)
	}
	return utils.Created(c, module)
}

func (mc *ModulesController) EditModule(c *fiber.Ctx) error {
	var input updateModuleInput
	if err := parseBody(c, &input, "Invalid module data"); err != nil {
		return mc.fail(c, err)
	}
	module, course, err := loadModule(mc.Deps, c, "edit")
	if err != nil {
		return mc.fail(c, err)
	}

	if input.Title != nil {
		module.Title = *input.Title
	}
	if input.Order != nil {
		module.Order = *input.Order
	}
	if err := mc.DB.Save(module).Error; err != nil {
		return mc.fail(c, errors.Wrap(err, "update module"))
	}

	err = afterWrite(
		func() error { return mc.invalidate(c, cache.CourseModules(course.ID)) },
		func() error {
			if !course.Announced() {
				return nil
			}
			e := moduleEvent(events.ModuleEdited, course, module)
			e.UpdatedAt = events.At(time.Now())
			return mc.emit(c, e)
		},
	)
	if err != nil {
		return mc.fail(c, err)
	}
	return c.JSON(module)
}

// DeleteModule removes the module and its lessons.
func (mc *ModulesController) DeleteModule(c *fiber.Ctx) error {
	module, course, err := loadModule(mc.Deps, c, "delete")
	if err != nil {
		return mc.fail(c, err)
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", module.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Module{}, "id = ?", module.ID).Error
	})
	if err != nil {
		return mc.fail(c, errors.Wrap(err, "delete module"))
	}

	err = afterWrite(
		func() error { return mc.invalidate(c, cache.CourseModules(course.ID), cache.ModuleLessons(module.ID)) },
		func() error {
			if !course.Announced() {
				return nil
			}
			e := moduleEvent(events.ModuleDeleted, course, module)
			e.DeletedAt = events.At(time.Now())
			return mc.emit(c, e)
		},
	)
	if err != nil {
		return mc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Module deleted"})
}
