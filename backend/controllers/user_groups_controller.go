package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/utils"
)

type UserGroupsController struct {
	*Deps
}

func NewUserGroupsController(d *Deps) *UserGroupsController {
	return &UserGroupsController{Deps: d}
}

type userGroupInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type userGroupUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

func (gc *UserGroupsController) ListGroups(c *fiber.Ctx) error {
	return gc.serveCached(c, cache.UserGroupsAll(), cache.TTLUserGroups, func() (interface{}, error) {
		groups := []models.UserGroup{}
		err := gc.DB.Order("name ASC").Find(&groups).Error
		return groups, err
	})
}

func (gc *UserGroupsController) CreateGroup(c *fiber.Ctx) error {
	var input userGroupInput
	if err := parseBody(c, &input, "Name is required"); err != nil {
		return gc.fail(c, err)
	}

	group := models.UserGroup{Name: input.Name, Description: input.Description}
	if err := gc.DB.Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Group name must be unique")
		}
		return gc.fail(c, errors.Wrap(err, "create user group"))
	}

	if err := gc.invalidate(c, cache.UserGroupsAll()); err != nil {
		return gc.fail(c, err)
	}
	return utils.Created(c, group)
}

func (gc *UserGroupsController) UpdateGroup(c *fiber.Ctx) error {
	var input userGroupUpdate
	if err := parseBody(c, &input, "Invalid group data"); err != nil {
		return gc.fail(c, err)
	}

	var group models.UserGroup
	if err := gc.DB.First(&group, "id = ?", c.Params("id")).Error; err != nil {
		return gc.fail(c, lookup(err, "Group not found"))
	}
	if input.Name != nil {
		group.Name = *input.Name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}
	if err := gc.DB.Save(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Group name must be unique")
		}
		return gc.fail(c, errors.Wrap(err, "update user group"))
	}

	if err := gc.invalidate(c, cache.UserGroupsAll()); err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(group)
}

func (gc *UserGroupsController) DeleteGroup(c *fiber.Ctx) error {
	res := gc.DB.Delete(&models.UserGroup{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return gc.fail(c, errors.Wrap(res.Error, "delete user group"))
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Group not found")
	}

	if err := gc.invalidate(c, cache.UserGroupsAll()); err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group deleted"})
}
