package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/utils"
)

type BadgesController struct {
	*Deps
}

func NewBadgesController(d *Deps) *BadgesController {
	return &BadgesController{Deps: d}
}

type badgeCreateInput struct {
	Name        string `json:"name" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"required,url"`
	Description string `json:"description"`
}

func (bc *BadgesController) ListBadges(c *fiber.Ctx) error {
	badges := []models.Badge{}
	if err := bc.DB.Order("name ASC").Find(&badges).Error; err != nil {
		return bc.fail(c, errors.Wrap(err, "list badges"))
	}
	return c.JSON(badges)
}

func (bc *BadgesController) CreateBadge(c *fiber.Ctx) error {
	var input badgeCreateInput
	if err := parseBody(c, &input, "Name and imageUrl are required"); err != nil {
		return bc.fail(c, err)
	}
	badge := models.Badge{Name: input.Name, ImageURL: input.ImageURL, Description: input.Description}
	if err := bc.DB.Create(&badge).Error; err != nil {
		return bc.fail(c, errors.Wrap(err, "create badge"))
	}
	return utils.Created(c, badge)
}
