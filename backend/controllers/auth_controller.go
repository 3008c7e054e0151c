package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/utils"
)

type AuthController struct {
	*Deps
}

func NewAuthController(d *Deps) *AuthController {
	return &AuthController{Deps: d}
}

type registerInput struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role" validate:"omitempty,oneof=learner instructor admin"`
	Department string `json:"department"`
	Group      string `json:"userGroup"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func authResponse(token string, user *models.User) fiber.Map {
	return fiber.Map{
		"token": token,
		"user":  user,
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input registerInput
	if err := parseBody(c, &input, "Invalid registration data"); err != nil {
		return ac.fail(c, err)
	}
	if input.Role == "" {
		input.Role = models.RoleLearner
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return ac.fail(c, errors.Wrap(err, "hash password"))
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hashedPassword),
		Name:         input.Name,
		Role:         input.Role,
		Department:   input.Department,
		Group:        input.Group,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "User already exists")
		}
		return ac.fail(c, errors.Wrap(err, "create user"))
	}

	token, err := utils.GenerateJWTToken(&user, ac.Cfg.JWTSecret)
	if err != nil {
		return ac.fail(c, errors.Wrap(err, "sign token"))
	}
	return utils.Created(c, authResponse(token, &user))
}

// Login godoc
// @Summary User login
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := parseBody(c, &input, "Email and password are required"); err != nil {
		return ac.fail(c, err)
	}

	var user models.User
	if err := ac.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return ac.fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(&user, ac.Cfg.JWTSecret)
	if err != nil {
		return ac.fail(c, errors.Wrap(err, "sign token"))
	}
	return c.JSON(authResponse(token, &user))
}
