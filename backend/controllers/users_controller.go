package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/services"
	"github.com/ailms/lms/backend/utils"
)

const notificationsPageSize = 50

type UsersController struct {
	*Deps
}

func NewUsersController(d *Deps) *UsersController {
	return &UsersController{Deps: d}
}

// Profile is a user with the badges awarded so far.
type Profile struct {
	models.User
	Badges []models.UserBadge `json:"badges"`
}

func (uc *UsersController) userBadges(userID string) ([]models.UserBadge, error) {
	badges := []models.UserBadge{}
	err := uc.DB.Preload("Badge").Where("user_id = ?", userID).Order("awarded_at DESC").Find(&badges).Error
	return badges, err
}

func (uc *UsersController) GetProfile(c *fiber.Ctx) error {
	actor := actorOf(c)
	return uc.serveCached(c, cache.UserProfile(actor.ID), cache.TTLProfile, func() (interface{}, error) {
		var user models.User
		if err := uc.DB.First(&user, "id = ?", actor.ID).Error; err != nil {
			return nil, lookup(err, "User not found")
		}
		badges, err := uc.userBadges(user.ID)
		if err != nil {
			return nil, err
		}
		return Profile{User: user, Badges: badges}, nil
	})
}

func (uc *UsersController) GetBadges(c *fiber.Ctx) error {
	badges, err := uc.userBadges(actorOf(c).ID)
	if err != nil {
		return uc.fail(c, errors.Wrap(err, "list user badges"))
	}
	return c.JSON(badges)
}

func (uc *UsersController) GetNotifications(c *fiber.Ctx) error {
	notifications := []models.Notification{}
	err := uc.DB.Where("user_id = ?", actorOf(c).ID).
		Order("created_at DESC").
		Limit(notificationsPageSize).
		Find(&notifications).Error
	if err != nil {
		return uc.fail(c, errors.Wrap(err, "list notifications"))
	}
	return c.JSON(notifications)
}

func (uc *UsersController) MarkNotificationRead(c *fiber.Ctx) error {
	res := uc.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Params("id"), actorOf(c).ID).
		Update("is_read", true)
	if res.Error != nil {
		return uc.fail(c, errors.Wrap(res.Error, "mark notification read"))
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Notification not found")
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// SessionRecommendations asks the recommendation service to rank the catalog for the
// caller and returns its answer unchanged.
func (uc *UsersController) SessionRecommendations(c *fiber.Ctx) error {
	actor := actorOf(c)
	return uc.serveCached(c, cache.SessionRecommendations(actor.ID), cache.TTLSession, func() (interface{}, error) {
		enrollments := []models.Enrollment{}
		err := uc.DB.Where("user_id = ? AND status = ?", actor.ID, models.EnrollmentApproved).Find(&enrollments).Error
		if err != nil {
			return nil, err
		}
		courses := []models.Course{}
		if err := uc.DB.Preload("Audience").Where("is_published = ?", true).Find(&courses).Error; err != nil {
			return nil, err
		}

		body, err := uc.Recommender.Recommend(services.RecommendRequest{
			UserID:      actor.ID,
			Enrollments: enrollments,
			Courses:     courses,
		})
		if err != nil {
			uc.Logger.Error().Err(err).Str("user_id", actor.ID).Msg("recommendation service failed")
			return nil, fiber.NewError(fiber.StatusBadGateway, "Recommendation service unavailable")
		}
		return body, nil
	})
}

// StoredRecommendations returns the last generated recommendation for :userId.
// Learners may read only their own.
func (uc *UsersController) StoredRecommendations(c *fiber.Ctx) error {
	actor := actorOf(c)
	userID := c.Params("userId")
	if actor.ID != userID && actor.Role != models.RoleAdmin {
		return utils.Forbidden(c, "Not authorized to view these recommendations")
	}

	return uc.serveCached(c, cache.Recommendations(userID), cache.TTLRecommendations, func() (interface{}, error) {
		var rec models.Recommendation
		if err := uc.DB.First(&rec, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("No recommendations found")
			}
			return nil, err
		}
		if rec.Expired(time.Now()) {
			return nil, notFound("No recommendations found")
		}
		return rec, nil
	})
}
