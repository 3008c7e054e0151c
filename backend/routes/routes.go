package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ailms/lms/backend/controllers"
	"github.com/ailms/lms/backend/middleware"
	"github.com/ailms/lms/backend/models"
)

func SetupRoutes(app *fiber.App, deps *controllers.Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	authController := controllers.NewAuthController(deps)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(deps.Cfg.JWTSecret)
	learnerOnly := middleware.RoleMiddleware(models.RoleLearner)
	instructorOnly := middleware.RoleMiddleware(models.RoleInstructor)
	adminOnly := middleware.RoleMiddleware(models.RoleAdmin)
	staff := middleware.RoleMiddleware(models.RoleInstructor, models.RoleAdmin)

	// Courses routes
	coursesController := controllers.NewCoursesController(deps)
	modulesController := controllers.NewModulesController(deps)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.ListCourses)
	courses.Post("/", instructorOnly, coursesController.CreateCourse)
	courses.Get("/:id", coursesController.GetCourse)
	courses.Put("/:id", staff, coursesController.UpdateCourse)
	courses.Delete("/:id", staff, coursesController.DeleteCourse)
	courses.Put("/:id/visibility", staff, coursesController.SetVisibility)
	courses.Put("/:id/badge", staff, coursesController.AssignBadge)
	courses.Post("/:id/badge/award", staff, coursesController.AwardBadge)
	courses.Get("/:id/modules", modulesController.ListModules)
	courses.Post("/:id/modules", instructorOnly, modulesController.AddModule)

	// Modules routes
	lessonsController := controllers.NewLessonsController(deps)
	modules := app.Group("/api/modules", authMiddleware)
	modules.Put("/:id", instructorOnly, modulesController.EditModule)
	modules.Delete("/:id", instructorOnly, modulesController.DeleteModule)
	modules.Get("/:id/lessons", lessonsController.ListLessons)
	modules.Post("/:id/lessons", instructorOnly, lessonsController.AddLesson)

	// Lessons routes
	lessons := app.Group("/api/lessons", authMiddleware, instructorOnly)
	lessons.Put("/:id", lessonsController.EditLesson)
	lessons.Delete("/:id", lessonsController.DeleteLesson)
	lessons.Post("/:id/upload", lessonsController.UploadContent)
	lessons.Put("/:id/quiz", lessonsController.SaveQuiz)

	// Enrollment routes
	enrollmentsController := controllers.NewEnrollmentsController(deps)
	enrollments := app.Group("/api/enrollments", authMiddleware)
	enrollments.Post("/request", learnerOnly, enrollmentsController.RequestEnrollment)
	enrollments.Get("/my-requests", learnerOnly, enrollmentsController.MyRequests)
	enrollments.Get("/pending", instructorOnly, enrollmentsController.PendingEnrollments)
	enrollments.Put("/:id/approve", instructorOnly, enrollmentsController.ProcessEnrollment)

	// User group routes
	groupsController := controllers.NewUserGroupsController(deps)
	groups := app.Group("/api/user-groups", authMiddleware)
	groups.Get("/", staff, groupsController.ListGroups)
	groups.Post("/", adminOnly, groupsController.CreateGroup)
	groups.Put("/:id", adminOnly, groupsController.UpdateGroup)
	groups.Delete("/:id", adminOnly, groupsController.DeleteGroup)

	// User routes
	usersController := controllers.NewUsersController(deps)
	users := app.Group("/api/users", authMiddleware)
	users.Get("/profile", usersController.GetProfile)
	users.Get("/badges", usersController.GetBadges)
	users.Get("/notifications", usersController.GetNotifications)
	users.Put("/notifications/:id/read", usersController.MarkNotificationRead)
	users.Get("/recommendations", learnerOnly, usersController.SessionRecommendations)
	users.Get("/:userId/recommendations", usersController.StoredRecommendations)

	// Badge catalog
	badgesController := controllers.NewBadgesController(deps)
	badges := app.Group("/api/badges", authMiddleware)
	badges.Get("/", badgesController.ListBadges)
	badges.Post("/", adminOnly, badgesController.CreateBadge)

	// AI routes
	aiController := controllers.NewAIController(deps)
	app.Post("/api/ai/generate-quiz", authMiddleware, instructorOnly, aiController.GenerateQuiz)
}
