package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/policy"
	"github.com/ailms/lms/backend/storage"
	"github.com/ailms/lms/backend/utils"
)

type LessonsController struct {
	*Deps
}

func NewLessonsController(d *Deps) *LessonsController {
	return &LessonsController{Deps: d}
}

type createLessonInput struct {
	Title       string       `json:"title" validate:"required"`
	ContentType string       `json:"contentType" validate:"required,oneof=video pdf"`
	ContentURL  string       `json:"contentUrl" validate:"required"`
	Order       *int         `json:"order" validate:"required"`
	HasQuiz     bool         `json:"hasQuiz"`
	Quiz        *models.Quiz `json:"quiz"`
}

type updateLessonInput struct {
	Title       *string      `json:"title" validate:"omitempty,min=1"`
	ContentType *string      `json:"contentType" validate:"omitempty,oneof=video pdf"`
	ContentURL  *string      `json:"contentUrl" validate:"omitempty,min=1"`
	Order       *int         `json:"order"`
	HasQuiz     *bool        `json:"hasQuiz"`
	Quiz        *models.Quiz `json:"quiz"`
}

type quizQuestions struct {
	Questions []models.QuizQuestion `json:"questions" validate:"required,min=1,dive"`
}

type saveQuizInput struct {
	Quiz *quizQuestions `json:"quiz" validate:"required"`
}

// lessonScope is a loaded lesson with its parents.
type lessonScope struct {
	lesson *models.Lesson
	module *models.Module
	course *models.Course
}

func (s lessonScope) event(kind string) events.Event {
	return events.Event{
		Type:         kind,
		CourseID:     s.course.ID,
		ModuleID:     s.module.ID,
		LessonID:     s.lesson.ID,
		Title:        s.lesson.Title,
		TargetGroups: s.course.TargetGroups,
		InstructorID: s.course.InstructorID,
	}
}

// loadLesson returns the lesson in :id with its module and course, checking the caller owns the course.
func (lc *LessonsController) loadLesson(c *fiber.Ctx, verb string) (lessonScope, error) {
	var s lessonScope
	var lesson models.Lesson
	if err := lc.DB.First(&lesson, "id = ?", c.Params("id")).Error; err != nil {
		return s, lookup(err, "Lesson not found")
	}
	var module models.Module
	if err := lc.DB.First(&module, "id = ?", lesson.ModuleID).Error; err != nil {
		return s, lookup(err, "Parent module not found")
	}
	if lesson.CourseID != module.CourseID {
		return s, errors.Errorf("lesson %s belongs to course %s but its module to %s", lesson.ID, lesson.CourseID, module.CourseID)
	}
	course, err := models.FindCourse(lc.DB, lesson.CourseID)
	if err != nil {
		return s, lookup(err, "Parent course not found")
	}
	if !policy.CanMutate(actorOf(c), policy.Within(course)).Allowed() {
		return s, forbidden("Not authorized to " + verb + " this lesson")
	}
	return lessonScope{lesson: &lesson, module: &module, course: course}, nil
}

// afterLessonWrite drops the module's lesson list and announces the change.
func (lc *LessonsController) afterLessonWrite(c *fiber.Ctx, s lessonScope, e events.Event) error {
	return afterWrite(
		func() error { return lc.invalidate(c, cache.ModuleLessons(s.module.ID)) },
		func() error {
			if !s.course.Announced() {
				return nil
			}
			return lc.emit(c, e)
		},
	)
}

func (lc *LessonsController) ListLessons(c *fiber.Ctx) error {
	moduleID := c.Params("id")
	return lc.serveCached(c, cache.ModuleLessons(moduleID), cache.TTLLessons, func() (interface{}, error) {
		lessons := []models.Lesson{}
		err := lc.DB.Where("module_id = ?", moduleID).Order("sequence_order ASC").Order("created_at ASC").Find(&lessons).Error
		return lessons, err
	})
}

func (lc *LessonsController) AddLesson(c *fiber.Ctx) error {
	var input createLessonInput
	if err := parseBody(c, &input, "Title, contentType, contentUrl, and order are required"); err != nil {
		return lc.fail(c, err)
	}

	module, course, err := loadModule(lc.Deps, c, "add lesson to")
	if err != nil {
		return lc.fail(c, err)
	}

	lesson := models.Lesson{
		ModuleID:    module.ID,
		CourseID:    course.ID,
		Title:       input.Title,
		ContentType: input.ContentType,
		ContentURL:  input.ContentURL,
		Order:       *input.Order,
		HasQuiz:     input.HasQuiz,
	}
	if input.HasQuiz {
		lesson.Quiz = input.Quiz
	}
	if err := lc.DB.Create(&lesson).Error; err != nil {
		return lc.fail(c, errors.Wrap(err, "create lesson"))
	}

	s := lessonScope{lesson: &lesson, module: module, course: course}
	e := s.event(events.LessonAdded)
	e.CreatedAt = events.At(lesson.CreatedAt)
	if err := lc.afterLessonWrite(c, s, e); err != nil {
		return lc.fail(c, err)
	}
	return utils.Created(c, lesson)
}

func (lc *LessonsController) EditLesson(c *fiber.Ctx) error {
	var input updateLessonInput
	if err := parseBody(c, &input, "Invalid lesson data"); err != nil {
		return lc.fail(c, err)
	}
	s, err := lc.loadLesson(c, "edit")
	if err != nil {
		return lc.fail(c, err)
	}

	lesson := s.lesson
	if input.Title != nil {
		lesson.Title = *input.Title
	}
	if input.ContentType != nil {
		lesson.ContentType = *input.ContentType
	}
	if input.ContentURL != nil {
		lesson.ContentURL = *input.ContentURL
	}
	if input.Order != nil {
		lesson.Order = *input.Order
	}
	if input.HasQuiz != nil {
		lesson.HasQuiz = *input.HasQuiz
	}
	if lesson.HasQuiz && input.Quiz != nil {
		lesson.Quiz = input.Quiz
	}
	if err := lc.DB.Save(lesson).Error; err != nil {
		return lc.fail(c, errors.Wrap(err, "update lesson"))
	}

	e := s.event(events.LessonEdited)
	e.UpdatedAt = events.At(time.Now())
	if err := lc.afterLessonWrite(c, s, e); err != nil {
		return lc.fail(c, err)
	}
	return c.JSON(lesson)
}

func (lc *LessonsController) DeleteLesson(c *fiber.Ctx) error {
	s, err := lc.loadLesson(c, "delete")
	if err != nil {
		return lc.fail(c, err)
	}
	if err := lc.DB.Delete(&models.Lesson{}, "id = ?", s.lesson.ID).Error; err != nil {
		return lc.fail(c, errors.Wrap(err, "delete lesson"))
	}

	e := s.event(events.LessonDeleted)
	e.DeletedAt = events.At(time.Now())
	if err := lc.afterLessonWrite(c, s, e); err != nil {
		return lc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}

// UploadContent stages the multipart file locally, forwards it to the file store
// and points the lesson at the returned URL.
func (lc *LessonsController) UploadContent(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "No file uploaded")
	}
	s, err := lc.loadLesson(c, "upload content for")
	if err != nil {
		return lc.fail(c, err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType := models.ContentVideo
	if ext == ".pdf" {
		contentType = models.ContentPDF
	}

	staged, err := storage.TempPath(lc.Cfg.UploadDir, ext)
	if err != nil {
		return lc.fail(c, err)
	}
	defer os.Remove(staged)
	if err := c.SaveFile(fh, staged); err != nil {
		return lc.fail(c, errors.Wrap(err, "stage upload"))
	}

	name := fmt.Sprintf("%s_%s_%s_%d%s", s.course.ID, s.module.ID, s.lesson.ID, time.Now().UnixMilli(), ext)
	url, err := lc.Files.Upload(c.UserContext(), staged, name)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return utils.Error(c, fiber.StatusServiceUnavailable, "File storage is not configured")
		}
		return lc.fail(c, errors.Wrap(err, "upload lesson content"))
	}

	s.lesson.ContentType = contentType
	s.lesson.ContentURL = url
	err = lc.DB.Model(&models.Lesson{}).Where("id = ?", s.lesson.ID).
		Updates(map[string]interface{}{"content_type": contentType, "content_url": url}).Error
	if err != nil {
		return lc.fail(c, errors.Wrap(err, "update lesson content"))
	}

	e := s.event(events.LessonContentUploaded)
	e.UploadedAt = events.At(time.Now())
	if err := lc.afterLessonWrite(c, s, e); err != nil {
		return lc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "File uploaded and lesson updated", "contentUrl": url})
}

func (lc *LessonsController) SaveQuiz(c *fiber.Ctx) error {
	var input saveQuizInput
	if err := parseBody(c, &input, "Quiz with questions is required"); err != nil {
		return lc.fail(c, err)
	}
	s, err := lc.loadLesson(c, "save quiz for")
	if err != nil {
		return lc.fail(c, err)
	}

	quiz := &models.Quiz{Questions: input.Quiz.Questions}
	s.lesson.HasQuiz = true
	s.lesson.Quiz = quiz
	if err := lc.DB.Save(s.lesson).Error; err != nil {
		return lc.fail(c, errors.Wrap(err, "save quiz"))
	}

	e := s.event(events.LessonQuizSaved)
	e.UpdatedAt = events.At(time.Now())
	if err := lc.afterLessonWrite(c, s, e); err != nil {
		return lc.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Quiz saved and approved for lesson", "quiz": quiz})
}
