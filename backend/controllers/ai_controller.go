package controllers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/ailms/lms/backend/storage"
	"github.com/ailms/lms/backend/utils"
)

type AIController struct {
	*Deps
}

func NewAIController(d *Deps) *AIController {
	return &AIController{Deps: d}
}

// GenerateQuiz forwards the raw contents of an uploaded PDF to the quiz generator.
func (ac *AIController) GenerateQuiz(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil || strings.ToLower(filepath.Ext(fh.Filename)) != ".pdf" {
		return utils.BadRequest(c, "No PDF uploaded")
	}

	staged, err := storage.TempPath(ac.Cfg.UploadDir, ".pdf")
	if err != nil {
		return ac.fail(c, err)
	}
	defer os.Remove(staged)
	if err := c.SaveFile(fh, staged); err != nil {
		return ac.fail(c, errors.Wrap(err, "stage pdf"))
	}

	text, err := os.ReadFile(staged)
	if err != nil {
		return ac.fail(c, errors.Wrap(err, "read pdf"))
	}

	quiz, err := ac.Quizzes.Generate(string(text))
	if err != nil {
		ac.Logger.Error().Err(err).Str("file", fh.Filename).Msg("quiz generation failed")
		return utils.Error(c, fiber.StatusBadGateway, "Quiz generation failed")
	}
	return c.JSON(fiber.Map{"quiz": quiz})
}
