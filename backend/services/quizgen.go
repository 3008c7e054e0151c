package services

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ailms/lms/backend/models"
)

type QuizGenerator interface {
	Generate(text string) (*models.Quiz, error)
}

// HTTPQuizGenerator posts the uploaded document, as-is, to the quiz service.
type HTTPQuizGenerator struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPQuizGenerator(url string) *HTTPQuizGenerator {
	return &HTTPQuizGenerator{URL: url, Timeout: defaultTimeout}
}

func (g *HTTPQuizGenerator) Generate(text string) (*models.Quiz, error) {
	body, err := postJSON(g.URL, map[string]string{"text": text}, g.Timeout)
	if err != nil {
		return nil, err
	}
	var quiz models.Quiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		return nil, errors.Wrap(err, "decode quiz")
	}
	if len(quiz.Questions) == 0 {
		return nil, errors.New("quiz service returned no questions")
	}
	return &quiz, nil
}
