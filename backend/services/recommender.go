package services

import (
	"time"

	"github.com/ailms/lms/backend/models"
)

// RecommendRequest is what the recommendation service scores.
type RecommendRequest struct {
	UserID      string              `json:"userId"`
	Enrollments []models.Enrollment `json:"enrollments"`
	Courses     []models.Course     `json:"courses"`
}

type Recommender interface {
	Recommend(req RecommendRequest) ([]byte, error)
}

// HTTPRecommender posts to the external recommendation service and returns its raw reply.
type HTTPRecommender struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPRecommender(url string) *HTTPRecommender {
	return &HTTPRecommender{URL: url, Timeout: defaultTimeout}
}

func (r *HTTPRecommender) Recommend(req RecommendRequest) ([]byte, error) {
	return postJSON(r.URL, req, r.Timeout)
}
