package services

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailms/lms/backend/models"
)

func TestHTTPRecommenderReturnsRawBody(t *testing.T) {
	var got RecommendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"recommended":["c2"]}`)
	}))
	defer srv.Close()

	rec := NewHTTPRecommender(srv.URL)
	body, err := rec.Recommend(RecommendRequest{
		UserID:  "u1",
		Courses: []models.Course{{Base: models.Base{ID: "c2"}, Title: "Go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"recommended":["c2"]}`, string(body))
	assert.Equal(t, "u1", got.UserID)
	require.Len(t, got.Courses, 1)
	assert.Equal(t, "c2", got.Courses[0].ID)
}

func TestHTTPRecommenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPRecommender(srv.URL).Recommend(RecommendRequest{UserID: "u1"})
	assert.Error(t, err)
}

func TestHTTPQuizGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Node.js is a runtime", in["text"])
		_, _ = io.WriteString(w, `{"questions":[{"question":"What is Node.js?","options":["A runtime","A database"],"correctAnswer":0}]}`)
	}))
	defer srv.Close()

	quiz, err := NewHTTPQuizGenerator(srv.URL).Generate("Node.js is a runtime")
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "A runtime", quiz.Questions[0].Options[quiz.Questions[0].CorrectAnswer])
}

func TestHTTPQuizGeneratorEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"questions":[]}`)
	}))
	defer srv.Close()

	_, err := NewHTTPQuizGenerator(srv.URL).Generate("text")
	assert.Error(t, err)
}
