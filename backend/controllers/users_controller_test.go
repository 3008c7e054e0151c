package controllers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/controllers"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/services"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.user(t, models.RoleLearner, "Engineering")

	status, body := env.do(t, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile controllers.Profile
	decode(t, body, &profile)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, "Engineering", profile.Group)
	assert.Empty(t, profile.Badges)
	assert.NotContains(t, string(body), "unused")
	assert.True(t, env.cached(cache.UserProfile(user.ID)))
}

func TestUserGroups(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.user(t, models.RoleAdmin, "")
	_, instructor := env.user(t, models.RoleInstructor, "")
	_, learner := env.user(t, models.RoleLearner, "Engineering")

	status, _ := env.do(t, http.MethodPost, "/api/user-groups", instructor, map[string]interface{}{"name": "Engineering"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodPost, "/api/user-groups", admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, "/api/user-groups", admin, map[string]interface{}{"name": "Engineering", "description": "Builders"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var group models.UserGroup
	decode(t, body, &group)

	status, _ = env.do(t, http.MethodPost, "/api/user-groups", admin, map[string]interface{}{"name": "Engineering"})
	assert.Equal(t, http.StatusConflict, status)

	status, first := env.do(t, http.MethodGet, "/api/user-groups", instructor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.cached(cache.UserGroupsAll()))
	_, second := env.do(t, http.MethodGet, "/api/user-groups", admin, nil)
	assert.Equal(t, first, second)
	status, _ = env.do(t, http.MethodGet, "/api/user-groups", learner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPut, "/api/user-groups/"+group.ID, admin, map[string]interface{}{"description": "Platform"})
	require.Equal(t, http.StatusOK, status, string(body))
	decode(t, body, &group)
	assert.Equal(t, "Engineering", group.Name)
	assert.Equal(t, "Platform", group.Description)
	assert.False(t, env.cached(cache.UserGroupsAll()))

	status, _ = env.do(t, http.MethodPut, "/api/user-groups/missing", admin, map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/api/user-groups/"+group.ID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodDelete, "/api/user-groups/"+group.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/api/user-groups", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestBadgeCatalog(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.user(t, models.RoleAdmin, "")
	_, learner := env.user(t, models.RoleLearner, "Engineering")

	status, _ := env.do(t, http.MethodPost, "/api/badges", learner, map[string]interface{}{"name": "Gopher", "imageUrl": "https://example.com/g.png"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodPost, "/api/badges", admin, map[string]interface{}{"name": "Gopher", "imageUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/badges", admin, map[string]interface{}{"name": "Gopher", "imageUrl": "https://example.com/g.png"})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, http.MethodGet, "/api/badges", learner, nil)
	require.Equal(t, http.StatusOK, status)
	var badges []models.Badge
	decode(t, body, &badges)
	require.Len(t, badges, 1)
	assert.Equal(t, "Gopher", badges[0].Name)

	status, body = env.do(t, http.MethodGet, "/api/users/badges", learner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.user(t, models.RoleLearner, "Engineering")
	_, otherToken := env.user(t, models.RoleLearner, "Engineering")
	note := models.Notification{UserID: user.ID, Type: "course_published", Message: "New course available: Go"}
	require.NoError(t, env.db.Create(&note).Error)

	status, body := env.do(t, http.MethodGet, "/api/users/notifications", token, nil)
	require.Equal(t, http.StatusOK, status)
	var notes []models.Notification
	decode(t, body, &notes)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].IsRead)

	status, _ = env.do(t, http.MethodPut, "/api/users/notifications/"+note.ID+"/read", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPut, "/api/users/notifications/"+note.ID+"/read", token, nil)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, env.db.First(&note, "id = ?", note.ID).Error)
	assert.True(t, note.IsRead)
}

func TestSessionRecommendations(t *testing.T) {
	var got services.RecommendRequest
	reply := []byte(`{"recommended":["c1"],"reason":"similar"}`)
	env := newTestEnv(t, func(d *controllers.Deps) {
		d.Recommender = fakeRecommender{body: reply, got: &got}
	})
	_, owner := env.user(t, models.RoleInstructor, "")
	learner, token := env.user(t, models.RoleLearner, "Engineering")
	course := env.createCourse(t, owner, map[string]interface{}{"title": "Go", "category": "Technology", "isPublished": true})
	require.NoError(t, env.db.Create(&models.Enrollment{UserID: learner.ID, CourseID: course.ID, Status: models.EnrollmentApproved}).Error)

	status, body := env.do(t, http.MethodGet, "/api/users/recommendations", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, reply, body)
	assert.Equal(t, learner.ID, got.UserID)
	assert.Len(t, got.Enrollments, 1)
	require.Len(t, got.Courses, 1)
	assert.Equal(t, course.ID, got.Courses[0].ID)

	v, ok, err := env.deps.Cache.Get(context.Background(), cache.SessionRecommendations(learner.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reply, v.Raw())

	status, _ = env.do(t, http.MethodGet, "/api/users/recommendations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSessionRecommendationsServiceDown(t *testing.T) {
	env := newTestEnv(t, func(d *controllers.Deps) {
		d.Recommender = fakeRecommender{err: errors.New("connection refused")}
	})
	learner, token := env.user(t, models.RoleLearner, "Engineering")

	status, _ := env.do(t, http.MethodGet, "/api/users/recommendations", token, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, env.cached(cache.SessionRecommendations(learner.ID)))
}

func TestStoredRecommendations(t *testing.T) {
	env := newTestEnv(t)
	learner, token := env.user(t, models.RoleLearner, "Engineering")
	other, otherToken := env.user(t, models.RoleLearner, "Engineering")
	_, admin := env.user(t, models.RoleAdmin, "")

	path := "/api/users/" + learner.ID + "/recommendations"
	status, _ := env.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodGet, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	now := time.Now()
	require.NoError(t, env.db.Create(&models.Recommendation{
		UserID:             learner.ID,
		RecommendedCourses: []string{"c1", "c2"},
		GeneratedAt:        now,
		ValidUntil:         now.Add(time.Hour),
	}).Error)
	require.NoError(t, env.db.Create(&models.Recommendation{
		UserID:             other.ID,
		RecommendedCourses: []string{"c3"},
		GeneratedAt:        now.Add(-48 * time.Hour),
		ValidUntil:         now.Add(-24 * time.Hour),
	}).Error)

	status, body := env.do(t, http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, status)
	var rec models.Recommendation
	decode(t, body, &rec)
	assert.Equal(t, []string{"c1", "c2"}, rec.RecommendedCourses)
	assert.True(t, env.cached(cache.Recommendations(learner.ID)))

	status, _ = env.do(t, http.MethodGet, "/api/users/"+other.ID+"/recommendations", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status, "expired")
}

func TestGenerateQuiz(t *testing.T) {
	env := newTestEnv(t)
	_, instructor := env.user(t, models.RoleInstructor, "")
	_, learner := env.user(t, models.RoleLearner, "Engineering")

	status, _ := env.upload(t, "/api/ai/generate-quiz", learner, "notes.pdf", []byte("Go has goroutines"))
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.upload(t, "/api/ai/generate-quiz", instructor, "notes.txt", []byte("Go has goroutines"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.upload(t, "/api/ai/generate-quiz", instructor, "notes.pdf", []byte("Go has goroutines"))
	require.Equal(t, http.StatusOK, status, string(body))
	var out struct {
		Quiz models.Quiz `json:"quiz"`
	}
	decode(t, body, &out)
	require.Len(t, out.Quiz.Questions, 1)
	assert.Equal(t, "Go has goroutines", out.Quiz.Questions[0].Options[0])
}

func TestGenerateQuizServiceDown(t *testing.T) {
	env := newTestEnv(t, func(d *controllers.Deps) { d.Quizzes = fakeQuizGenerator{err: errors.New("timeout")} })
	_, instructor := env.user(t, models.RoleInstructor, "")

	status, _ := env.upload(t, "/api/ai/generate-quiz", instructor, "notes.pdf", []byte("text"))
	assert.Equal(t, http.StatusBadGateway, status)
}
