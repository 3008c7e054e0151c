package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/models"
)

func myRequests(t *testing.T, env *testEnv, token string) []models.Enrollment {
	t.Helper()
	status, body := env.do(t, http.MethodGet, "/api/enrollments/my-requests", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var out []models.Enrollment
	decode(t, body, &out)
	return out
}

func TestEnrollmentWorkflow(t *testing.T) {
	env := newTestEnv(t)
	instructor, owner := env.user(t, models.RoleInstructor, "")
	_, other := env.user(t, models.RoleInstructor, "")
	learner, token := env.user(t, models.RoleLearner, "Engineering")
	course := env.createCourse(t, owner, map[string]interface{}{"title": "Go", "category": "Technology", "isPublished": true})

	assert.Empty(t, myRequests(t, env, token))
	require.True(t, env.cached(cache.MyRequests(learner.ID)))

	status, body := env.do(t, http.MethodPost, "/api/enrollments/request", token, map[string]interface{}{"courseId": course.ID})
	require.Equal(t, http.StatusCreated, status, string(body))
	var enrollment models.Enrollment
	decode(t, body, &enrollment)
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)
	assert.False(t, env.cached(cache.MyRequests(learner.ID)))

	got := env.events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.EnrollmentRequested, got[0].Type)
	assert.Equal(t, instructor.ID, got[0].InstructorID)
	assert.Equal(t, learner.ID, got[0].UserID)

	t.Run("duplicate request conflicts without a new row", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/enrollments/request", token, map[string]interface{}{"courseId": course.ID})
		assert.Equal(t, http.StatusConflict, status)
		var count int64
		require.NoError(t, env.db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", learner.ID, course.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	requests := myRequests(t, env, token)
	require.Len(t, requests, 1)
	assert.Equal(t, models.EnrollmentPending, requests[0].Status)
	require.NotNil(t, requests[0].Course)
	assert.Equal(t, "Go", requests[0].Course.Title)
	assert.Equal(t, "Technology", requests[0].Course.Category)

	t.Run("pending list for the course owner", func(t *testing.T) {
		status, body := env.do(t, http.MethodGet, "/api/enrollments/pending", owner, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		var pending []models.Enrollment
		decode(t, body, &pending)
		require.Len(t, pending, 1)
		require.NotNil(t, pending[0].User)
		assert.Equal(t, "Engineering", pending[0].User.Group)

		status, body = env.do(t, http.MethodGet, "/api/enrollments/pending", other, nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, string(body))
	})

	approve := "/api/enrollments/" + enrollment.ID + "/approve"
	t.Run("decision checks", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPut, approve, owner, map[string]interface{}{"action": "maybe"})
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = env.do(t, http.MethodPut, approve, other, map[string]interface{}{"action": "approve"})
		assert.Equal(t, http.StatusForbidden, status)
		status, _ = env.do(t, http.MethodPut, "/api/enrollments/missing/approve", owner, map[string]interface{}{"action": "approve"})
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = env.do(t, http.MethodPut, approve, token, map[string]interface{}{"action": "approve"})
		assert.Equal(t, http.StatusForbidden, status)
	})

	status, body = env.do(t, http.MethodPut, approve, owner, map[string]interface{}{"action": "approve"})
	require.Equal(t, http.StatusOK, status, string(body))
	var processed models.Enrollment
	decode(t, body, &processed)
	assert.Equal(t, models.EnrollmentApproved, processed.Status)
	require.NotNil(t, processed.ProcessedAt)
	require.NotNil(t, processed.ProcessedBy)
	assert.Equal(t, instructor.ID, *processed.ProcessedBy)

	requests = myRequests(t, env, token)
	require.Len(t, requests, 1)
	assert.Equal(t, models.EnrollmentApproved, requests[0].Status)

	status, _ = env.do(t, http.MethodPut, approve, owner, map[string]interface{}{"action": "deny"})
	assert.Equal(t, http.StatusConflict, status)

	assert.Equal(t, []string{events.EnrollmentRequested, events.EnrollmentProcessed}, env.events.Types())
	last := env.events.Events()[1]
	assert.Equal(t, models.EnrollmentApproved, last.Status)
	assert.Equal(t, learner.ID, last.UserID)
}

func TestEnrollmentRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	_, learner := env.user(t, models.RoleLearner, "Engineering")
	_, instructor := env.user(t, models.RoleInstructor, "")

	status, _ := env.do(t, http.MethodPost, "/api/enrollments/request", learner, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/enrollments/request", learner, map[string]interface{}{"courseId": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/api/enrollments/request", instructor, map[string]interface{}{"courseId": "missing"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDuplicateEnrollmentRejectedByIndex(t *testing.T) {
	env := newTestEnv(t)
	learner, _ := env.user(t, models.RoleLearner, "Engineering")

	first := models.Enrollment{UserID: learner.ID, CourseID: "c1", Status: models.EnrollmentPending}
	require.NoError(t, env.db.Create(&first).Error)
	second := models.Enrollment{UserID: learner.ID, CourseID: "c1", Status: models.EnrollmentPending}
	assert.Error(t, env.db.Create(&second).Error)
}

func TestDenyEnrollment(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.user(t, models.RoleInstructor, "")
	_, token := env.user(t, models.RoleLearner, "Sales")
	course := env.createCourse(t, owner, map[string]interface{}{"title": "Go", "category": "Technology", "isPublished": true})

	status, body := env.do(t, http.MethodPost, "/api/enrollments/request", token, map[string]interface{}{"courseId": course.ID})
	require.Equal(t, http.StatusCreated, status)
	var enrollment models.Enrollment
	decode(t, body, &enrollment)

	status, _ = env.do(t, http.MethodPut, "/api/enrollments/"+enrollment.ID+"/approve", owner, map[string]interface{}{"action": "deny"})
	require.Equal(t, http.StatusOK, status)
	requests := myRequests(t, env, token)
	require.Len(t, requests, 1)
	assert.Equal(t, models.EnrollmentDenied, requests[0].Status)
}
