package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONCarriesTypeAndPayload(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Event{
		Type:         CoursePublished,
		CourseID:     "c1",
		Title:        "Go basics",
		TargetGroups: []string{"Eng"},
		InstructorID: "i1",
		CreatedAt:    At(created),
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "course_published",
		"courseId": "c1",
		"title": "Go basics",
		"targetGroups": ["Eng"],
		"instructorId": "i1",
		"createdAt": "2024-03-01T12:00:00Z"
	}`, string(b))
}

func TestNewTaskTargetsTopicQueue(t *testing.T) {
	task, err := NewTask(Event{Type: ModuleAdded, CourseID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, Topic, task.Type())
	var back Event
	require.NoError(t, json.Unmarshal(task.Payload(), &back))
	assert.Equal(t, ModuleAdded, back.Type)
	assert.Equal(t, "c1", back.CourseID)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, Event{Type: LessonAdded}))
	require.NoError(t, r.Publish(ctx, Event{Type: LessonEdited}))
	assert.Equal(t, []string{LessonAdded, LessonEdited}, r.Types())

	r.Reset()
	assert.Empty(t, r.Events())

	r.Err = errors.New("bus down")
	assert.Error(t, r.Publish(ctx, Event{Type: LessonAdded}))
	assert.Empty(t, r.Events())
}
