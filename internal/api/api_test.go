package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learntrack/internal/audit"
	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/rollup"
	"github.com/abhisek/learntrack/internal/store"
)

// fixture is an app over an in-memory store and a module with two topics:
// basics (text, video) and check (quiz).
type fixture struct {
	app     *fiber.App
	repo    store.ProgressRepo
	audit   *audit.Memory
	module  catalog.Module
	student uuid.UUID

	text, video, quiz catalog.Lesson
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(store.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	lesson := func(lt catalog.LessonType) catalog.Lesson {
		return catalog.Lesson{ID: uuid.New(), Title: string(lt), Type: lt, Published: true}
	}
	mod := catalog.Module{ID: uuid.New(), Title: "Course", Topics: []catalog.Topic{
		{ID: uuid.New(), Title: "basics", Lessons: []catalog.Lesson{lesson(catalog.LessonText), lesson(catalog.LessonVideo)}},
		{ID: uuid.New(), Title: "check", Lessons: []catalog.Lesson{lesson(catalog.LessonQuiz)}},
	}}
	cat, err := catalog.New([]catalog.Module{mod})
	require.NoError(t, err)
	mod, err = cat.Module(context.Background(), mod.ID)
	require.NoError(t, err)

	f := &fixture{repo: s.ProgressRepo(), audit: &audit.Memory{}, module: mod, student: uuid.New()}
	notifier := rollup.NewNotifier(rollup.NewEngine(f.repo, cat, nil), f.audit, nil)
	svc := progress.NewService(f.repo, cat, notifier)
	f.app = New(svc, f.repo, Options{})

	f.text = mod.Topics[0].Lessons[0]
	f.video = mod.Topics[0].Lessons[1]
	f.quiz = mod.Topics[1].Lessons[0]
	return f
}

type envelope struct {
	Code    int               `json:"code"`
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (f *fixture) enroll(t *testing.T) EnrollmentResponse {
	t.Helper()
	code, env := f.do(t, http.MethodPost, "/api/enrollments", EnrollRequest{
		StudentID: f.student.String(),
		ModuleID:  f.module.ID.String(),
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var enr EnrollmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &enr))
	return enr
}

func lessonPath(id uuid.UUID, action string) string {
	return "/api/lessons/" + id.String() + "/" + action
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
}

func TestEnrollAndCompleteFlow(t *testing.T) {
	f := newFixture(t)
	enr := f.enroll(t)
	assert.Equal(t, 3, enr.Progress.TotalLessons)
	assert.True(t, enr.Active)

	code, env := f.do(t, http.MethodPost, lessonPath(f.text.ID, "start"), StartLessonRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var lp LessonProgressResponse
	require.NoError(t, json.Unmarshal(env.Data, &lp))
	assert.Equal(t, "in_progress", lp.Status)

	code, env = f.do(t, http.MethodPost, lessonPath(f.text.ID, "complete"), CompleteLessonRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &lp))
	assert.True(t, lp.Completed)
	assert.NotNil(t, lp.CompletedAt)

	score := 80
	code, env = f.do(t, http.MethodPost, lessonPath(f.quiz.ID, "quiz"), QuizSubmissionRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
		Score:        &score,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var qr QuizResultResponse
	require.NoError(t, json.Unmarshal(env.Data, &qr))
	assert.True(t, qr.Passed)
	assert.True(t, qr.Completed)
	assert.Equal(t, 1, qr.Attempts)

	code, env = f.do(t, http.MethodGet, "/api/modules/"+f.module.ID.String()+"/progress?student_id="+f.student.String(), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var snap ModuleSnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 67, snap.Enrollment.Progress.Percentage)
	require.Len(t, snap.Topics, 2)
	assert.Equal(t, 50, snap.Topics[0].Percentage)
	assert.True(t, snap.Topics[1].Completed)
	assert.Equal(t, "not_started", snap.Topics[0].Lessons[1].Status)

	assert.Len(t, f.audit.OfKind(audit.KindTopicCompleted), 1)
}

func TestVideoProgress(t *testing.T) {
	f := newFixture(t)
	enr := f.enroll(t)

	code, env := f.do(t, http.MethodPut, lessonPath(f.video.ID, "video"), VideoProgressRequest{
		StudentID:        f.student.String(),
		EnrollmentID:     enr.ID.String(),
		WatchTimeSecs:    120,
		LastPositionSecs: 95,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var lp LessonProgressResponse
	require.NoError(t, json.Unmarshal(env.Data, &lp))
	assert.Equal(t, 120, lp.WatchTimeSecs)
	assert.Equal(t, 95, lp.LastPositionSecs)
	assert.False(t, lp.Completed)

	code, _ = f.do(t, http.MethodPut, lessonPath(f.text.ID, "video"), VideoProgressRequest{
		StudentID:     f.student.String(),
		EnrollmentID:  enr.ID.String(),
		WatchTimeSecs: 10,
	})
	assert.Equal(t, http.StatusConflict, code, "ticks on a text lesson")
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)
	enr := f.enroll(t)

	code, env := f.do(t, http.MethodPost, "/api/enrollments", EnrollRequest{StudentID: "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "uuid", env.Errors["StudentID"])
	assert.Equal(t, "required", env.Errors["ModuleID"])

	score := 101
	code, env = f.do(t, http.MethodPost, lessonPath(f.quiz.ID, "quiz"), QuizSubmissionRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
		Score:        &score,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "max", env.Errors["Score"])

	code, _ = f.do(t, http.MethodPost, "/api/lessons/not-a-uuid/start", StartLessonRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/modules/"+f.module.ID.String()+"/progress", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEnrollmentOwnership(t *testing.T) {
	f := newFixture(t)
	enr := f.enroll(t)

	tests := []struct {
		name       string
		student    uuid.UUID
		enrollment uuid.UUID
		prepare    func(t *testing.T)
		want       int
	}{
		{"foreign student", uuid.New(), enr.ID, nil, http.StatusForbidden},
		{"unknown enrollment", f.student, uuid.New(), nil, http.StatusNotFound},
		{"inactive enrollment", f.student, enr.ID, func(t *testing.T) {
			require.NoError(t, f.repo.SetEnrollmentActive(context.Background(), enr.ID, false))
		}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepare != nil {
				tt.prepare(t)
			}
			code, _ := f.do(t, http.MethodPost, lessonPath(f.text.ID, "complete"), CompleteLessonRequest{
				StudentID:    tt.student.String(),
				EnrollmentID: tt.enrollment.String(),
			})
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	f := newFixture(t)
	enr := f.enroll(t)

	code, _ := f.do(t, http.MethodPost, lessonPath(f.text.ID, "complete"), CompleteLessonRequest{
		StudentID:    f.student.String(),
		EnrollmentID: enr.ID.String(),
	})
	require.Equal(t, http.StatusOK, code)

	reset := ResetLessonRequest{EnrollmentID: enr.ID.String()}
	resetPath := "/api/admin/lessons/" + f.text.ID.String() + "/reset"

	code, _ = f.do(t, http.MethodPost, resetPath, reset)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodPost, resetPath, reset, HeaderRole, "student")
	assert.Equal(t, http.StatusForbidden, code)

	code, env := f.do(t, http.MethodPost, resetPath, reset, HeaderRole, RoleInstructor)
	require.Equal(t, http.StatusOK, code, env.Message)
	var lp LessonProgressResponse
	require.NoError(t, json.Unmarshal(env.Data, &lp))
	assert.Equal(t, "not_started", lp.Status)
	assert.False(t, lp.Completed)

	code, _ = f.do(t, http.MethodPost, "/api/admin/lessons/"+f.video.ID.String()+"/reset", reset, HeaderRole, RoleAdmin)
	assert.Equal(t, http.StatusNotFound, code, "no record to reset")

	code, env = f.do(t, http.MethodPost, "/api/admin/enrollments/"+enr.ID.String()+"/reconcile", nil, HeaderRole, RoleAdmin)
	require.Equal(t, http.StatusOK, code, env.Message)
	var rr ReconcileResponse
	require.NoError(t, json.Unmarshal(env.Data, &rr))
	assert.Equal(t, 2, rr.Topics)
	assert.Equal(t, 0, rr.ModulePercent)
}
