package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

// bind parses the JSON body into req and validates it.
func (s *Server) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return s.validate.Struct(req)
}

// uuidParam parses a path parameter as a UUID.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// authorize checks that studentID owns the active enrollment. Failures are
// classified so a missing enrollment is 404, an inactive one 409 and a
// foreign one 403.
func (s *Server) authorize(c *fiber.Ctx, enrollmentID, studentID uuid.UUID) error {
	ctx := c.UserContext()
	ok, err := s.repo.EnrollmentExistsAndActive(ctx, enrollmentID, studentID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	enr, err := s.repo.Enrollment(ctx, enrollmentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("enrollment %s: %w", enrollmentID, progress.ErrNotFound)
	case err != nil:
		return err
	case enr.StudentID != studentID:
		return fmt.Errorf("student %s does not own enrollment %s: %w", studentID, enrollmentID, progress.ErrUnauthorized)
	default:
		return fmt.Errorf("enrollment %s is inactive: %w", enrollmentID, progress.ErrInvalidState)
	}
}

// lessonRecord reads back the record written by a lesson operation.
func (s *Server) lessonRecord(c *fiber.Ctx, lessonID, enrollmentID uuid.UUID) (*LessonProgressResponse, error) {
	lp, err := s.repo.LessonProgress(c.UserContext(), store.LessonKey{LessonID: lessonID, EnrollmentID: enrollmentID})
	if err != nil || lp == nil {
		return nil, err
	}
	out := toLessonProgressResponse(*lp)
	return &out, nil
}

// POST /api/enrollments
func (s *Server) enroll(c *fiber.Ctx) error {
	var req EnrollRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	enr, err := s.svc.Enroll(c.UserContext(), uuid.MustParse(req.StudentID), uuid.MustParse(req.ModuleID))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "enrolled", toEnrollmentResponse(enr))
}

// POST /api/lessons/:lessonID/start
func (s *Server) startLesson(c *fiber.Ctx) error {
	lessonID, err := uuidParam(c, "lessonID")
	if err != nil {
		return err
	}
	var req StartLessonRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	lp, err := s.svc.StartLesson(c.UserContext(), lessonID, uuid.MustParse(req.StudentID), uuid.MustParse(req.EnrollmentID))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "lesson started", toLessonProgressResponse(lp))
}

// POST /api/lessons/:lessonID/complete
func (s *Server) completeLesson(c *fiber.Ctx) error {
	lessonID, err := uuidParam(c, "lessonID")
	if err != nil {
		return err
	}
	var req CompleteLessonRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	enrollmentID := uuid.MustParse(req.EnrollmentID)
	if err := s.authorize(c, enrollmentID, uuid.MustParse(req.StudentID)); err != nil {
		return err
	}

	if err := s.svc.CompleteLesson(c.UserContext(), lessonID, enrollmentID, req.Score, req.WatchTimeSecs); err != nil {
		return err
	}
	lp, err := s.lessonRecord(c, lessonID, enrollmentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "lesson completed", lp)
}

// PUT /api/lessons/:lessonID/video
func (s *Server) updateVideo(c *fiber.Ctx) error {
	lessonID, err := uuidParam(c, "lessonID")
	if err != nil {
		return err
	}
	var req VideoProgressRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	enrollmentID := uuid.MustParse(req.EnrollmentID)
	if err := s.authorize(c, enrollmentID, uuid.MustParse(req.StudentID)); err != nil {
		return err
	}

	if err := s.svc.UpdateVideoProgress(c.UserContext(), lessonID, enrollmentID, req.WatchTimeSecs, req.LastPositionSecs); err != nil {
		return err
	}
	lp, err := s.lessonRecord(c, lessonID, enrollmentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "video progress updated", lp)
}

// POST /api/lessons/:lessonID/quiz
func (s *Server) submitQuiz(c *fiber.Ctx) error {
	lessonID, err := uuidParam(c, "lessonID")
	if err != nil {
		return err
	}
	var req QuizSubmissionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.svc.UpdateQuizProgress(c.UserContext(), lessonID,
		uuid.MustParse(req.StudentID), uuid.MustParse(req.EnrollmentID), *req.Score, req.Passed)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "quiz submitted", QuizResultResponse{
		Score:     res.Score,
		Passed:    res.Passed,
		Attempts:  res.Attempts,
		Completed: res.Completed,
	})
}

// GET /api/modules/:moduleID/progress?student_id=
func (s *Server) moduleProgress(c *fiber.Ctx) error {
	moduleID, err := uuidParam(c, "moduleID")
	if err != nil {
		return err
	}
	studentID, err := uuid.Parse(c.Query("student_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "student_id query parameter is required")
	}

	snap, err := s.svc.GetModuleProgress(c.UserContext(), moduleID, studentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "module progress", toModuleSnapshotResponse(snap))
}

// POST /api/admin/lessons/:lessonID/reset
func (s *Server) resetLesson(c *fiber.Ctx) error {
	lessonID, err := uuidParam(c, "lessonID")
	if err != nil {
		return err
	}
	var req ResetLessonRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	enrollmentID := uuid.MustParse(req.EnrollmentID)

	if err := s.svc.ResetLessonProgress(c.UserContext(), lessonID, enrollmentID); err != nil {
		return err
	}
	s.logger.Info("lesson progress reset",
		"lesson_id", lessonID, "enrollment_id", enrollmentID, "role", c.Get(HeaderRole))
	lp, err := s.lessonRecord(c, lessonID, enrollmentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "lesson progress reset", lp)
}

// POST /api/admin/enrollments/:enrollmentID/reconcile
func (s *Server) reconcile(c *fiber.Ctx) error {
	enrollmentID, err := uuidParam(c, "enrollmentID")
	if err != nil {
		return err
	}

	res, err := s.svc.Reconcile(c.UserContext(), enrollmentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "enrollment reconciled", ReconcileResponse{
		EnrollmentID:  res.EnrollmentID,
		Topics:        res.Topics,
		Skipped:       res.Skipped,
		Transitions:   res.Transitions,
		ModulePercent: res.ModulePercent,
	})
}
