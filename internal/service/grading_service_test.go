package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/grading"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
)

type stubGrader struct {
	result      grading.Result
	gradeErr    error
	review      string
	reviewErr   error
	gradeCalls  int
	reviewCalls int
}

func (s *stubGrader) Grade(_ context.Context, _ grading.Request) (grading.Result, error) {
	s.gradeCalls++
	if s.gradeErr != nil {
		return grading.Result{}, s.gradeErr
	}
	return s.result, nil
}

func (s *stubGrader) Review(_ context.Context, _ grading.Request) (string, error) {
	s.reviewCalls++
	if s.reviewErr != nil {
		return "", s.reviewErr
	}
	return s.review, nil
}

type recordingPublisher struct {
	events []SubmissionGradedEvent
}

func (r *recordingPublisher) SubmissionGraded(_ context.Context, event SubmissionGradedEvent) {
	r.events = append(r.events, event)
}

func openGradingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Student{}, &models.Submission{}))

	return db
}

func newGradingFixture(t *testing.T, grader AnswerGrader, events GradingEventPublisher) (GradingService, *gorm.DB) {
	t.Helper()

	db := openGradingTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	svc := NewGradingService(
		repository.NewQuestionRepository(db),
		repository.NewStudentRepository(db),
		repository.NewSubmissionRepository(db),
		grader,
		events,
		validate,
		logger,
	)

	return svc, db
}

func seedQuestionAndStudent(t *testing.T, db *gorm.DB) (models.Question, models.Student) {
	t.Helper()

	question := models.Question{
		Title:            "Photosynthesis",
		Text:             "Explain photosynthesis in detail.",
		MaxMarks:         20,
		DiagramsRequired: true,
	}
	require.NoError(t, db.Create(&question).Error)

	student := models.Student{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, db.Create(&student).Error)

	return question, student
}

func sampleResult() grading.Result {
	return grading.Result{
		Introduction:     grading.ScaledSection{Marks: 6.4, Feedback: "Clear opening"},
		MainBody:         grading.ScaledSection{Marks: 7.2, Feedback: "Well argued"},
		Conclusion:       grading.ScaledSection{Marks: 2.8, Feedback: "Could be tighter"},
		Examples:         grading.ScaledSection{Marks: 1.0, Feedback: "Good examples"},
		Diagrams:         grading.ScaledSection{Marks: 0, Feedback: "No diagrams provided"},
		TotalMarks:       17.4,
		AIDetectionScore: 0.12,
	}
}

func TestGradingServicePersistsOneSubmission(t *testing.T) {
	grader := &stubGrader{result: sampleResult()}
	events := &recordingPublisher{}
	svc, db := newGradingFixture(t, grader, events)
	question, student := seedQuestionAndStudent(t, db)

	response, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  student.ID,
		Answer:     "Plants convert light energy into chemical energy.",
	})
	require.NoError(t, err)
	require.Equal(t, 1, grader.gradeCalls)
	require.Equal(t, question.MaxMarks, response.MaxMarks)
	require.InDelta(t, 17.4, response.TotalMarks, 1e-9)
	require.InDelta(t, 0.12, response.AIDetectionScore, 1e-9)
	require.Equal(t, "No diagrams provided", response.Diagrams.Feedback)

	var stored []models.Submission
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	require.Equal(t, response.SubmissionID, stored[0].ID)
	require.InDelta(t, 7.2, stored[0].MainBodyMarks, 1e-9)

	var breakdown map[string]grading.ScaledSection
	require.NoError(t, stored[0].RubricBreakdown(&breakdown))
	require.Equal(t, "Well argued", breakdown[grading.SectionMainBody].Feedback)

	require.Len(t, events.events, 1)
	require.Equal(t, stored[0].ID, events.events[0].SubmissionID)
	require.InDelta(t, 17.4, events.events[0].TotalMarks, 1e-9)
}

func TestGradingServiceWritesNothingOnPipelineFailure(t *testing.T) {
	grader := &stubGrader{gradeErr: &grading.RetriesExhaustedError{Attempts: 3, Err: grading.ErrNoJSONFound}}
	svc, db := newGradingFixture(t, grader, nil)
	question, student := seedQuestionAndStudent(t, db)

	_, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  student.ID,
		Answer:     "Some answer",
	})
	require.Error(t, err)

	var exhausted *grading.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGradingServiceUnknownQuestion(t *testing.T) {
	grader := &stubGrader{result: sampleResult()}
	svc, db := newGradingFixture(t, grader, nil)
	_, student := seedQuestionAndStudent(t, db)

	_, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: 999,
		StudentID:  student.ID,
		Answer:     "Some answer",
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)
	require.Zero(t, grader.gradeCalls)
}

func TestGradingServiceUnknownStudent(t *testing.T) {
	grader := &stubGrader{result: sampleResult()}
	svc, db := newGradingFixture(t, grader, nil)
	question, _ := seedQuestionAndStudent(t, db)

	_, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  999,
		Answer:     "Some answer",
	})
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Zero(t, grader.gradeCalls)
}

func TestGradingServiceValidatesRequest(t *testing.T) {
	grader := &stubGrader{result: sampleResult()}
	svc, _ := newGradingFixture(t, grader, nil)

	_, err := svc.Grade(context.Background(), dto.GradeRequest{QuestionID: 1, StudentID: 1})
	require.Error(t, err)

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	require.Zero(t, grader.gradeCalls)
}

func TestGradingServiceReview(t *testing.T) {
	grader := &stubGrader{result: sampleResult(), review: "Add a labelled diagram of the chloroplast."}
	svc, db := newGradingFixture(t, grader, nil)
	question, student := seedQuestionAndStudent(t, db)

	graded, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  student.ID,
		Answer:     "Plants convert light energy into chemical energy.",
	})
	require.NoError(t, err)

	review, err := svc.Review(context.Background(), graded.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, graded.SubmissionID, review.SubmissionID)
	require.Equal(t, "Add a labelled diagram of the chloroplast.", review.Feedback)
	require.Equal(t, 1, grader.reviewCalls)
}

func TestGradingServiceReviewUnknownSubmission(t *testing.T) {
	grader := &stubGrader{}
	svc, _ := newGradingFixture(t, grader, nil)

	_, err := svc.Review(context.Background(), 42)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
	require.Zero(t, grader.reviewCalls)
}

func TestGradingServiceReviewErrorPropagates(t *testing.T) {
	grader := &stubGrader{result: sampleResult(), reviewErr: errors.New("model unavailable")}
	svc, db := newGradingFixture(t, grader, nil)
	question, student := seedQuestionAndStudent(t, db)

	graded, err := svc.Grade(context.Background(), dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  student.ID,
		Answer:     "Plants convert light energy into chemical energy.",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), graded.SubmissionID)
	require.EqualError(t, err, "model unavailable")
}
