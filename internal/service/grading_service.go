package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/grading"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
)

// ErrQuestionNotFound indicates the question could not be located.
var ErrQuestionNotFound = errors.New("question not found")

// ErrStudentNotFound indicates the student could not be located.
var ErrStudentNotFound = errors.New("student not found")

// ErrSubmissionNotFound indicates the submission could not be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// AnswerGrader abstracts the grading pipeline for the service layer.
type AnswerGrader interface {
	Grade(ctx context.Context, req grading.Request) (grading.Result, error)
	Review(ctx context.Context, req grading.Request) (string, error)
}

// GradingService runs the grading and review workflows and owns the
// one-submission-per-successful-grade persistence rule.
type GradingService interface {
	Grade(ctx context.Context, payload dto.GradeRequest) (dto.GradingResponse, error)
	Review(ctx context.Context, submissionID uint) (dto.ReviewResponse, error)
}

type gradingService struct {
	questions   repository.QuestionRepository
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	grader      AnswerGrader
	events      GradingEventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	questions repository.QuestionRepository,
	students repository.StudentRepository,
	submissions repository.SubmissionRepository,
	grader AnswerGrader,
	events GradingEventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		questions:   questions,
		students:    students,
		submissions: submissions,
		grader:      grader,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/examark/examark-api/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, payload dto.GradeRequest) (dto.GradingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.Int64("grading.question_id", int64(payload.QuestionID)),
		attribute.Int64("grading.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingResponse{}, ErrQuestionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "question_lookup_failed")
		return dto.GradingResponse{}, err
	}

	if _, err := s.students.GetByID(ctx, payload.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingResponse{}, ErrStudentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "student_lookup_failed")
		return dto.GradingResponse{}, err
	}

	result, err := s.grader.Grade(ctx, grading.Request{
		Question:         question.Text,
		Answer:           payload.Answer,
		MaxMarks:         question.MaxMarks,
		DiagramsRequired: question.DiagramsRequired,
		ExamplesRequired: question.ExamplesRequired,
	})
	if err != nil {
		// No partial submission record is ever written.
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline_failed")
		s.logger.Error().Err(err).Uint("question_id", question.ID).Msg("grading pipeline failed")
		return dto.GradingResponse{}, err
	}

	submission := models.Submission{
		QuestionID:        question.ID,
		StudentID:         payload.StudentID,
		Answer:            payload.Answer,
		MaxMarks:          question.MaxMarks,
		IntroductionMarks: result.Introduction.Marks,
		MainBodyMarks:     result.MainBody.Marks,
		ConclusionMarks:   result.Conclusion.Marks,
		ExamplesMarks:     result.Examples.Marks,
		DiagramsMarks:     result.Diagrams.Marks,
		TotalMarks:        result.TotalMarks,
		AIDetectionScore:  result.AIDetectionScore,
	}

	if err := submission.SetRubric(sectionBreakdown(result)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_encoding_failed")
		return dto.GradingResponse{}, err
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_create_failed")
		return dto.GradingResponse{}, err
	}

	if s.events != nil {
		s.events.SubmissionGraded(ctx, SubmissionGradedEvent{
			SubmissionID: submission.ID,
			QuestionID:   question.ID,
			StudentID:    payload.StudentID,
			MaxMarks:     question.MaxMarks,
			TotalMarks:   result.TotalMarks,
			GradedAt:     s.now().UTC(),
		})
	}

	span.SetAttributes(attribute.Float64("grading.total_marks", result.TotalMarks))
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("question_id", question.ID).
		Float64("total_marks", result.TotalMarks).
		Msg("submission graded")

	return dto.NewGradingResponse(submission.ID, payload, question.MaxMarks, result), nil
}

func (s *gradingService) Review(ctx context.Context, submissionID uint) (dto.ReviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.review", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.ReviewResponse{}, err
	}

	feedback, err := s.grader.Review(ctx, grading.Request{
		Question: submission.Question.Text,
		Answer:   submission.Answer,
		MaxMarks: submission.MaxMarks,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review_failed")
		return dto.ReviewResponse{}, err
	}

	return dto.ReviewResponse{SubmissionID: submission.ID, Feedback: feedback}, nil
}

func sectionBreakdown(result grading.Result) map[string]grading.ScaledSection {
	return map[string]grading.ScaledSection{
		grading.SectionIntroduction: result.Introduction,
		grading.SectionMainBody:     result.MainBody,
		grading.SectionConclusion:   result.Conclusion,
		grading.SectionExamples:     result.Examples,
		grading.SectionDiagrams:     result.Diagrams,
	}
}
