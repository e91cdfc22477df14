package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
)

// ErrQuestionEmpty indicates the question text vanished after sanitization.
var ErrQuestionEmpty = errors.New("question text empty after sanitization")

// QuestionService manages teacher-authored questions.
type QuestionService interface {
	List(ctx context.Context) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint) error
}

type questionService struct {
	repo      repository.QuestionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(repo repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context) ([]dto.QuestionResponse, error) {
	questions, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	text := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if title == "" || text == "" {
		return dto.QuestionResponse{}, ErrQuestionEmpty
	}

	question := models.Question{
		Title:            title,
		Text:             text,
		MaxMarks:         payload.MaxMarks,
		DiagramsRequired: payload.DiagramsRequired,
		ExamplesRequired: payload.ExamplesRequired,
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Msg("question created")

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	if payload.Title != nil {
		title := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
		if title == "" {
			return dto.QuestionResponse{}, ErrQuestionEmpty
		}
		question.Title = title
	}

	if payload.Text != nil {
		text := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Text))
		if text == "" {
			return dto.QuestionResponse{}, ErrQuestionEmpty
		}
		question.Text = text
	}

	if payload.MaxMarks != nil {
		question.MaxMarks = *payload.MaxMarks
	}

	if payload.DiagramsRequired != nil {
		question.DiagramsRequired = *payload.DiagramsRequired
	}

	if payload.ExamplesRequired != nil {
		question.ExamplesRequired = *payload.ExamplesRequired
	}

	if err := s.repo.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	return s.repo.Delete(ctx, id)
}
