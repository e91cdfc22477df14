package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
)

// StudentStatsService aggregates a student's grading history.
type StudentStatsService interface {
	GetStats(ctx context.Context, studentID uint) (dto.StudentStatsResponse, error)
}

type studentStatsService struct {
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStudentStatsService builds the stats aggregator.
func NewStudentStatsService(students repository.StudentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentStatsService {
	return &studentStatsService{
		students:    students,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_stats_service").Logger(),
	}
}

func (s *studentStatsService) GetStats(ctx context.Context, studentID uint) (dto.StudentStatsResponse, error) {
	cacheKey := fmt.Sprintf("stats:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("stats cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
	}

	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentStatsResponse{}, ErrStudentNotFound
		}
		return dto.StudentStatsResponse{}, err
	}

	filter := repository.SubmissionFilter{StudentID: &studentID}
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.StudentStatsResponse{}, err
	}

	response := buildStats(studentID, submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store stats cache")
			}
		}
	}

	return response, nil
}

func buildStats(studentID uint, submissions []models.Submission) dto.StudentStatsResponse {
	response := dto.StudentStatsResponse{
		StudentID:   studentID,
		Submissions: len(submissions),
	}

	if len(submissions) == 0 {
		return response
	}

	var totalMarks, totalPercentage float64
	for _, submission := range submissions {
		totalMarks += submission.TotalMarks
		if submission.MaxMarks > 0 {
			percentage := submission.TotalMarks / float64(submission.MaxMarks) * 100
			totalPercentage += percentage
			if percentage > response.BestPercentage {
				response.BestPercentage = percentage
			}
		}
	}

	response.AverageTotalMarks = totalMarks / float64(len(submissions))
	response.AveragePercentage = totalPercentage / float64(len(submissions))

	return response
}
