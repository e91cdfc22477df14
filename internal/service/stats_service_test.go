package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
)

func newStatsFixture(t *testing.T, withCache bool) (StudentStatsService, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Student{}, &models.Submission{}))

	var client *redis.Client
	var mini *miniredis.Miniredis
	if withCache {
		mini, err = miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mini.Close)
		client = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	}

	svc := NewStudentStatsService(
		repository.NewStudentRepository(db),
		repository.NewSubmissionRepository(db),
		client,
		time.Minute,
		zerolog.New(io.Discard),
	)

	return svc, db, mini
}

func seedStatsData(t *testing.T, db *gorm.DB) models.Student {
	t.Helper()

	student := models.Student{Name: "Ravi", Email: "ravi@example.com"}
	require.NoError(t, db.Create(&student).Error)

	question := models.Question{Title: "Osmosis", Text: "Define osmosis.", MaxMarks: 10}
	require.NoError(t, db.Create(&question).Error)

	submissions := []models.Submission{
		{QuestionID: question.ID, StudentID: student.ID, Answer: "a", MaxMarks: 10, TotalMarks: 8},
		{QuestionID: question.ID, StudentID: student.ID, Answer: "b", MaxMarks: 10, TotalMarks: 6},
	}
	for i := range submissions {
		require.NoError(t, db.Create(&submissions[i]).Error)
	}

	return student
}

func TestStatsServiceAggregates(t *testing.T) {
	svc, db, _ := newStatsFixture(t, false)
	student := seedStatsData(t, db)

	stats, err := svc.GetStats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, student.ID, stats.StudentID)
	require.Equal(t, 2, stats.Submissions)
	require.InDelta(t, 7.0, stats.AverageTotalMarks, 1e-9)
	require.InDelta(t, 70.0, stats.AveragePercentage, 1e-9)
	require.InDelta(t, 80.0, stats.BestPercentage, 1e-9)
}

func TestStatsServiceEmptyHistory(t *testing.T) {
	svc, db, _ := newStatsFixture(t, false)

	student := models.Student{Name: "Mina", Email: "mina@example.com"}
	require.NoError(t, db.Create(&student).Error)

	stats, err := svc.GetStats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Zero(t, stats.Submissions)
	require.Zero(t, stats.AverageTotalMarks)
	require.Zero(t, stats.BestPercentage)
}

func TestStatsServiceUnknownStudent(t *testing.T) {
	svc, _, _ := newStatsFixture(t, false)

	_, err := svc.GetStats(context.Background(), 404)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStatsServiceCachesResults(t *testing.T) {
	svc, db, mini := newStatsFixture(t, true)
	student := seedStatsData(t, db)

	first, err := svc.GetStats(context.Background(), student.ID)
	require.NoError(t, err)

	key := fmt.Sprintf("stats:student:%d", student.ID)
	require.True(t, mini.Exists(key))

	// Rows added after the first read stay invisible until the TTL expires.
	require.NoError(t, db.Create(&models.Submission{
		QuestionID: 1, StudentID: student.ID, Answer: "c", MaxMarks: 10, TotalMarks: 10,
	}).Error)

	cached, err := svc.GetStats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, first, cached)

	mini.FastForward(2 * time.Minute)

	fresh, err := svc.GetStats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fresh.Submissions)
	require.InDelta(t, 100.0, fresh.BestPercentage, 1e-9)
}
