package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubmissionGradedEvent is broadcast after a submission record is written.
type SubmissionGradedEvent struct {
	SubmissionID uint      `json:"submission_id"`
	QuestionID   uint      `json:"question_id"`
	StudentID    uint      `json:"student_id"`
	MaxMarks     int       `json:"max_marks"`
	TotalMarks   float64   `json:"total_marks"`
	GradedAt     time.Time `json:"graded_at"`
}

// GradingEventPublisher notifies interested consumers about grading results.
// Publishing is best effort; a failed publish never fails the grading request.
type GradingEventPublisher interface {
	SubmissionGraded(ctx context.Context, event SubmissionGradedEvent)
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes grading events on the given NATS subject.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) GradingEventPublisher {
	if subject == "" {
		subject = "examark.submissions.graded"
	}

	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "grading_events").Logger(),
	}
}

func (p *natsEventPublisher) SubmissionGraded(_ context.Context, event SubmissionGradedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode grading event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish grading event")
	}
}
