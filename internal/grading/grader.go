package grading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "examark",
		Subsystem: "grading",
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of grading pipeline runs including retries",
	})

	gradingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examark",
		Subsystem: "grading",
		Name:      "attempts_total",
		Help:      "Number of grading attempts by outcome",
	}, []string{"outcome"})
)

// Generator is the single external dependency of the grading pipeline: a
// model that turns a prompt into text. Implementations live in pkg/ai.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RetriesExhaustedError is returned when every grading attempt failed. It
// wraps the last underlying failure for diagnostics.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("grading failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// Request carries one answer to grade or review.
type Request struct {
	Question         string
	Answer           string
	MaxMarks         int
	DiagramsRequired bool
	ExamplesRequired bool
}

// Config tunes the grading pipeline.
type Config struct {
	MaxAttempts int
	Logger      zerolog.Logger
}

// Grader runs the grade and review pipelines against a Generator. It holds
// no state across calls; every invocation is a pure function of its inputs
// plus the model response.
type Grader struct {
	gen         Generator
	maxAttempts int
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGrader constructs a grading pipeline with bounded retries (default 3).
func NewGrader(gen Generator, cfg Config) *Grader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Grader{
		gen:         gen,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger.With().Str("component", "grader").Logger(),
		tracer:      otel.Tracer("github.com/examark/examark-api/internal/grading"),
	}
}

// Grade issues the grading request, normalizes the response with bounded
// retries, and scales the validated rubric to the question's max marks.
func (g *Grader) Grade(ctx context.Context, req Request) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.Int("grading.max_marks", req.MaxMarks),
		attribute.Bool("grading.diagrams_required", req.DiagramsRequired),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		gradingDuration.Observe(time.Since(start).Seconds())
	}()

	prompt := buildGradePrompt(req)

	rubric, err := g.withRetries(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempts_exhausted")
		return Result{}, err
	}

	result, err := Scale(rubric, float64(req.MaxMarks), req.DiagramsRequired, req.ExamplesRequired)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scaling_failed")
		return Result{}, err
	}

	span.SetAttributes(attribute.Float64("grading.total_marks", result.TotalMarks))

	return result, nil
}

// withRetries runs one generate-and-normalize round per attempt. Attempts are
// strictly sequential: every model call is billed, so a retry is only issued
// after the previous attempt failed structurally. The prompt is not modified
// between attempts.
func (g *Grader) withRetries(ctx context.Context, prompt string) (RawRubric, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.gen.Generate(ctx, prompt)
		if err == nil {
			rubric, normErr := Normalize(text)
			if normErr == nil {
				gradingAttempts.WithLabelValues("success").Inc()
				return rubric, nil
			}
			err = normErr
		} else {
			err = fmt.Errorf("model call failed: %w", err)
		}

		lastErr = err
		gradingAttempts.WithLabelValues("failure").Inc()
		g.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", g.maxAttempts).
			Msg("grading attempt failed")
	}

	return RawRubric{}, &RetriesExhaustedError{Attempts: g.maxAttempts, Err: lastErr}
}

// Review issues a single free-form feedback request with no parsing and no
// retry. Call failures propagate; empty output falls back to the placeholder.
func (g *Grader) Review(ctx context.Context, req Request) (string, error) {
	ctx, span := g.tracer.Start(ctx, "grading.review")
	defer span.End()

	text, err := g.gen.Generate(ctx, buildReviewPrompt(req))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review_call_failed")
		return "", fmt.Errorf("review call failed: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		return DefaultFeedback, nil
	}

	return text, nil
}
