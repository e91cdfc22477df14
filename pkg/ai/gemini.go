package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gemini exposes an OpenAI-compatible endpoint, so the shared chat client is
// pointed at it rather than carrying a second SDK.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "examark",
		Subsystem: "ai",
		Name:      "generate_duration_seconds",
		Help:      "Duration of model generation requests",
	}, []string{"model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examark",
		Subsystem: "ai",
		Name:      "generate_failures_total",
		Help:      "Number of failed model generation requests",
	}, []string{"model"})
)

// GeminiConfig defines configuration options for the Gemini generator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// GeminiGenerator implements TextGenerator and ImageTextExtractor against
// Google's Gemini models.
type GeminiGenerator struct {
	client *openai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiGenerator builds a generator using the provided configuration.
func NewGeminiGenerator(cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = geminiBaseURL

	return &GeminiGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/examark/examark-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_generator").Logger(),
	}, nil
}

// Generate sends the prompt to Gemini and returns the raw response text.
func (g *GeminiGenerator) Generate(parent context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	content, err := g.complete(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return content, nil
}

// ExtractText asks Gemini's vision capability to transcribe an uploaded
// document image.
func (g *GeminiGenerator) ExtractText(parent context.Context, mimeType string, data []byte) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.extract_text", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("mime_type", mimeType),
		attribute.Int("payload_bytes", len(data)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: extractionPrompt(),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageDataURL(mimeType, data),
						},
					},
				},
			},
		},
	}

	content, err := g.complete(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return content, nil
}

func (g *GeminiGenerator) complete(ctx context.Context, request openai.ChatCompletionRequest) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	generateDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(g.cfg.Model).Inc()
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		generateFailures.WithLabelValues(g.cfg.Model).Inc()
		return "", fmt.Errorf("no choices returned from gemini")
	}

	return resp.Choices[0].Message.Content, nil
}

func extractionPrompt() string {
	return "Extract all text from this image.\n" +
		"Requirements:\n" +
		"1. Maintain original formatting and structure\n" +
		"2. Preserve all text exactly as shown\n" +
		"3. Keep paragraphs separate\n" +
		"4. Include any headers or titles\n" +
		"5. Maintain any bullet points or numbering"
}

func imageDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
