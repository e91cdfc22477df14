package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
	"github.com/examark/examark-api/pkg/ai"
)

var (
	// ErrExtractFileTooLarge indicates the upload exceeded the configured limit.
	ErrExtractFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrExtractTypeNotAllowed indicates the MIME type is not permitted.
	ErrExtractTypeNotAllowed = errors.New("only image and PDF uploads are supported")
)

// PDF pages are not converted to images yet; the original sheet should be
// uploaded page by page instead.
const pdfExtractionNotice = "PDF extraction is being updated. Please upload images directly for better results."

var (
	lineBreakPattern = regexp.MustCompile(`[\r\n]+`)
	spacingPattern   = regexp.MustCompile(`[ \t]+`)
)

// FileStorage abstracts the archive destination for answer sheets.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ExtractionService turns uploaded answer sheets into plain answer text.
type ExtractionService interface {
	Extract(ctx context.Context, file *multipart.FileHeader, studentID *uint) (dto.ExtractResponse, error)
}

type extractionService struct {
	extractor ai.ImageTextExtractor
	storage   FileStorage
	uploads   repository.UploadRepository
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewExtractionService constructs the extraction front end.
func NewExtractionService(extractor ai.ImageTextExtractor, storage FileStorage, uploads repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) ExtractionService {
	if maxSizeMB <= 0 {
		maxSizeMB = 16
	}

	return &extractionService{
		extractor: extractor,
		storage:   storage,
		uploads:   uploads,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "extraction_service").Logger(),
		tracer:    otel.Tracer("github.com/examark/examark-api/internal/service/extraction"),
	}
}

func (s *extractionService) Extract(ctx context.Context, file *multipart.FileHeader, studentID *uint) (dto.ExtractResponse, error) {
	ctx, span := s.tracer.Start(ctx, "extraction.extract")
	defer span.End()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExtractResponse{}, err
	}

	span.SetAttributes(
		attribute.String("extraction.file_name", file.Filename),
		attribute.Int64("extraction.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrExtractFileTooLarge)
		span.SetStatus(codes.Error, "payload_too_large")
		return dto.ExtractResponse{}, ErrExtractFileTooLarge
	}

	// The handle is released whether or not extraction succeeds.
	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open_failed")
		return dto.ExtractResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read_failed")
		return dto.ExtractResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrExtractFileTooLarge)
		span.SetStatus(codes.Error, "payload_too_large")
		return dto.ExtractResponse{}, ErrExtractFileTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("extraction.detected_mime", mime.String()))

	var text string
	switch {
	case mime.Is("application/pdf"):
		text = pdfExtractionNotice
	case strings.HasPrefix(mime.String(), "image/"):
		text, err = s.extractor.ExtractText(ctx, mime.String(), buf.Bytes())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "extraction_failed")
			return dto.ExtractResponse{}, fmt.Errorf("text extraction failed: %w", err)
		}
		text = cleanText(text)
	default:
		span.RecordError(ErrExtractTypeNotAllowed)
		span.SetStatus(codes.Error, "type_not_allowed")
		return dto.ExtractResponse{}, ErrExtractTypeNotAllowed
	}

	response := dto.ExtractResponse{
		Text:      text,
		FileName:  file.Filename,
		MimeType:  mime.String(),
		SizeBytes: int64(buf.Len()),
	}

	// Archiving the sheet is best effort: the extracted text is already in
	// hand and losing the audit copy should not fail the request.
	response.ArchiveURL = s.archive(ctx, file.Filename, mime.String(), buf.Bytes(), studentID)

	return response, nil
}

func (s *extractionService) archive(ctx context.Context, name, mime string, payload []byte, studentID *uint) string {
	if s.storage == nil {
		return ""
	}

	url, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn().Err(err).Str("file_name", name).Msg("failed to archive answer sheet")
		return ""
	}

	checksum := sha256.Sum256(payload)
	record := models.UploadRecord{
		StudentID: studentID,
		FileName:  name,
		URL:       url,
		MimeType:  mime,
		SizeBytes: int64(len(payload)),
		Checksum:  hex.EncodeToString(checksum[:]),
	}

	if s.uploads != nil {
		if err := s.uploads.Create(ctx, &record); err != nil {
			s.logger.Warn().Err(err).Str("file_name", name).Msg("failed to persist upload record")
		}
	}

	return url
}

// cleanText normalizes line breaks and collapses runs of spaces so the
// extracted answer reads as contiguous prose.
func cleanText(text string) string {
	text = lineBreakPattern.ReplaceAllString(text, "\n")
	text = spacingPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
