package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examark/examark-api/internal/service"
	"github.com/examark/examark-api/internal/utils"
)

// ExtractHandler accepts uploaded answer sheets and returns extracted text.
type ExtractHandler struct {
	service service.ExtractionService
	logger  zerolog.Logger
}

// NewExtractHandler builds an extract handler instance.
func NewExtractHandler(service service.ExtractionService, logger zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{
		service: service,
		logger:  logger.With().Str("component", "extract_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ExtractHandler) Register(router fiber.Router) {
	router.Post("", h.extract)
}

func (h *ExtractHandler) extract(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	studentID, err := parseFormUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Extract(c.UserContext(), file, studentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExtractFileTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrExtractTypeNotAllowed):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("extraction failed")
			return utils.SendError(c, fiber.StatusBadGateway, "text extraction failed")
		}
	}

	return utils.SendSuccess(c, "text extracted", result)
}
