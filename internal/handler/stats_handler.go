package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examark/examark-api/internal/service"
	"github.com/examark/examark-api/internal/utils"
)

// StatsHandler serves aggregated grading statistics.
type StatsHandler struct {
	service service.StudentStatsService
	logger  zerolog.Logger
}

// NewStatsHandler builds a stats handler instance.
func NewStatsHandler(service service.StudentStatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/:id/stats", h.stats)
}

func (h *StatsHandler) stats(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.service.GetStats(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "stats retrieved", stats)
}
