package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/reconciliation/service"
)

// DivergenceHandler handles HTTP requests for divergence resolution
type DivergenceHandler struct {
	resolutionService service.ResolutionService
	logger            *slog.Logger
}

// NewDivergenceHandler creates a new divergence handler
func NewDivergenceHandler(logger *slog.Logger, resolutionService service.ResolutionService) *DivergenceHandler {
	return &DivergenceHandler{
		resolutionService: resolutionService,
		logger:            logger,
	}
}

// Resolve records a terminal resolution on a single divergence
func (h *DivergenceHandler) Resolve(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid divergence ID")
		return
	}

	var req ResolveDivergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actor := divergence.Actor{ID: req.ResolvedByID, Name: req.ResolvedByName}
	d, err := h.resolutionService.ResolveDivergence(c.Request.Context(), id,
		divergence.ResolutionStatus(req.Resolution), req.Justification, actor)
	if err != nil {
		switch {
		case errors.Is(err, divergence.ErrDivergenceNotFound{}):
			RespondNotFound(c, "Divergence not found")
		case errors.Is(err, divergence.ErrJustificationTooShort),
			errors.Is(err, divergence.ErrInvalidResolutionStatus):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to resolve divergence", "id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapDivergenceToResponse(d))
}

// ResolveBatch resolves many divergences with a shared justification
func (h *DivergenceHandler) ResolveBatch(c *gin.Context) {
	var req ResolveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.DivergenceIDs))
	for _, raw := range req.DivergenceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid divergence ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	actor := divergence.Actor{ID: req.ResolvedByID, Name: req.ResolvedByName}
	result, err := h.resolutionService.ResolveBatch(c.Request.Context(), ids,
		divergence.ResolutionStatus(req.Resolution), req.Justification, actor)
	if err != nil {
		switch {
		case errors.Is(err, divergence.ErrEmptyDivergenceList),
			errors.Is(err, divergence.ErrJustificationTooShort),
			errors.Is(err, divergence.ErrInvalidResolutionStatus):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to resolve divergence batch", "count", len(ids), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, BatchResolutionResponse{
		Resolved: result.Resolved,
		NotFound: result.NotFound,
		Failed:   result.Failed,
	})
}
