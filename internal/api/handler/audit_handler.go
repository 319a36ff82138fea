package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fechamento-diario/internal/domain/audit"
	"github.com/fechamento-diario/internal/domain/closure"
)

// AuditHandler handles HTTP requests for the reconciliation audit trail
type AuditHandler struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditRepo audit.Repository) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// ListByDate retrieves the audit trail of a closure date, newest first
func (h *AuditHandler) ListByDate(c *gin.Context) {
	date, err := closure.ParseDate(c.Param("date"))
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	offset := (params.Page - 1) * params.PerPage
	events, err := h.auditRepo.ListByClosureDate(c.Request.Context(), closure.DateKey(date), params.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list audit events", "date", closure.DateKey(date), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, AuditEventResponse{
			ID:          e.ID.String(),
			ClosureDate: e.ClosureDate,
			Action:      string(e.Action),
			ActorID:     e.ActorID,
			ActorName:   e.ActorName,
			Summary:     e.Summary,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}

	RespondOK(c, responses)
}
