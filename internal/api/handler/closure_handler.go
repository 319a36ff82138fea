package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
	"github.com/fechamento-diario/internal/reconciliation/service"
)

// ClosureHandler handles HTTP requests for daily closure operations
type ClosureHandler struct {
	closureService service.ClosureService
	logger         *slog.Logger
}

// NewClosureHandler creates a new closure handler
func NewClosureHandler(logger *slog.Logger, closureService service.ClosureService) *ClosureHandler {
	return &ClosureHandler{
		closureService: closureService,
		logger:         logger,
	}
}

// Create opens the closure for a date, returning the existing one when the
// date was already opened.
func (h *ClosureHandler) Create(c *gin.Context) {
	var req CreateClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := closure.ParseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	dc, err := h.closureService.GetOrCreateClosure(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("Failed to get or create closure", "date", req.Date, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapClosureToResponse(dc))
}

// IngestSettlement uploads a settlement export for a date and reconciles it
func (h *ClosureHandler) IngestSettlement(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	var req IngestSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.closureService.IngestSettlement(c.Request.Context(), date, req.FileContent)
	if err != nil {
		if errors.Is(err, service.ErrEmptySettlementFile) {
			RespondUnprocessable(c, "Settlement file contains no valid transaction rows")
			return
		}
		if errors.Is(err, closure.ErrClosureNotFound{}) {
			RespondNotFound(c, "Closure not found for date")
			return
		}
		h.logger.Error("Failed to ingest settlement", "date", closure.DateKey(date), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, IngestResponse{
		Closure:     mapClosureToResponse(result.Closure),
		Divergences: mapDivergencesToResponse(result.Divergences),
		TotalRows:   result.TotalRows,
		SkippedRows: result.SkippedRows,
	})
}

// GetByDate retrieves a closure with its transactions and divergences
func (h *ClosureHandler) GetByDate(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	details, err := h.closureService.GetClosureDetails(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, closure.ErrClosureNotFound{}) {
			RespondNotFound(c, "Closure not found for date")
			return
		}
		h.logger.Error("Failed to get closure details", "date", closure.DateKey(date), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ClosureDetailsResponse{
		Closure:      mapClosureToResponse(details.Closure),
		Transactions: mapTransactionsToResponse(details.Transactions),
		Divergences:  mapDivergencesToResponse(details.Divergences),
		Payments:     mapPaymentsToResponse(details.Payments),
	})
}

// List retrieves the closures within a period
func (h *ClosureHandler) List(c *gin.Context) {
	var params ListClosuresParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	from, err := closure.ParseDate(params.From)
	if err != nil {
		RespondBadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := closure.ParseDate(params.To)
	if err != nil {
		RespondBadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		RespondBadRequest(c, "'to' must not precede 'from'")
		return
	}

	closures, err := h.closureService.ListClosures(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to list closures", "from", params.From, "to", params.To, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ClosureResponse, 0, len(closures))
	for _, dc := range closures {
		responses = append(responses, mapClosureToResponse(dc))
	}
	RespondOK(c, responses)
}

// Clear deletes a closure's settlement data and divergences
func (h *ClosureHandler) Clear(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	if err := h.closureService.ClearClosure(c.Request.Context(), date); err != nil {
		if errors.Is(err, closure.ErrClosureNotFound{}) {
			RespondNotFound(c, "Closure not found for date")
			return
		}
		h.logger.Error("Failed to clear closure", "date", closure.DateKey(date), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// dateParam parses the :date path parameter, responding 400 on failure.
func (h *ClosureHandler) dateParam(c *gin.Context) (time.Time, bool) {
	date, err := closure.ParseDate(c.Param("date"))
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// mapClosureToResponse maps a closure entity to a closure response DTO
func mapClosureToResponse(dc *closure.DailyClosure) ClosureResponse {
	return ClosureResponse{
		ID:                     dc.ID.String(),
		Date:                   closure.DateKey(dc.Date),
		Status:                 string(dc.Status),
		TotalCash:              dc.TotalCash,
		TotalPix:               dc.TotalPix,
		TotalDebit:             dc.TotalDebit,
		TotalCreditSingle:      dc.TotalCreditSingle,
		TotalCreditInstallment: dc.TotalCreditInstallment,
		AcquirerTotalDebit:     dc.AcquirerTotalDebit,
		AcquirerTotalCredit:    dc.AcquirerTotalCredit,
		MatchedCount:           dc.MatchedCount,
		DivergentCount:         dc.DivergentCount,
		NotRecordedCount:       dc.NotRecordedCount,
		PhantomCount:           dc.PhantomCount,
		CreatedAt:              dc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:              dc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapDivergenceToResponse maps a divergence entity to a response DTO
func mapDivergenceToResponse(d *divergence.Divergence) DivergenceResponse {
	resp := DivergenceResponse{
		ID:             d.ID.String(),
		ClosureID:      d.ClosureID.String(),
		Kind:           string(d.Kind),
		ReferenceCode:  d.ReferenceCode,
		ExpectedAmount: d.ExpectedAmount,
		FoundAmount:    d.FoundAmount,
		Description:    d.Description,
		Resolution:     string(d.Resolution),
		Justification:  d.Justification,
		ResolvedByID:   d.ResolvedByID,
		ResolvedBy:     d.ResolvedBy,
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}
	if d.ResolvedAt != nil {
		resp.ResolvedAt = d.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}

func mapDivergencesToResponse(divergences []*divergence.Divergence) []DivergenceResponse {
	responses := make([]DivergenceResponse, 0, len(divergences))
	for _, d := range divergences {
		responses = append(responses, mapDivergenceToResponse(d))
	}
	return responses
}

func mapPaymentsToResponse(payments []*sales.InternalPayment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, PaymentResponse{
			ID:            p.ID.String(),
			SaleID:        p.SaleID.String(),
			SaleDate:      closure.DateKey(p.SaleDate),
			Amount:        p.Amount,
			Modality:      p.Modality,
			Installments:  p.Installments,
			CardBrand:     p.CardBrand,
			ReferenceCode: p.ReferenceCode,
		})
	}
	return responses
}

func mapTransactionsToResponse(transactions []*settlement.ExternalTransaction) []TransactionResponse {
	responses := make([]TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		responses = append(responses, TransactionResponse{
			ID:            t.ID.String(),
			OccurredAt:    t.OccurredAt.Format(time.RFC3339),
			Status:        t.Status,
			GrossAmount:   t.GrossAmount,
			NetAmount:     t.NetAmount,
			Modality:      t.Modality,
			Installments:  t.Installments,
			CardBrand:     t.CardBrand,
			MDRRate:       t.MDRRate,
			MDRAmount:     t.MDRAmount,
			ReferenceCode: t.ReferenceCode,
		})
	}
	return responses
}
